// Package faqstore is the FAQ topic store: a small JSON document database
// kept in one file, compatible with the table/document layout other ripple
// tools use ({"faq": {"1": {"topic": ..., "response": ...}, ...}}). A file
// watcher reloads the store when the file is edited externally.
package faqstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"
)

const tableName = "faq"

// ErrNoTopic is returned when a topic does not exist.
var ErrNoTopic = errors.New("faqstore: no such topic")

type document struct {
	Topic    string `json:"topic"`
	Response string `json:"response"`
}

// Store is the FAQ database. All access is mutex-guarded; the file on disk
// is the source of truth and every mutation rewrites it.
type Store struct {
	path string

	mu     sync.Mutex
	docs   map[string]document // doc id -> document
	nextID int

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Open loads (or creates) the store file and starts the reload watcher.
func Open(path string) (*Store, error) {
	s := &Store{
		path: path,
		docs: make(map[string]document),
		done: make(chan struct{}),
	}
	if err := s.load(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("faqstore: watcher: %w", err)
	}
	// Watch the directory: editors replace the file, which would drop a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("faqstore: watch %s: %w", path, err)
	}
	s.watcher = watcher
	go s.watch()
	return s, nil
}

// Close stops the file watcher.
func (s *Store) Close() error {
	close(s.done)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Store) watch() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(s.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := s.load(); err != nil {
				slog.Error("faq store reload failed", "error", err)
				continue
			}
			slog.Info("faq store reloaded", "path", s.path)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("faq store watcher error", "error", err)
		}
	}
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("faqstore: read %s: %w", s.path, err)
	}

	var tables map[string]map[string]document
	if err := json.Unmarshal(data, &tables); err != nil {
		return fmt.Errorf("faqstore: decode %s: %w", s.path, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = tables[tableName]
	if s.docs == nil {
		s.docs = make(map[string]document)
	}
	s.nextID = 0
	for id := range s.docs {
		if n, err := strconv.Atoi(id); err == nil && n > s.nextID {
			s.nextID = n
		}
	}
	return nil
}

// flushLocked rewrites the store file. Caller holds the mutex.
func (s *Store) flushLocked() error {
	data, err := json.MarshalIndent(map[string]map[string]document{tableName: s.docs}, "", "    ")
	if err != nil {
		return fmt.Errorf("faqstore: encode: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("faqstore: write %s: %w", s.path, err)
	}
	return nil
}

// Get returns the response of a topic. ErrNoTopic when missing.
func (s *Store) Get(topic string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, doc := range s.docs {
		if doc.Topic == topic {
			return doc.Response, nil
		}
	}
	return "", ErrNoTopic
}

// Upsert sets the response of a topic, creating it if needed.
func (s *Store) Upsert(topic, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.docs {
		if doc.Topic == topic {
			doc.Response = response
			s.docs[id] = doc
			return s.flushLocked()
		}
	}
	s.nextID++
	s.docs[strconv.Itoa(s.nextID)] = document{Topic: topic, Response: response}
	return s.flushLocked()
}

// Delete removes a topic. Deleting a missing topic is not an error.
func (s *Store) Delete(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, doc := range s.docs {
		if doc.Topic == topic {
			delete(s.docs, id)
			return s.flushLocked()
		}
	}
	return nil
}

// Topics lists every topic name, sorted.
func (s *Store) Topics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.docs))
	for _, doc := range s.docs {
		out = append(out, doc.Topic)
	}
	sort.Strings(out)
	return out
}
