package faqstore

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".db.json"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertGetDelete(t *testing.T) {
	s := openTemp(t)

	if _, err := s.Get("rules"); !errors.Is(err, ErrNoTopic) {
		t.Errorf("err = %v, want ErrNoTopic", err)
	}

	if err := s.Upsert("rules", "Read them at /rules"); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("discord", "Join at /discord"); err != nil {
		t.Fatal(err)
	}

	got, err := s.Get("rules")
	if err != nil {
		t.Fatal(err)
	}
	if got != "Read them at /rules" {
		t.Errorf("Get = %q", got)
	}

	// Upsert on an existing topic replaces, not duplicates.
	if err := s.Upsert("rules", "new text"); err != nil {
		t.Fatal(err)
	}
	if got, _ := s.Get("rules"); got != "new text" {
		t.Errorf("after upsert: %q", got)
	}
	if topics := s.Topics(); !reflect.DeepEqual(topics, []string{"discord", "rules"}) {
		t.Errorf("Topics = %v", topics)
	}

	if err := s.Delete("rules"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get("rules"); !errors.Is(err, ErrNoTopic) {
		t.Errorf("deleted topic still present: %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".db.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert("rules", "text"); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if got, err := s2.Get("rules"); err != nil || got != "text" {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}

func TestLoadsDocumentDatabaseFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".db.json")
	err := os.WriteFile(path, []byte(`{"faq": {
		"1": {"topic": "rules", "response": "the rules"},
		"2": {"topic": "discord", "response": "the discord"}
	}}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if got, err := s.Get("discord"); err != nil || got != "the discord" {
		t.Errorf("Get = %q, %v", got, err)
	}

	// A new topic must not collide with existing doc ids.
	if err := s.Upsert("status", "all good"); err != nil {
		t.Fatal(err)
	}
	if got, err := s.Get("rules"); err != nil || got != "the rules" {
		t.Errorf("existing topic clobbered: %q, %v", got, err)
	}
}

func TestExternalEditReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".db.json")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	err = os.WriteFile(path, []byte(`{"faq": {"1": {"topic": "fresh", "response": "from outside"}}}`), 0o644)
	if err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if got, err := s.Get("fresh"); err == nil && got == "from outside" {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("external edit was not picked up")
}
