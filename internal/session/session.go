// Package session drives the attachment lifecycle to the chat server:
// connect, authenticate (or resume), subscribe, join every public channel,
// serve, and reconnect after suspension or network failure.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/osuripple/fokabot/internal/events"
	"github.com/osuripple/fokabot/internal/transport"
	"github.com/osuripple/fokabot/pkg/wire"
)

// State of the session state machine.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateAuthenticating
	StateSubscribing
	StateJoining
	StateReady
	StateSuspended
	StateReconnecting
)

// Events emitted on the bus.
const (
	EventReady   = "ready"
	EventResumed = "resumed"
)

// Terminal errors: the current attempt cannot continue and the caller is
// responsible for a restart.
var (
	ErrLoginFailed  = errors.New("session: authentication rejected")
	ErrResumeFailed = errors.New("session: resume rejected")
)

// startupTimeout bounds each step of the login sequence.
const startupTimeout = 30 * time.Second

// Transport is the slice of the transport client the session drives.
type Transport interface {
	Connect(ctx context.Context) error
	SendNow(ctx context.Context, msg wire.Message) error
	StartWriter(ctx context.Context)
	StopWriter()
	Close()
}

// Session owns the transport and the connection state. All state mutations
// happen under one mutex; handlers run on the event-dispatch path.
type Session struct {
	nickname string
	token    string
	backoff  time.Duration
	tr       Transport
	bus      *events.Bus
	channels func(ctx context.Context) ([]string, error)

	mu          sync.Mutex
	state       State
	ready       bool
	suspended   bool
	resumeToken string
	joined      map[string]struct{}
	loginLeft   map[string]struct{}
	runCtx      context.Context
}

// New creates a session and registers its wire handlers on the bus.
// channels fetches the full public channel list from the presence API.
func New(
	nickname, token string,
	backoff time.Duration,
	tr Transport,
	bus *events.Bus,
	channels func(ctx context.Context) ([]string, error),
) *Session {
	s := &Session{
		nickname:  nickname,
		token:     token,
		backoff:   backoff,
		tr:        tr,
		bus:       bus,
		channels:  channels,
		joined:    make(map[string]struct{}),
		loginLeft: make(map[string]struct{}),
	}
	bus.On("msg:"+wire.TypePing, s.onPing)
	bus.On("msg:"+wire.TypeSuspend, s.onSuspend)
	bus.On("msg:"+wire.TypeChatChannelJoined, s.onChannelJoined)
	bus.On("msg:"+wire.TypeChatChannelAdded, s.onChannelAdded)
	bus.On("msg:"+wire.TypeChatChannelRemoved, s.onChannelGone)
	bus.On("msg:"+wire.TypeChatChannelLeft, s.onChannelGone)
	return s
}

// Run is the reconnect loop. It returns on context cancellation or on a
// terminal auth/resume failure.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	s.runCtx = ctx
	s.mu.Unlock()

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		discW := s.bus.NewWaiter(transport.EventDisconnected)
		s.setState(StateConnecting)
		if err := s.tr.Connect(ctx); err != nil {
			discW.Close()
			slog.Error("connect failed, retrying", "error", err, "backoff", s.backoff)
			if !sleepCtx(ctx, s.backoff) {
				return ctx.Err()
			}
			continue
		}

		if err := s.login(ctx); err != nil {
			s.tr.Close()
			discW.Close()
			if errors.Is(err, ErrLoginFailed) || errors.Is(err, ErrResumeFailed) {
				return err
			}
			slog.Error("login sequence failed, reconnecting", "error", err)
		} else if _, err := discW.Wait(ctx, events.WaitFirst); err != nil {
			s.tr.Close()
			return ctx.Err()
		}

		s.mu.Lock()
		suspended := s.suspended
		if !suspended {
			s.resetLocked()
		}
		s.state = StateReconnecting
		s.mu.Unlock()

		slog.Warn("disconnected, reconnecting", "suspended", suspended, "backoff", s.backoff)
		// TODO: exponential backoff with a cap
		if !sleepCtx(ctx, s.backoff) {
			return ctx.Err()
		}
	}
}

// login routes a fresh connection to the auth path or, when the server
// suspended us, the resume path.
func (s *Session) login(ctx context.Context) error {
	s.mu.Lock()
	token := s.resumeToken
	s.mu.Unlock()
	if token != "" {
		return s.resume(ctx, token)
	}
	return s.authenticate(ctx)
}

func (s *Session) authenticate(ctx context.Context) error {
	s.setState(StateAuthenticating)
	slog.Info("logging in", "nickname", s.nickname)

	authW := s.bus.NewWaiter("msg:"+wire.TypeAuthSuccess, "msg:"+wire.TypeAuthFailure)
	if err := s.tr.SendNow(ctx, wire.Auth(s.nickname, s.token)); err != nil {
		authW.Close()
		return err
	}
	fired, err := waitStep(ctx, authW)
	if err != nil {
		return fmt.Errorf("waiting for auth reply: %w", err)
	}
	if fired == "msg:"+wire.TypeAuthFailure {
		return ErrLoginFailed
	}

	s.setState(StateSubscribing)
	subW := s.bus.NewWaiter("msg:" + wire.TypeSubscribed)
	if err := s.tr.SendNow(ctx, wire.Subscribe(wire.EventChatChannels)); err != nil {
		subW.Close()
		return err
	}
	if _, err := waitStep(ctx, subW); err != nil {
		return fmt.Errorf("waiting for subscribed: %w", err)
	}

	s.setState(StateJoining)
	names, err := s.channels(ctx)
	if err != nil {
		return fmt.Errorf("fetching channel list: %w", err)
	}

	s.mu.Lock()
	s.loginLeft = make(map[string]struct{}, len(names))
	for _, n := range names {
		s.loginLeft[n] = struct{}{}
	}
	empty := len(s.loginLeft) == 0
	s.mu.Unlock()

	if empty {
		s.becomeReady()
		return nil
	}

	readyW := s.bus.NewWaiter(EventReady)
	for _, n := range names {
		if err := s.tr.SendNow(ctx, wire.JoinChannel(n)); err != nil {
			readyW.Close()
			return err
		}
	}
	if _, err := waitStep(ctx, readyW); err != nil {
		return fmt.Errorf("waiting for join-all: %w", err)
	}
	return nil
}

func (s *Session) resume(ctx context.Context, token string) error {
	s.setState(StateAuthenticating)
	slog.Info("resuming session")

	w := s.bus.NewWaiter("msg:"+wire.TypeResumeSuccess, "msg:"+wire.TypeResumeFailure)
	if err := s.tr.SendNow(ctx, wire.Resume(token)); err != nil {
		w.Close()
		return err
	}
	fired, err := waitStep(ctx, w)
	if err != nil {
		return fmt.Errorf("waiting for resume reply: %w", err)
	}
	if fired == "msg:"+wire.TypeResumeFailure {
		return ErrResumeFailed
	}

	s.mu.Lock()
	s.resumeToken = ""
	s.suspended = false
	s.ready = true
	s.state = StateReady
	runCtx := s.runCtx
	s.mu.Unlock()

	// The pending queue survived the disconnect; flush it now.
	s.tr.StartWriter(runCtx)
	slog.Info("session resumed")
	s.bus.Trigger(runCtx, EventResumed, nil)
	return nil
}

func (s *Session) becomeReady() {
	s.mu.Lock()
	if s.ready {
		s.mu.Unlock()
		return
	}
	s.ready = true
	s.state = StateReady
	runCtx := s.runCtx
	s.mu.Unlock()

	s.tr.StartWriter(runCtx)
	slog.Info("session ready")
	s.bus.Trigger(runCtx, EventReady, nil)
}

func (s *Session) onPing(ctx context.Context, _ any) error {
	slog.Debug("got ping, replying with pong")
	return s.tr.SendNow(ctx, wire.Pong())
}

func (s *Session) onSuspend(ctx context.Context, data any) error {
	msg, ok := data.(wire.Message)
	if !ok {
		return fmt.Errorf("suspend: unexpected payload %T", data)
	}
	var p wire.SuspendPayload
	if err := msg.DecodeData(&p); err != nil {
		return err
	}

	s.mu.Lock()
	s.resumeToken = p.Token
	s.suspended = true
	s.state = StateSuspended
	s.mu.Unlock()

	// Writer only: the queue keeps buffering until resume flushes it.
	s.tr.StopWriter()
	slog.Warn("session suspended by server")
	return nil
}

func (s *Session) onChannelJoined(ctx context.Context, data any) error {
	name, err := channelName(data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.loginLeft, name)
	s.joined[name] = struct{}{}
	joining := s.state == StateJoining && len(s.loginLeft) == 0
	ready := s.ready
	s.mu.Unlock()

	if ready {
		slog.Info("joined channel", "channel", name)
	} else {
		slog.Debug("joined channel", "channel", name)
	}
	if joining {
		s.becomeReady()
	}
	return nil
}

func (s *Session) onChannelAdded(ctx context.Context, data any) error {
	name, err := channelName(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	_, already := s.joined[name]
	ready := s.ready
	s.mu.Unlock()
	if already || !ready {
		return nil
	}
	slog.Info("new channel appeared, joining", "channel", name)
	return s.tr.SendNow(ctx, wire.JoinChannel(name))
}

func (s *Session) onChannelGone(ctx context.Context, data any) error {
	name, err := channelName(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.joined, name)
	s.mu.Unlock()
	slog.Debug("left channel", "channel", name)
	return nil
}

func channelName(data any) (string, error) {
	msg, ok := data.(wire.Message)
	if !ok {
		return "", fmt.Errorf("channel event: unexpected payload %T", data)
	}
	var p wire.ChannelPayload
	if err := msg.DecodeData(&p); err != nil {
		return "", err
	}
	return p.Name, nil
}

// Ready reports whether the join-all sequence has completed.
func (s *Session) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Suspended reports whether the server issued a resume token that has not
// been redeemed yet.
func (s *Session) Suspended() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suspended
}

// JoinedChannels returns a snapshot of the joined channel set.
func (s *Session) JoinedChannels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.joined))
	for n := range s.joined {
		out = append(out, n)
	}
	return out
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Session) resetLocked() {
	s.ready = false
	s.joined = make(map[string]struct{})
	s.loginLeft = make(map[string]struct{})
}

func waitStep(ctx context.Context, w *events.Waiter) (string, error) {
	sctx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()
	fired, err := w.Wait(sctx, events.WaitFirst)
	if err != nil {
		return "", err
	}
	return fired[0], nil
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
