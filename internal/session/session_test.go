package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/osuripple/fokabot/internal/events"
	"github.com/osuripple/fokabot/internal/transport"
	"github.com/osuripple/fokabot/pkg/wire"
)

// fakeTransport records control traffic and the writer on/off state.
type fakeTransport struct {
	mu       sync.Mutex
	connects int
	sent     []wire.Message
	writerOn bool
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return nil
}

func (f *fakeTransport) SendNow(ctx context.Context, msg wire.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) StartWriter(ctx context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writerOn = true
}

func (f *fakeTransport) StopWriter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writerOn = false
}

func (f *fakeTransport) Close() {}

func (f *fakeTransport) frames() []wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]wire.Message(nil), f.sent...)
}

func (f *fakeTransport) framesOf(typ string) []wire.Message {
	var out []wire.Message
	for _, m := range f.frames() {
		if m.Type == typ {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) writerRunning() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.writerOn
}

func (f *fakeTransport) connectCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connects
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached")
}

func channelMsg(typ, name string) wire.Message {
	return wire.Message{
		Type: typ,
		Data: json.RawMessage(fmt.Sprintf(`{"name":%q}`, name)),
	}
}

func newTestSession(channels []string) (*Session, *fakeTransport, *events.Bus) {
	bus := events.New()
	tr := &fakeTransport{}
	s := New("FokaBot", "secret", 10*time.Millisecond, tr, bus, func(ctx context.Context) ([]string, error) {
		return channels, nil
	})
	return s, tr, bus
}

// driveLogin answers the server side of the login sequence up to READY.
func driveLogin(t *testing.T, tr *fakeTransport, bus *events.Bus, channels []string) {
	t.Helper()
	ctx := context.Background()

	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeAuth)) == 1 })
	bus.Trigger(ctx, "msg:"+wire.TypeAuthSuccess, nil)

	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeSubscribe)) == 1 })
	bus.Trigger(ctx, "msg:"+wire.TypeSubscribed, nil)

	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeJoinChannel)) == len(channels) })
	for _, c := range channels {
		bus.Trigger(ctx, "msg:"+wire.TypeChatChannelJoined, channelMsg(wire.TypeChatChannelJoined, c))
	}
}

func TestLoginSequenceReachesReady(t *testing.T) {
	channels := []string{"#osu", "#announce"}
	s, tr, bus := newTestSession(channels)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	readyW := bus.NewWaiter(EventReady)
	go s.Run(ctx)
	driveLogin(t, tr, bus, channels)

	wctx, wcancel := context.WithTimeout(ctx, 2*time.Second)
	defer wcancel()
	if _, err := readyW.Wait(wctx, events.WaitFirst); err != nil {
		t.Fatalf("no ready event: %v", err)
	}
	if !s.Ready() {
		t.Error("Ready() = false after join-all")
	}
	if s.State() != StateReady {
		t.Errorf("State() = %v, want StateReady", s.State())
	}
	waitFor(t, tr.writerRunning)
	if got := s.JoinedChannels(); len(got) != 2 {
		t.Errorf("JoinedChannels() = %v, want 2 entries", got)
	}
}

func TestWriterStaysOffBeforeReady(t *testing.T) {
	s, tr, bus := newTestSession([]string{"#osu"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeAuth)) == 1 })
	bus.Trigger(ctx, "msg:"+wire.TypeAuthSuccess, nil)
	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeSubscribe)) == 1 })

	if tr.writerRunning() {
		t.Error("writer started before join-all completed")
	}
}

func TestAuthFailureIsTerminal(t *testing.T) {
	s, tr, bus := newTestSession(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errC := make(chan error, 1)
	go func() { errC <- s.Run(ctx) }()

	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeAuth)) == 1 })
	bus.Trigger(ctx, "msg:"+wire.TypeAuthFailure, nil)

	select {
	case err := <-errC:
		if !errors.Is(err, ErrLoginFailed) {
			t.Errorf("Run() = %v, want ErrLoginFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on auth failure")
	}
}

func TestPingRepliesWithPong(t *testing.T) {
	channels := []string{"#osu"}
	s, tr, bus := newTestSession(channels)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	driveLogin(t, tr, bus, channels)

	bus.Trigger(ctx, "msg:"+wire.TypePing, wire.Message{Type: wire.TypePing, Data: json.RawMessage(`{}`)})
	waitFor(t, func() bool { return len(tr.framesOf(wire.TypePong)) == 1 })
}

func TestSuspendThenResumeFlushesWriter(t *testing.T) {
	channels := []string{"#osu"}
	s, tr, bus := newTestSession(channels)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	driveLogin(t, tr, bus, channels)
	waitFor(t, tr.writerRunning)

	// Server suspends us: writer stops, queue keeps buffering.
	bus.Trigger(ctx, "msg:"+wire.TypeSuspend, wire.Message{
		Type: wire.TypeSuspend,
		Data: json.RawMessage(`{"token":"resume-me"}`),
	})
	waitFor(t, func() bool { return !tr.writerRunning() && s.Suspended() })

	resumedW := bus.NewWaiter(EventResumed)
	bus.Trigger(ctx, transport.EventDisconnected, errors.New("gone"))

	// The reconnect attempt must present the resume token, not re-auth.
	waitFor(t, func() bool { return tr.connectCount() == 2 })
	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeResume)) == 1 })
	var p struct{ Token string }
	if err := tr.framesOf(wire.TypeResume)[0].DecodeData(&p); err != nil {
		t.Fatal(err)
	}
	if p.Token != "resume-me" {
		t.Errorf("resume token = %q, want %q", p.Token, "resume-me")
	}
	if got := tr.framesOf(wire.TypeAuth); len(got) != 1 {
		t.Errorf("re-authenticated during resume, auth frames = %d", len(got))
	}

	bus.Trigger(ctx, "msg:"+wire.TypeResumeSuccess, nil)
	wctx, wcancel := context.WithTimeout(ctx, 2*time.Second)
	defer wcancel()
	if _, err := resumedW.Wait(wctx, events.WaitFirst); err != nil {
		t.Fatalf("no resumed event: %v", err)
	}
	waitFor(t, tr.writerRunning)
	if s.Suspended() {
		t.Error("still suspended after resume_success")
	}
	if got := s.JoinedChannels(); len(got) != 1 {
		t.Errorf("joined set lost across resume: %v", got)
	}
}

func TestResumeFailureIsTerminal(t *testing.T) {
	channels := []string{"#osu"}
	s, tr, bus := newTestSession(channels)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errC := make(chan error, 1)
	go func() { errC <- s.Run(ctx) }()
	driveLogin(t, tr, bus, channels)

	bus.Trigger(ctx, "msg:"+wire.TypeSuspend, wire.Message{
		Type: wire.TypeSuspend,
		Data: json.RawMessage(`{"token":"stale"}`),
	})
	waitFor(t, s.Suspended)
	bus.Trigger(ctx, transport.EventDisconnected, errors.New("gone"))

	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeResume)) == 1 })
	bus.Trigger(ctx, "msg:"+wire.TypeResumeFailure, nil)

	select {
	case err := <-errC:
		if !errors.Is(err, ErrResumeFailed) {
			t.Errorf("Run() = %v, want ErrResumeFailed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return on resume failure")
	}
}

func TestPlainDisconnectReauthenticates(t *testing.T) {
	channels := []string{"#osu"}
	s, tr, bus := newTestSession(channels)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	driveLogin(t, tr, bus, channels)
	waitFor(t, tr.writerRunning)

	// Network drop without a suspend: full login again, joined set reset.
	bus.Trigger(ctx, transport.EventDisconnected, errors.New("gone"))
	waitFor(t, func() bool { return tr.connectCount() == 2 })
	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeAuth)) == 2 })
	if got := tr.framesOf(wire.TypeResume); len(got) != 0 {
		t.Errorf("resume attempted without a token, frames = %d", len(got))
	}
}

func TestChannelAddedJoinsWhenReady(t *testing.T) {
	channels := []string{"#osu"}
	s, tr, bus := newTestSession(channels)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go s.Run(ctx)
	driveLogin(t, tr, bus, channels)
	waitFor(t, s.Ready)

	bus.Trigger(ctx, "msg:"+wire.TypeChatChannelAdded, channelMsg(wire.TypeChatChannelAdded, "#newchan"))
	waitFor(t, func() bool { return len(tr.framesOf(wire.TypeJoinChannel)) == 2 })

	bus.Trigger(ctx, "msg:"+wire.TypeChatChannelJoined, channelMsg(wire.TypeChatChannelJoined, "#newchan"))
	waitFor(t, func() bool { return len(s.JoinedChannels()) == 2 })

	bus.Trigger(ctx, "msg:"+wire.TypeChatChannelRemoved, channelMsg(wire.TypeChatChannelRemoved, "#newchan"))
	waitFor(t, func() bool { return len(s.JoinedChannels()) == 1 })
}
