package commands

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"testing"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/pkg/osu"
	"github.com/osuripple/fokabot/pkg/wire"
)

func inv(message string, pm bool) *Invocation {
	return &Invocation{
		Sender:    wire.User{UserID: 1000, Username: "Someone"},
		Recipient: wire.Recipient{Name: "#osu"},
		PM:        pm,
		Message:   message,
	}
}

func echoHandler(reply string) Handler {
	return func(ctx context.Context, in *Invocation) ([]string, error) {
		return []string{reply}, nil
	}
}

func TestLiteralAndAliasResolveToSameHandler(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name:    "bloodcat",
		Aliases: []string{"beatconnect", "chimu", "q"},
		Handler: echoHandler("mirror"),
	})

	for _, msg := range []string{"!bloodcat", "!beatconnect", "!chimu", "!q"} {
		out, ok := r.Dispatch(context.Background(), inv(msg, false))
		if !ok {
			t.Fatalf("%q did not match", msg)
		}
		if len(out) != 1 || out[0] != "mirror" {
			t.Errorf("%q -> %v", msg, out)
		}
	}
}

func TestTrieLongestPrefixWins(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{Name: "mp", Handler: echoHandler("mp")})
	r.Register(&Command{Name: "mp make", Handler: echoHandler("mp make")})
	r.Register(&Command{
		Name: "system privcache purge",
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			if len(in.RawArgs) != 0 {
				t.Errorf("RawArgs = %v, want empty", in.RawArgs)
			}
			return []string{"purged"}, nil
		},
	})

	cases := []struct {
		msg  string
		want string
	}{
		{"!mp", "mp"},
		{"!mp make My Room", "mp make"},
		{"!mp invite someone", "mp"},
		{"!system privcache purge", "purged"},
	}
	for _, c := range cases {
		out, ok := r.Dispatch(context.Background(), inv(c.msg, false))
		if !ok {
			t.Fatalf("%q did not match", c.msg)
		}
		if out[0] != c.want {
			t.Errorf("%q -> %q, want %q", c.msg, out[0], c.want)
		}
	}
}

func TestCommandNameCaseInsensitiveArgsKeepCase(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name: "alertuser",
		Args: []ArgSpec{
			{Name: "username", Validator: NonEmpty},
			{Name: "message", Validator: NonEmpty, Rest: true},
		},
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			return []string{in.String("username") + "|" + in.String("message")}, nil
		},
	})

	out, ok := r.Dispatch(context.Background(), inv("!AlertUser FokaBot Hello There", false))
	if !ok {
		t.Fatal("did not match")
	}
	if out[0] != "FokaBot|Hello There" {
		t.Errorf("got %q", out[0])
	}
}

func TestMissingArgumentRendersSyntax(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name: "alertuser",
		Args: []ArgSpec{
			{Name: "username", Validator: NonEmpty},
			{Name: "the_message", Validator: NonEmpty, Rest: true},
		},
		Handler: echoHandler("sent"),
	})

	out, ok := r.Dispatch(context.Background(), inv("!alertuser", false))
	if !ok {
		t.Fatal("did not match")
	}
	want := "Syntax: !alertuser <username> <the_message>"
	if out[0] != want {
		t.Errorf("got %q, want %q", out[0], want)
	}
}

func TestSyntaxUsesInvokedAlias(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name:    "silence",
		Aliases: []string{"shut"},
		Args: []ArgSpec{
			{Name: "username", Validator: NonEmpty},
			{Name: "amount", Validator: Int},
		},
		Handler: echoHandler("ok"),
	})

	out, _ := r.Dispatch(context.Background(), inv("!shut", false))
	if want := "Syntax: !shut <username> <amount>"; out[0] != want {
		t.Errorf("got %q, want %q", out[0], want)
	}
}

func TestPrivilegeRefusalExactString(t *testing.T) {
	r := NewRegistry("!")
	called := false
	r.Register(&Command{
		Name:       "alert",
		Privileges: osu.PrivilegeAdminSendAlerts,
		Args:       []ArgSpec{{Name: "message", Validator: NonEmpty, Rest: true}},
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			called = true
			return nil, nil
		},
	})

	out, ok := r.Dispatch(context.Background(), inv("!alert hello", false))
	if !ok {
		t.Fatal("did not match")
	}
	if out[0] != "You don't have the required privileges to trigger this command." {
		t.Errorf("got %q", out[0])
	}
	if called {
		t.Error("handler ran despite missing privileges")
	}
}

func TestPrivilegeCheckPrecedesArgBinding(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name:       "alert",
		Privileges: osu.PrivilegeAdminSendAlerts,
		Args:       []ArgSpec{{Name: "message", Validator: NonEmpty, Rest: true}},
		Handler:    echoHandler("sent"),
	})

	// No args either: the refusal must win over the syntax line.
	out, _ := r.Dispatch(context.Background(), inv("!alert", false))
	if out[0] != PrivilegeRefusal {
		t.Errorf("got %q, want refusal", out[0])
	}
}

func TestFilterShortCircuitsSilently(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name:    "mp abort",
		Filters: []Filter{MultiplayerOnly},
		Handler: echoHandler("aborted"),
	})

	out, ok := r.Dispatch(context.Background(), inv("!mp abort", true))
	if !ok {
		t.Fatal("did not match")
	}
	if out != nil {
		t.Errorf("filtered command replied %v", out)
	}

	in := inv("!mp abort", false)
	in.Recipient.Name = "#multi_17"
	out, _ = r.Dispatch(context.Background(), in)
	if len(out) != 1 || out[0] != "aborted" {
		t.Errorf("got %v in a multi channel", out)
	}
}

func TestActionSentinelRouting(t *testing.T) {
	r := NewRegistry("!")
	r.RegisterAction(&Command{
		Name: "is listening to",
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			return []string{"np:" + in.RawArgs[0]}, nil
		},
	})

	out, ok := r.Dispatch(context.Background(), inv("\x01ACTION is listening to [https://osu.ppy.sh/b/123 x]\x01", true))
	if !ok {
		t.Fatal("action did not match")
	}
	if out[0] != "np:[https://osu.ppy.sh/b/123" {
		t.Errorf("got %q", out[0])
	}

	// The same body without the sentinel must not match.
	if _, ok := r.Dispatch(context.Background(), inv("is listening to x", true)); ok {
		t.Error("plain text matched an action command")
	}
}

func TestRegexPreGatesMatching(t *testing.T) {
	r := NewRegistry("!")
	r.RegisterRegex(&RegexCommand{
		Name:    "pick",
		Pattern: regexp.MustCompile(`^(NM|HD|HR|DT|FM|TB)(\d+)$`),
		Pre: func(recipient wire.Recipient, pm bool) bool {
			return !pm && recipient.Name == "#multi_1"
		},
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			return []string{in.Groups[1] + "/" + in.Groups[2]}, nil
		},
	})

	in := inv("HD2", false)
	in.Recipient.Name = "#multi_1"
	out, ok := r.Dispatch(context.Background(), in)
	if !ok {
		t.Fatal("regex did not match in its gated context")
	}
	if out[0] != "HD/2" {
		t.Errorf("got %q", out[0])
	}

	if _, ok := r.Dispatch(context.Background(), inv("HD2", false)); ok {
		t.Error("regex matched outside its gated context")
	}
}

func TestLiteralTakesPrecedenceOverRegex(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{Name: "roll", Handler: echoHandler("literal")})
	r.RegisterRegex(&RegexCommand{
		Name:    "anything",
		Pattern: regexp.MustCompile(`.*`),
		Handler: echoHandler("regex"),
	})

	out, _ := r.Dispatch(context.Background(), inv("!roll", false))
	if out[0] != "literal" {
		t.Errorf("got %q, want literal match", out[0])
	}
}

func TestUnknownCommandDoesNotMatch(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{Name: "roll", Handler: echoHandler("x")})
	if _, ok := r.Dispatch(context.Background(), inv("!nope", false)); ok {
		t.Error("unknown command matched")
	}
	if _, ok := r.Dispatch(context.Background(), inv("hello world", false)); ok {
		t.Error("plain chatter matched")
	}
}

func TestUserFacingErrorBecomesReply(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name: "last",
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			return nil, &BotError{Message: "You have no scores :("}
		},
	})
	out, _ := r.Dispatch(context.Background(), inv("!last", true))
	if out[0] != "You have no scores :(" {
		t.Errorf("got %q", out[0])
	}
}

func TestInternalErrorBecomesGenericReply(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name: "boom",
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			return nil, errors.New("backend exploded")
		},
	})
	out, ok := r.Dispatch(context.Background(), inv("!boom", false))
	if !ok {
		t.Fatal("did not match")
	}
	if len(out) != 1 || out[0] != InternalErrorReply {
		t.Errorf("got %v, want the generic error reply", out)
	}
}

func TestBackendFatalErrorBecomesAPIErrorReply(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name: "down",
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			return nil, fmt.Errorf("listing channels: %w",
				&api.FatalError{Err: errors.New("connection refused")})
		},
	})
	out, _ := r.Dispatch(context.Background(), inv("!down", false))
	if len(out) != 1 || out[0] != "General API error: connection refused" {
		t.Errorf("got %v", out)
	}
}

func TestPanickingHandlerBecomesGenericReply(t *testing.T) {
	r := NewRegistry("!")
	r.Register(&Command{
		Name: "kaboom",
		Handler: func(ctx context.Context, in *Invocation) ([]string, error) {
			panic("nil map write")
		},
	})
	out, ok := r.Dispatch(context.Background(), inv("!kaboom", false))
	if !ok {
		t.Fatal("did not match")
	}
	if len(out) != 1 || out[0] != InternalErrorReply {
		t.Errorf("got %v, want the generic error reply", out)
	}
}

func TestReplyTargetDerivation(t *testing.T) {
	pm := inv("!x", true)
	if got := pm.ReplyTarget(); got != "Someone" {
		t.Errorf("PM target = %q, want sender", got)
	}
	pub := inv("!x", false)
	if got := pub.ReplyTarget(); got != "#osu" {
		t.Errorf("channel target = %q, want #osu", got)
	}
}

func TestBind(t *testing.T) {
	specs := []ArgSpec{
		{Name: "map", Validator: Int},
		{Name: "mods", Validator: NonEmpty, Optional: true, Default: "NM"},
	}

	got, err := Bind(specs, []string{"123", "HDDT"})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]any{"map": 123, "mods": "HDDT"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}

	got, err = Bind(specs, []string{"123"})
	if err != nil {
		t.Fatal(err)
	}
	if got["mods"] != "NM" {
		t.Errorf("default not applied: %v", got)
	}

	if _, err := Bind(specs, nil); err == nil {
		t.Error("missing required arg accepted")
	}
	if _, err := Bind(specs, []string{"abc"}); err == nil {
		t.Error("non-numeric token accepted by Int")
	}
	if _, err := Bind(specs, []string{"1", "HD", "extra"}); err == nil {
		t.Error("excess token accepted")
	}
}

func TestBindRestCoalesces(t *testing.T) {
	specs := []ArgSpec{
		{Name: "username", Validator: NonEmpty},
		{Name: "message", Validator: NonEmpty, Rest: true},
	}
	got, err := Bind(specs, []string{"Foka", "you", "are", "silenced"})
	if err != nil {
		t.Fatal(err)
	}
	if got["message"] != "you are silenced" {
		t.Errorf("rest = %q", got["message"])
	}
}

func TestValidators(t *testing.T) {
	if _, err := IntRange(1, 100)("101"); err == nil {
		t.Error("IntRange accepted out-of-range value")
	}
	if v, err := IntRange(1, 100)("42"); err != nil || v != 42 {
		t.Errorf("IntRange(42) = %v, %v", v, err)
	}
	if v, err := OneOf("std", "taiko", "ctb", "mania")("TAIKO"); err != nil || v != "taiko" {
		t.Errorf("OneOf = %v, %v", v, err)
	}
	if _, err := OneOf("yes", "no")("maybe"); err == nil {
		t.Error("OneOf accepted an unlisted value")
	}
}

func TestRegisterPanicsOnInvariantViolations(t *testing.T) {
	expectPanic := func(name string, fn func()) {
		t.Helper()
		defer func() {
			if recover() == nil {
				t.Errorf("%s: no panic", name)
			}
		}()
		fn()
	}

	expectPanic("duplicate name", func() {
		r := NewRegistry("!")
		r.Register(&Command{Name: "roll", Handler: echoHandler("")})
		r.Register(&Command{Name: "roll", Handler: echoHandler("")})
	})
	expectPanic("required after optional", func() {
		r := NewRegistry("!")
		r.Register(&Command{Name: "x", Args: []ArgSpec{
			{Name: "a", Validator: NonEmpty, Optional: true},
			{Name: "b", Validator: NonEmpty},
		}, Handler: echoHandler("")})
	})
	expectPanic("rest not last", func() {
		r := NewRegistry("!")
		r.Register(&Command{Name: "y", Args: []ArgSpec{
			{Name: "a", Validator: NonEmpty, Rest: true},
			{Name: "b", Validator: NonEmpty},
		}, Handler: echoHandler("")})
	})
}
