package commands

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/pkg/osu"
)

// Middleware wraps a handler with one cross-cutting concern.
type Middleware func(next Handler) Handler

// buildPipeline composes the standard stack around a handler. The order is
// contract: error translation outermost, then privilege gating, then context
// filters, then argument binding.
func buildPipeline(h Handler, mask osu.Privileges, filters []Filter, specs []ArgSpec) Handler {
	h = Arguments(specs)(h)
	h = Filtered(filters...)(h)
	h = Protected(mask)(h)
	return Errors(specs)(h)
}

// Errors translates handler errors into user-visible replies. A SyntaxError
// becomes the command's syntax line, a user-facing error becomes its own
// message, a backend failure becomes a general API error line, and anything
// else, panics included, is logged and answered with a generic error. The
// sender always hears back; nothing propagates past this middleware.
func Errors(specs []ArgSpec) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, inv *Invocation) (out []string, err error) {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("command handler panicked",
						"command", inv.Command, "panic", r, "stack", string(debug.Stack()))
					out, err = []string{InternalErrorReply}, nil
				}
			}()
			out, err = next(ctx, inv)
			if err == nil {
				return out, nil
			}
			var synErr *SyntaxError
			if errors.As(err, &synErr) {
				return []string{syntaxLine(inv.Command, specs)}, nil
			}
			var uf userFacing
			if errors.As(err, &uf) {
				return []string{uf.UserMessage()}, nil
			}
			var fatalErr *api.FatalError
			if errors.As(err, &fatalErr) {
				slog.Error("command backend request failed", "command", inv.Command, "error", err)
				return []string{"General API error: " + fatalErr.Err.Error()}, nil
			}
			slog.Error("command handler failed", "command", inv.Command, "error", err)
			return []string{InternalErrorReply}, nil
		}
	}
}

// Protected refuses the invocation when the sender lacks any bit of mask.
func Protected(mask osu.Privileges) Middleware {
	return func(next Handler) Handler {
		if mask == osu.PrivilegeNone {
			return next
		}
		return func(ctx context.Context, inv *Invocation) ([]string, error) {
			if !inv.Sender.Privileges.Has(mask) {
				return []string{PrivilegeRefusal}, nil
			}
			return next(ctx, inv)
		}
	}
}

// Filtered drops the invocation silently when any filter rejects it.
func Filtered(filters ...Filter) Middleware {
	return func(next Handler) Handler {
		if len(filters) == 0 {
			return next
		}
		return func(ctx context.Context, inv *Invocation) ([]string, error) {
			for _, f := range filters {
				if !f(inv) {
					return nil, nil
				}
			}
			return next(ctx, inv)
		}
	}
}

// Arguments binds the raw tokens against the argument specs before the
// handler runs.
func Arguments(specs []ArgSpec) Middleware {
	return func(next Handler) Handler {
		if len(specs) == 0 {
			return func(ctx context.Context, inv *Invocation) ([]string, error) {
				inv.Args = map[string]any{}
				return next(ctx, inv)
			}
		}
		return func(ctx context.Context, inv *Invocation) ([]string, error) {
			args, err := Bind(specs, inv.RawArgs)
			if err != nil {
				return nil, err
			}
			inv.Args = args
			return next(ctx, inv)
		}
	}
}
