// Package redispubsub is the redis ingress: other platform services publish
// frames on fokabot:* channels to make the bot act (send a message, join a
// channel). Frames are JSON, validated per handler; bad frames are logged
// and dropped.
package redispubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Pattern is the channel pattern the ingress subscribes to.
const Pattern = "fokabot:*"

// HandlerFunc consumes one published frame.
type HandlerFunc func(ctx context.Context, payload []byte) error

// JSON adapts a typed handler: the frame is decoded into T and validated
// before fn runs. Decode or validation failures drop the frame.
func JSON[T any](validate func(T) error, fn func(ctx context.Context, data T) error) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var data T
		if err := json.Unmarshal(payload, &data); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
		if validate != nil {
			if err := validate(data); err != nil {
				return fmt.Errorf("schema: %w", err)
			}
		}
		return fn(ctx, data)
	}
}

// Ingress subscribes to the fokabot:* pattern and routes each frame to the
// handler registered for its exact channel name.
type Ingress struct {
	rdb      redis.UniversalClient
	handlers map[string]HandlerFunc
}

// New creates an ingress. Handlers register before Run.
func New(rdb redis.UniversalClient) *Ingress {
	return &Ingress{
		rdb:      rdb,
		handlers: make(map[string]HandlerFunc),
	}
}

// Register binds a channel name to a handler. Double registration is a
// programmer error.
func (i *Ingress) Register(channel string, h HandlerFunc) {
	if _, dup := i.handlers[channel]; dup {
		panic("redispubsub: handler already registered for " + channel)
	}
	i.handlers[channel] = h
	slog.Debug("registered pubsub handler", "channel", channel)
}

// Run subscribes and consumes until the context is cancelled.
func (i *Ingress) Run(ctx context.Context) error {
	sub := i.rdb.PSubscribe(ctx, Pattern)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redispubsub: subscribe %s: %w", Pattern, err)
	}
	slog.Info("listening on redis pubsub", "pattern", Pattern)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			i.dispatch(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

func (i *Ingress) dispatch(ctx context.Context, channel string, payload []byte) {
	h, ok := i.handlers[channel]
	if !ok {
		slog.Warn("pubsub frame for unregistered channel", "channel", channel)
		return
	}
	slog.Debug("pubsub frame", "channel", channel, "payload", string(payload))
	if err := h(ctx, payload); err != nil {
		slog.Error("pubsub handler failed", "channel", channel, "error", err)
	}
}
