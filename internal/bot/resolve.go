package bot

import (
	"context"

	"github.com/osuripple/fokabot/internal/api"
)

// EventRoll is triggered on the bus for every !roll, so the tournament
// engine can consume rolls without owning the command.
const EventRoll = "roll"

// RollEvent is the payload of EventRoll.
type RollEvent struct {
	UserID   int
	Username string
	Value    int
	Channel  string
	PM       bool
}

// ResolveClient resolves a username to one of their connected clients.
// api.ErrNotFound means no such user; a nil client means they are offline.
func (b *Bot) ResolveClient(ctx context.Context, username string, gameOnly bool) (*api.ClientInfo, error) {
	userID, err := b.Ripple.WhatID(ctx, username)
	if err != nil {
		return nil, err
	}
	return b.Bancho.GetClient(ctx, userID, gameOnly)
}
