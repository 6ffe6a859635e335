// Package mod carries the chat moderation commands.
package mod

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/pkg/osu"
)

func init() {
	bot.RegisterPlugin("mod", Setup)
}

// silenceUnits maps the !silence time unit to its length.
var silenceUnits = map[string]time.Duration{
	"s": time.Second,
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// Setup registers the moderation commands.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name:       "moderated",
		Privileges: osu.PrivilegeAdminChatMod,
		Filters:    []commands.Filter{commands.PublicOnly},
		Args: []commands.ArgSpec{
			{Name: "on", Validator: commands.OneOf("on", "off"), Optional: true, Default: "on"},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			on := inv.String("on") == "on"
			if err := b.Bancho.Moderated(ctx, inv.Recipient.Name, on); err != nil {
				return nil, err
			}
			state := "disabled"
			if on {
				state = "enabled"
			}
			return []string{fmt.Sprintf("Moderated mode %s on %s", state, inv.Recipient.Name)}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "silence",
		Privileges: osu.PrivilegeAdminSilenceUsers,
		Args: []commands.ArgSpec{
			{Name: "username", Validator: commands.NonEmpty},
			{Name: "amount", Validator: commands.IntRange(1, 1<<31-1)},
			{Name: "unit", Validator: commands.OneOf("s", "m", "h", "d")},
			{Name: "reason", Validator: commands.NonEmpty, Rest: true},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			username := inv.String("username")
			userID, err := b.Ripple.WhatID(ctx, username)
			if errors.Is(err, api.ErrNotFound) {
				return []string{"No such user."}, nil
			}
			if err != nil {
				return nil, err
			}
			duration := time.Duration(inv.Int("amount")) * silenceUnits[inv.String("unit")]
			end := time.Now().Add(duration)
			if err := b.Ripple.Silence(ctx, userID, inv.String("reason"), end); err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("%s has been silenced for %s: %s",
				username, duration, inv.String("reason"))}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "ban",
		Privileges: osu.PrivilegeAdminBanUsers,
		Args: []commands.ArgSpec{
			{Name: "username", Validator: commands.NonEmpty},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return setAllowed(ctx, b, inv.String("username"), 0, "%s has been banned!")
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "unban",
		Privileges: osu.PrivilegeAdminBanUsers,
		Args: []commands.ArgSpec{
			{Name: "username", Validator: commands.NonEmpty},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return setAllowed(ctx, b, inv.String("username"), 1, "%s has been unbanned!")
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "kick",
		Privileges: osu.PrivilegeAdminKickUsers,
		Args: []commands.ArgSpec{
			{Name: "username", Validator: commands.NonEmpty},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			client, err := b.ResolveClient(ctx, inv.String("username"), false)
			if errors.Is(err, api.ErrNotFound) {
				return []string{"No such user."}, nil
			}
			if err != nil {
				return nil, err
			}
			if client == nil {
				return []string{"This user is not connected right now"}, nil
			}
			return nil, b.Bancho.Kick(ctx, client.APIIdentifier)
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "rtx",
		Privileges: osu.PrivilegeAdminManageUsers,
		Args: []commands.ArgSpec{
			{Name: "username", Validator: commands.NonEmpty},
			{Name: "message", Validator: commands.NonEmpty, Rest: true},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			client, err := b.ResolveClient(ctx, inv.String("username"), true)
			if errors.Is(err, api.ErrNotFound) {
				return []string{"No such user."}, nil
			}
			if err != nil {
				return nil, err
			}
			if client == nil {
				return []string{"This user is not connected right now"}, nil
			}
			return nil, b.Bancho.RTX(ctx, client.APIIdentifier, inv.String("message"))
		},
	})
	return nil
}

func setAllowed(ctx context.Context, b *bot.Bot, username string, allowed int, format string) ([]string, error) {
	userID, err := b.Ripple.WhatID(ctx, username)
	if errors.Is(err, api.ErrNotFound) {
		return []string{"No such user."}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := b.Ripple.SetAllowed(ctx, userID, allowed); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf(format, username)}, nil
}
