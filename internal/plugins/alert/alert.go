// Package alert sends in-game server announcements.
package alert

import (
	"context"
	"errors"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/pkg/osu"
)

func init() {
	bot.RegisterPlugin("alert", Setup)
}

// Setup registers the alert commands.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name:       "alert",
		Privileges: osu.PrivilegeAdminSendAlerts,
		Args: []commands.ArgSpec{
			{Name: "message", Validator: commands.NonEmpty, Rest: true},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return nil, b.Bancho.MassAlert(ctx, inv.String("message"))
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "alertuser",
		Privileges: osu.PrivilegeAdminSendAlerts,
		Args: []commands.ArgSpec{
			{Name: "target_username", Validator: commands.NonEmpty},
			{Name: "message", Validator: commands.NonEmpty, Rest: true},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			client, err := b.ResolveClient(ctx, inv.String("target_username"), true)
			if errors.Is(err, api.ErrNotFound) {
				return []string{"No such user."}, nil
			}
			if err != nil {
				return nil, err
			}
			if client == nil {
				return []string{"This user is not connected right now"}, nil
			}
			return nil, b.Bancho.Alert(ctx, client.APIIdentifier, inv.String("message"))
		},
	})
	return nil
}
