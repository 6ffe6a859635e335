// Package multiplayer carries the room management commands for tournament
// staff.
package multiplayer

import (
	"context"
	"fmt"
	"strings"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/pkg/osu"
)

func init() {
	bot.RegisterPlugin("multiplayer", Setup)
}

// Setup registers the !mp commands.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name:       "mp make",
		Privileges: osu.PrivilegeUserTournamentStaff,
		Args: []commands.ArgSpec{
			{Name: "name", Validator: commands.NonEmpty},
			{Name: "password", Validator: commands.NonEmpty, Optional: true, Default: ""},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			matchID, err := b.Bancho.CreateMatch(ctx, api.CreateMatchRequest{
				Name:     inv.String("name"),
				Password: inv.String("password"),
				// The room needs some beatmap to exist; the host picks the
				// real one.
				Beatmap: &api.MatchBeatmap{
					ID:       0,
					MD5:      strings.Repeat("a", 32),
					SongName: "No song",
				},
			})
			if err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("Multiplayer match #%d created!", matchID)}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "mp join",
		Privileges: osu.PrivilegeUserTournamentStaff,
		Args: []commands.ArgSpec{
			{Name: "match_id", Validator: commands.Int},
			{Name: "password", Validator: commands.NonEmpty, Optional: true, Default: ""},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return nil, b.Bancho.JoinMatch(
				ctx,
				inv.Sender.APIIdentifier,
				inv.Int("match_id"),
				inv.String("password"),
			)
		},
	})
	return nil
}
