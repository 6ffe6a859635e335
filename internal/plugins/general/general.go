// Package general carries the commands everyone can use.
package general

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
)

func init() {
	bot.RegisterPlugin("general", Setup)
}

// Setup registers the general commands.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name: "roll",
		Args: []commands.ArgSpec{
			{Name: "number", Validator: commands.IntRange(1, 1<<31-1), Optional: true, Default: 100},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			value := rand.Intn(inv.Int("number"))
			b.Bus.Trigger(ctx, bot.EventRoll, bot.RollEvent{
				UserID:   inv.Sender.UserID,
				Username: inv.Sender.Username,
				Value:    value,
				Channel:  inv.Recipient.Name,
				PM:       inv.PM,
			})
			return []string{fmt.Sprintf("%s rolls %d points!", inv.Sender.Username, value)}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name: "help",
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return []string{
				"Click (here)[https://ripple.moe/index.php?p=16&id=4] for FokaBot's full command list",
			}, nil
		},
	})
	return nil
}
