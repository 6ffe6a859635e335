// Package faq serves canned answers from the document store. Reading is
// open to everyone; editing needs chat moderation privileges.
package faq

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/internal/faqstore"
	"github.com/osuripple/fokabot/pkg/osu"
)

func init() {
	bot.RegisterPlugin("faq", Setup)
}

// Setup registers the FAQ commands.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name: "faq",
		Args: []commands.ArgSpec{
			{Name: "topic", Validator: commands.NonEmpty},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			response, err := b.FAQ.Get(inv.String("topic"))
			if errors.Is(err, faqstore.ErrNoTopic) {
				return []string{"No such FAQ topic."}, nil
			}
			if err != nil {
				return nil, err
			}
			return []string{response}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "modfaq",
		Privileges: osu.PrivilegeAdminChatMod,
		Args: []commands.ArgSpec{
			{Name: "topic", Validator: commands.NonEmpty},
			{Name: "new_response", Validator: commands.NonEmpty, Rest: true},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			topic := inv.String("topic")
			if err := b.FAQ.Upsert(topic, inv.String("new_response")); err != nil {
				return nil, err
			}
			return []string{fmt.Sprintf("FAQ topic '%s' updated!", topic)}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name: "lsfaq",
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return []string{
				"Available FAQ topics: " + strings.Join(b.FAQ.Topics(), ", "),
			}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "delfaq",
		Privileges: osu.PrivilegeAdminChatMod,
		Args: []commands.ArgSpec{
			{Name: "topic", Validator: commands.NonEmpty},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			topic := inv.String("topic")
			if err := b.FAQ.Delete(topic); err != nil && !errors.Is(err, faqstore.ErrNoTopic) {
				return nil, err
			}
			return []string{fmt.Sprintf("FAQ topic '%s' deleted!", topic)}, nil
		},
	})
	return nil
}
