// Package system carries the server administration commands.
package system

import (
	"context"
	"fmt"
	"time"

	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/pkg/osu"
)

func init() {
	bot.RegisterPlugin("system", Setup)
}

// Setup registers the !system commands.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name:       "system info",
		Privileges: osu.PrivilegeAdminManageServers,
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			info, err := b.Bancho.SystemInfo(ctx)
			if err != nil {
				return nil, err
			}
			return []string{
				fmt.Sprintf("Running delta v%s", info.DeltaVersion),
				fmt.Sprintf("Bancho Uptime: %s", time.Duration(info.UptimeSeconds)*time.Second),
				fmt.Sprintf("Running FokaBot v%s. Scores server: %s, v%s",
					bot.Version, info.ScoresServer.Type, info.ScoresServer.Version),
			}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "system restart",
		Privileges: osu.PrivilegeAdminManageServers,
		Args: []commands.ArgSpec{
			{Name: "instant", Validator: commands.OneOf("now", "instant"), Optional: true, Default: ""},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			started, err := b.Bancho.GracefulShutdown(ctx)
			if err != nil {
				return nil, err
			}
			if !started {
				return []string{"The server is already restarting"}, nil
			}
			return []string{"The server will be restarted soon"}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "system restart cancel",
		Privileges: osu.PrivilegeAdminManageServers,
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			cancelled, err := b.Bancho.CancelGracefulShutdown(ctx)
			if err != nil {
				return nil, err
			}
			if !cancelled {
				return []string{"No restart is in progress"}, nil
			}
			return []string{"The server restart has been cancelled"}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name:       "system privcache purge",
		Privileges: osu.PrivilegeAdminManageServers,
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			n := b.PrivCache.Purge()
			return []string{fmt.Sprintf("Purged %d cached privilege entries", n)}, nil
		},
	})
	return nil
}
