// Package bot assembles the whole process: transport, session, command
// registry, API clients, caches, scheduler and the ingress surfaces. Plugins
// register themselves against it at startup.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/internal/config"
	"github.com/osuripple/fokabot/internal/events"
	"github.com/osuripple/fokabot/internal/faqstore"
	"github.com/osuripple/fokabot/internal/httpapi"
	"github.com/osuripple/fokabot/internal/npcache"
	"github.com/osuripple/fokabot/internal/privcache"
	"github.com/osuripple/fokabot/internal/redispubsub"
	"github.com/osuripple/fokabot/internal/scheduler"
	"github.com/osuripple/fokabot/internal/session"
	"github.com/osuripple/fokabot/internal/tournament"
	"github.com/osuripple/fokabot/internal/transport"
	"github.com/osuripple/fokabot/pkg/wire"
)

// Bot is the assembled process.
type Bot struct {
	Config    *config.Config
	Bus       *events.Bus
	Transport *transport.Client
	Session   *session.Session
	Registry  *commands.Registry

	Ripple      *api.RippleClient
	Bancho      *api.BanchoClient
	Lets        *api.LetsClient
	Cheesegull  *api.CheesegullClient
	Osu         *api.OsuClient
	Beatconnect *api.BeatconnectClient
	Misirlou    *api.MisirlouClient

	Redis     redis.UniversalClient
	NPCache   *npcache.Cache
	PrivCache *privcache.Cache
	FAQ       *faqstore.Store
	Scheduler *scheduler.Scheduler
	HTTP      *httpapi.Server
	Ingress   *redispubsub.Ingress
	Matches   *tournament.Registry
}

// New wires the process together and loads the configured plugins.
func New(cfg *config.Config) (*Bot, error) {
	b := &Bot{
		Config:    cfg,
		Bus:       events.New(),
		Registry:  commands.NewRegistry(cfg.CommandPrefix),
		Scheduler: scheduler.New(),
		Matches:   tournament.NewRegistry(),
	}

	b.Ripple = api.NewRipple(cfg.RippleAPI.Base, cfg.RippleAPI.Token, cfg.RippleAPI.Timeout)
	b.Bancho = api.NewBancho(cfg.BanchoAPI.Base, cfg.BanchoAPI.Token, cfg.BanchoAPI.Timeout)
	b.Lets = api.NewLets(cfg.LetsAPI.Base, cfg.LetsAPI.Timeout)
	b.Cheesegull = api.NewCheesegull(cfg.CheesegullAPI.Base, cfg.CheesegullAPI.Timeout)
	b.Osu = api.NewOsu(cfg.OsuAPI.Base, cfg.OsuAPI.Token, cfg.OsuAPI.Timeout)
	b.Beatconnect = api.NewBeatconnect(cfg.BeatconnectAPI.Base, cfg.BeatconnectAPI.Token, cfg.BeatconnectAPI.Timeout)
	b.Misirlou = api.NewMisirlou(cfg.MisirlouAPI.Base, cfg.MisirlouAPI.Token, cfg.MisirlouAPI.Timeout)

	b.Transport = transport.New(cfg.WSSURL, b.Bus, cfg.WriterQueueSize)
	b.Session = session.New(
		cfg.BotNickname, cfg.BotToken, cfg.ReconnectBackoff,
		b.Transport, b.Bus, b.publicChannels,
	)

	b.Redis = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b.NPCache = npcache.New(b.Redis)
	b.PrivCache = privcache.New(b.Ripple, privcache.DefaultTTL)

	faq, err := faqstore.Open(cfg.TinyDBPath)
	if err != nil {
		return nil, fmt.Errorf("bot: open faq store: %w", err)
	}
	b.FAQ = faq

	b.HTTP = httpapi.New(cfg.HTTP.Secret, cfg.HTTP.RateLimitRPS, b.SendMessage, b.lastScoreByID)
	b.Ingress = redispubsub.New(b.Redis)
	b.registerIngress()

	b.Bus.On("msg:"+wire.TypeChatMessage, b.onChatMessage)

	b.Scheduler.Every(10*time.Minute, "privcache_purge", func(ctx context.Context) error {
		if n := b.PrivCache.PurgeExpired(); n > 0 {
			slog.Debug("purged expired privilege entries", "count", n)
		}
		return nil
	})
	b.Scheduler.Cron("*/5 * * * *", "channel_refresh", b.refreshChannels)

	if err := b.loadPlugins(cfg.Plugins); err != nil {
		return nil, err
	}
	return b, nil
}

// publicChannels feeds the session's login join sequence.
func (b *Bot) publicChannels(ctx context.Context) ([]string, error) {
	channels, err := b.Bancho.GetAllChannels(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(channels))
	for _, c := range channels {
		names = append(names, c.Name)
	}
	return names, nil
}

// refreshChannels joins any public channel created after login.
func (b *Bot) refreshChannels(ctx context.Context) error {
	channels, err := b.publicChannels(ctx)
	if err != nil {
		return err
	}
	joined := make(map[string]struct{})
	for _, name := range b.Session.JoinedChannels() {
		joined[strings.ToLower(name)] = struct{}{}
	}
	for _, name := range channels {
		if _, ok := joined[strings.ToLower(name)]; ok {
			continue
		}
		slog.Info("joining new channel", "channel", name)
		if err := b.Transport.Send(wire.JoinChannel(name)); err != nil {
			return err
		}
	}
	return nil
}

// registerIngress binds the redis pub/sub channels other services publish on.
func (b *Bot) registerIngress() {
	type messageFrame struct {
		Recipient string `json:"recipient"`
		Message   string `json:"message"`
	}
	b.Ingress.Register("fokabot:message", redispubsub.JSON(
		func(f messageFrame) error {
			if f.Recipient == "" || f.Message == "" {
				return fmt.Errorf("recipient and message are required")
			}
			return nil
		},
		func(ctx context.Context, f messageFrame) error {
			return b.SendMessage(f.Message, f.Recipient)
		},
	))

	type joinFrame struct {
		Channel string `json:"channel"`
	}
	b.Ingress.Register("fokabot:join_channel", redispubsub.JSON(
		func(f joinFrame) error {
			if f.Channel == "" {
				return fmt.Errorf("channel is required")
			}
			return nil
		},
		func(ctx context.Context, f joinFrame) error {
			return b.Transport.Send(wire.JoinChannel(f.Channel))
		},
	))
}

// Run starts every long-running component and blocks until one fails or the
// context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	defer b.FAQ.Close()
	defer b.Redis.Close()

	if privs, err := b.Ripple.Ping(ctx); err != nil {
		slog.Warn("api token check failed", "error", err)
	} else {
		slog.Info("api token verified", "privileges", int64(privs))
	}

	g, ctx := errgroup.WithContext(ctx)

	b.Scheduler.Start(ctx)
	g.Go(func() error {
		b.Scheduler.Wait()
		return nil
	})
	g.Go(func() error {
		return b.Session.Run(ctx)
	})
	g.Go(func() error {
		return b.Ingress.Run(ctx)
	})
	g.Go(func() error {
		addr := fmt.Sprintf("%s:%d", b.Config.HTTP.Host, b.Config.HTTP.Port)
		return b.HTTP.Run(ctx, addr)
	})

	slog.Info("fokabot running", "nickname", b.Config.BotNickname)
	return g.Wait()
}
