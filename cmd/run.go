package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/config"

	// Plugins register themselves on import; the configuration decides which
	// ones load.
	_ "github.com/osuripple/fokabot/internal/plugins/alert"
	_ "github.com/osuripple/fokabot/internal/plugins/beatmaps"
	_ "github.com/osuripple/fokabot/internal/plugins/faq"
	_ "github.com/osuripple/fokabot/internal/plugins/general"
	_ "github.com/osuripple/fokabot/internal/plugins/mod"
	_ "github.com/osuripple/fokabot/internal/plugins/multiplayer"
	_ "github.com/osuripple/fokabot/internal/plugins/pp"
	_ "github.com/osuripple/fokabot/internal/plugins/system"
	_ "github.com/osuripple/fokabot/internal/plugins/tournament"
)

func runBot() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(verbose || cfg.Debug)

	b, err := bot.New(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting fokabot", "version", bot.Version, "server", cfg.WSSURL)
	if err := b.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	slog.Info("fokabot stopped")
	return nil
}
