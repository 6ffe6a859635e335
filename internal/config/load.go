package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/titanous/json5"
)

// Load builds the configuration: defaults, then the optional JSON5 file
// pointed at by FOKABOT_CONFIG, then environment variables on top. A .env
// file in the working directory is loaded first if present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := Default()

	if path := os.Getenv("FOKABOT_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnv(cfg)

	if cfg.BotToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	return cfg, nil
}

// applyEnv overlays environment variables onto cfg. Env always wins over
// file values.
func applyEnv(cfg *Config) {
	envBool(&cfg.Debug, "DEBUG")
	envString(&cfg.WSSURL, "WSS")
	envString(&cfg.BotNickname, "BOT_NICKNAME")
	envString(&cfg.BotToken, "BOT_TOKEN")
	envString(&cfg.CommandPrefix, "COMMANDS_PREFIX")
	if v := os.Getenv("BOT_PLUGINS"); v != "" {
		cfg.Plugins = splitList(v)
	}

	envBackend(&cfg.RippleAPI, "RIPPLE_API")
	envBackend(&cfg.BanchoAPI, "BANCHO_API")
	envBackend(&cfg.LetsAPI, "LETS_API")
	envBackend(&cfg.CheesegullAPI, "CHEESEGULL_API")
	envBackend(&cfg.OsuAPI, "OSU_API")
	envBackend(&cfg.BeatconnectAPI, "BEATCONNECT")
	envBackend(&cfg.MisirlouAPI, "MISIRLOU_API")

	envString(&cfg.Redis.Addr, "REDIS_ADDR")
	envString(&cfg.Redis.Password, "REDIS_PASSWORD")
	envInt(&cfg.Redis.DB, "REDIS_DB")

	envString(&cfg.HTTP.Host, "HTTP_HOST")
	envInt(&cfg.HTTP.Port, "HTTP_PORT")
	envString(&cfg.HTTP.Secret, "INTERNAL_API_SECRET")

	envString(&cfg.TinyDBPath, "TINYDB_PATH")
	envInt(&cfg.WriterQueueSize, "WRITER_QUEUE_SIZE")
}

func envBackend(b *Backend, prefix string) {
	envString(&b.Base, prefix+"_BASE")
	envString(&b.Token, prefix+"_TOKEN")
	if v := os.Getenv(prefix + "_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			b.Timeout = time.Duration(n) * time.Second
		}
	}
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v == "1" || strings.EqualFold(v, "true")
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
