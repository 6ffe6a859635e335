// Package config builds the process configuration. Everything can be set
// from the environment; an optional JSON5 file (FOKABOT_CONFIG) provides a
// base that env vars always override.
package config

import "time"

// Config is the root configuration for the bot.
type Config struct {
	Debug bool `json:"debug"`

	// Chat server
	WSSURL        string   `json:"wss_url"`
	BotNickname   string   `json:"bot_nickname"`
	BotToken      string   `json:"-"`
	CommandPrefix string   `json:"commands_prefix"`
	Plugins       []string `json:"bot_plugins"`

	// Backends
	RippleAPI      Backend `json:"ripple_api"`
	BanchoAPI      Backend `json:"bancho_api"`
	LetsAPI        Backend `json:"lets_api"`
	CheesegullAPI  Backend `json:"cheesegull_api"`
	OsuAPI         Backend `json:"osu_api"`
	BeatconnectAPI Backend `json:"beatconnect_api"`
	MisirlouAPI    Backend `json:"misirlou_api"`

	// Redis KV cache and pub/sub
	Redis RedisConfig `json:"redis"`

	// Internal HTTP API
	HTTP HTTPConfig `json:"http"`

	// FAQ document store
	TinyDBPath string `json:"tinydb_path"`

	// Transport tuning
	WriterQueueSize  int           `json:"writer_queue_size"`
	ReconnectBackoff time.Duration `json:"-"`
}

// Backend is the address and credentials of one HTTP backend.
type Backend struct {
	Base    string        `json:"base"`
	Token   string        `json:"-"` // secrets come from env only
	Timeout time.Duration `json:"-"`
}

// RedisConfig locates the shared key/value store.
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"-"`
	DB       int    `json:"db"`
}

// HTTPConfig configures the internal HTTP API listener.
type HTTPConfig struct {
	Host         string  `json:"host"`
	Port         int     `json:"port"`
	Secret       string  `json:"-"`
	RateLimitRPS float64 `json:"rate_limit_rps"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		WSSURL:        "wss://c.ripple.moe/api/v2/ws",
		BotNickname:   "FokaBot",
		CommandPrefix: "!",
		Plugins: []string{
			"general", "faq", "alert", "mod", "pp",
			"beatmaps", "multiplayer", "system", "tournament",
		},
		RippleAPI:      Backend{Base: "https://ripple.moe", Timeout: 5 * time.Second},
		BanchoAPI:      Backend{Base: "https://c.ripple.moe", Timeout: 5 * time.Second},
		LetsAPI:        Backend{Base: "https://lets.ripple.moe", Timeout: 5 * time.Second},
		CheesegullAPI:  Backend{Base: "https://storage.ripple.moe/api", Timeout: 5 * time.Second},
		OsuAPI:         Backend{Base: "https://osu.ppy.sh/api", Timeout: 5 * time.Second},
		BeatconnectAPI: Backend{Base: "https://beatconnect.io/api", Timeout: 5 * time.Second},
		MisirlouAPI:    Backend{Base: "https://misirlou.ripple.moe/api", Timeout: 5 * time.Second},
		Redis:          RedisConfig{Addr: "127.0.0.1:6379"},
		HTTP: HTTPConfig{
			Host:         "127.0.0.1",
			Port:         4334,
			RateLimitRPS: 5,
		},
		TinyDBPath:       ".db.json",
		WriterQueueSize:  1024,
		ReconnectBackoff: 5 * time.Second,
	}
}
