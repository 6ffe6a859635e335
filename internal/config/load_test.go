package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	// json5: comments and trailing commas allowed
	data := `{
		// local test config
		wss_url: "wss://file.example/ws",
		commands_prefix: ">",
	}`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("FOKABOT_CONFIG", path)
	t.Setenv("BOT_TOKEN", "tok")
	t.Setenv("COMMANDS_PREFIX", "!")
	t.Setenv("BOT_PLUGINS", "general, faq")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.WSSURL != "wss://file.example/ws" {
		t.Errorf("file value not applied: %q", cfg.WSSURL)
	}
	if cfg.CommandPrefix != "!" {
		t.Errorf("env did not override file: %q", cfg.CommandPrefix)
	}
	if len(cfg.Plugins) != 2 || cfg.Plugins[0] != "general" || cfg.Plugins[1] != "faq" {
		t.Errorf("plugin list = %v", cfg.Plugins)
	}
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("FOKABOT_CONFIG", "")
	t.Setenv("BOT_TOKEN", "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without BOT_TOKEN")
	}
}

func TestBackendEnvOverlay(t *testing.T) {
	t.Setenv("RIPPLE_API_BASE", "http://ripple.test")
	t.Setenv("RIPPLE_API_TOKEN", "secret")
	t.Setenv("RIPPLE_API_TIMEOUT", "10")

	cfg := Default()
	applyEnv(cfg)
	if cfg.RippleAPI.Base != "http://ripple.test" || cfg.RippleAPI.Token != "secret" {
		t.Errorf("backend overlay: %+v", cfg.RippleAPI)
	}
	if cfg.RippleAPI.Timeout != 10*time.Second {
		t.Errorf("timeout = %v", cfg.RippleAPI.Timeout)
	}
}
