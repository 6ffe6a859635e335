package bot

import (
	"fmt"
	"log/slog"
	"sync"
)

// Version is the bot version, overridable at build time.
var Version = "2.0.0"

// Plugin wires one feature set (its commands, event handlers and scheduled
// tasks) onto an assembled bot.
type Plugin func(b *Bot) error

var (
	pluginsMu sync.Mutex
	pluginReg = map[string]Plugin{}
)

// RegisterPlugin makes a plugin selectable by name. Plugin packages call
// this from init; which ones actually load is decided by the configuration.
func RegisterPlugin(name string, p Plugin) {
	pluginsMu.Lock()
	defer pluginsMu.Unlock()
	if _, dup := pluginReg[name]; dup {
		panic("bot: plugin already registered: " + name)
	}
	pluginReg[name] = p
}

func (b *Bot) loadPlugins(names []string) error {
	pluginsMu.Lock()
	defer pluginsMu.Unlock()
	for _, name := range names {
		p, ok := pluginReg[name]
		if !ok {
			return fmt.Errorf("bot: unknown plugin %q", name)
		}
		if err := p(b); err != nil {
			return fmt.Errorf("bot: load plugin %s: %w", name, err)
		}
		slog.Info("loaded plugin", "name", name)
	}
	return nil
}
