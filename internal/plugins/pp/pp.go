// Package pp answers performance-point questions: the last score line, the
// /np now-playing probe and its !with / !acc / !mode follow-ups.
package pp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/internal/npcache"
	"github.com/osuripple/fokabot/pkg/osu"
)

func init() {
	bot.RegisterPlugin("pp", Setup)
}

// npRegex parses the /np action message the game client sends: beatmap link,
// optional game mode tag, mod list, optional mania key count and the
// optional ~Relax~ marker some clients append.
var npRegex = regexp.MustCompile(
	`^\x01ACTION is ` +
		`(?:(?:playing)|(?:listening to)|(?:watching)) ` +
		`\[https://osu\.ppy\.sh/(b|s)/(\d+) (.+)\]` +
		`(?: <(.+)>)?` +
		`((?: (?:\+|\-)\w+)*)` +
		`(?: \|\w+\|)?` +
		`(?: ~\w+~)?` +
		`\x01$`,
)

// npGameModes maps the /np mode tag to a game mode. Untagged means standard.
var npGameModes = map[string]osu.GameMode{
	"CatchTheBeat": osu.ModeCatchTheBeat,
	"Taiko":        osu.ModeTaiko,
	"osu!mania":    osu.ModeMania,
}

const noContextReply = "Please give me a beatmap first with /np command."

// Setup registers the pp commands and the /np action handler.
func Setup(b *bot.Bot) error {
	b.Registry.Register(&commands.Command{
		Name: "last",
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			line, err := b.LastScoreLine(ctx, inv.Sender.Username, !inv.PM)
			if err != nil {
				return nil, err
			}
			return []string{line}, nil
		},
	})

	b.Registry.Register(&commands.Command{
		Name: "best",
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			scores, err := b.Ripple.BestScores(ctx, inv.Sender.Username)
			if err != nil {
				return nil, err
			}
			if len(scores) == 0 {
				return []string{"You have no scores :("}, nil
			}
			return []string{bot.FormatScore(inv.Sender.Username, scores[0], !inv.PM)}, nil
		},
	})

	np := &commands.Command{
		Name:    "is playing",
		Aliases: []string{"is listening to", "is watching"},
		Filters: []commands.Filter{commands.PrivateOnly},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return handleNP(ctx, b, inv)
		},
	}
	b.Registry.RegisterAction(np)

	b.Registry.Register(&commands.Command{
		Name:    "with",
		Filters: []commands.Filter{commands.PrivateOnly},
		Args: []commands.ArgSpec{
			{Name: "mods", Validator: commands.NonEmpty},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			return followUp(ctx, b, inv, func(info *npcache.Info) {
				info.Mods = osu.ParseAcronyms(inv.String("mods"))
			})
		},
	})

	b.Registry.Register(&commands.Command{
		Name:    "acc",
		Filters: []commands.Filter{commands.PrivateOnly},
		Args: []commands.ArgSpec{
			{Name: "accuracy", Validator: accuracyValidator},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			acc, _ := inv.Args["accuracy"].(float64)
			return followUp(ctx, b, inv, func(info *npcache.Info) {
				info.Accuracy = acc
			})
		},
	})

	b.Registry.Register(&commands.Command{
		Name:    "mode",
		Filters: []commands.Filter{commands.PrivateOnly},
		Args: []commands.ArgSpec{
			{Name: "mode", Validator: commands.OneOf("std", "taiko", "ctb", "mania")},
		},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			mode := osu.ParseGameMode(inv.String("mode"))
			return followUp(ctx, b, inv, func(info *npcache.Info) {
				info.GameMode = mode
			})
		},
	})
	return nil
}

// accuracyValidator accepts a percentage between 0 and 100.
func accuracyValidator(raw string) (any, error) {
	acc, err := strconv.ParseFloat(raw, 64)
	if err != nil || acc < 0 || acc > 100 {
		return nil, fmt.Errorf("%q is not a valid accuracy", raw)
	}
	return acc, nil
}

func handleNP(ctx context.Context, b *bot.Bot, inv *commands.Invocation) ([]string, error) {
	m := npRegex.FindStringSubmatch(inv.Message)
	if m == nil {
		slog.Warn("/np message did not match", "message", inv.Message)
		return nil, nil
	}
	if m[1] == "s" {
		// Set links only show up for maps predating per-difficulty links.
		return []string{"The map is too old"}, nil
	}
	beatmapID, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("pp: beatmap id %q: %w", m[2], err)
	}

	mode, ok := npGameModes[m[4]]
	if !ok {
		mode = osu.ModeStandard
	}
	var mods osu.Mod
	for _, word := range strings.Fields(m[5]) {
		mods |= osu.ParseNamedMod(strings.TrimLeft(word, "+-"))
	}

	info := npcache.Info{
		BeatmapID: beatmapID,
		GameMode:  mode,
		Mods:      mods,
		Accuracy:  -1,
	}
	if err := b.NPCache.Set(ctx, inv.Sender.APIIdentifier, info); err != nil {
		slog.Error("storing /np context failed", "error", err)
	}
	return ppReply(ctx, b, info)
}

// followUp recomputes pp from the cached /np context after mutating it.
func followUp(ctx context.Context, b *bot.Bot, inv *commands.Invocation, mutate func(*npcache.Info)) ([]string, error) {
	info, err := b.NPCache.Update(ctx, inv.Sender.APIIdentifier, mutate)
	if errors.Is(err, npcache.ErrNoContext) {
		return []string{noContextReply}, nil
	}
	if err != nil {
		return nil, err
	}
	return ppReply(ctx, b, info)
}

func ppReply(ctx context.Context, b *bot.Bot, info npcache.Info) ([]string, error) {
	resp, err := b.Lets.GetPP(ctx, info.BeatmapID, info.GameMode, info.Mods, info.Accuracy)
	var respErr *api.ResponseError
	if errors.As(err, &respErr) {
		return []string{"Error: " + respErr.Message}, nil
	}
	if err != nil {
		return nil, err
	}
	return []string{resp.String()}, nil
}
