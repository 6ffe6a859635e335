// Package tournament drives automated tournament matches: it creates rooms
// for the pending matches scheduled in the tournament system, seats the
// players, and referees the roll/ban/pick protocol in the room chat.
package tournament

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/internal/tournament"
	"github.com/osuripple/fokabot/pkg/osu"
	"github.com/osuripple/fokabot/pkg/wire"
)

func init() {
	bot.RegisterPlugin("tournament", Setup)
}

// Pinned placeholder beatmap for freshly created rooms.
const (
	placeholderBeatmapID  = 2116202
	placeholderBeatmapMD5 = "06b536749d5a59536983854be90504ee"
)

type referee struct {
	bot *bot.Bot

	mu         sync.Mutex
	announced  map[int]bool // room ids whose roll phase was announced
	inProgress map[int]bool // room ids whose last update had a play running
}

// Setup registers the tournament commands, room event handlers and the roll
// bridge.
func Setup(b *bot.Bot) error {
	r := &referee{
		bot:        b,
		announced:  make(map[int]bool),
		inProgress: make(map[int]bool),
	}

	b.Registry.Register(&commands.Command{
		Name:       "t create",
		Privileges: osu.PrivilegeUserTournamentStaff,
		Handler:    r.handleCreate,
	})

	b.Registry.Register(&commands.Command{
		Name:    "t humanref",
		Filters: []commands.Filter{commands.MultiplayerOnly},
		Handler: func(ctx context.Context, inv *commands.Invocation) ([]string, error) {
			if _, ok := r.matchFor(inv.Recipient.Name); !ok {
				return nil, nil
			}
			return []string{"A human referee has been called and will be with you shortly. Please wait."}, nil
		},
	})

	b.Registry.RegisterRegex(&commands.RegexCommand{
		Name:    "tournament beatmap",
		Pattern: poolCodeRegex,
		Pre:     r.inTournamentChannel,
		Handler: r.handlePoolCode,
	})
	b.Registry.RegisterRegex(&commands.RegexCommand{
		Name:    "tournament confirm",
		Pattern: yesNoRegex,
		Pre:     r.inTournamentChannel,
		Handler: r.handleConfirm,
	})

	b.Bus.On(bot.EventRoll, r.onRoll)
	b.Bus.On("msg:"+wire.TypeMatchUserJoined, r.onUserJoined)
	b.Bus.On("msg:"+wire.TypeMatchUpdate, r.onMatchUpdate)
	return nil
}

// matchFor resolves a "#multi_<id>" channel name to its tracked match.
func (r *referee) matchFor(channel string) (*tournament.Match, bool) {
	id, err := strconv.Atoi(strings.TrimPrefix(channel, "#multi_"))
	if err != nil {
		return nil, false
	}
	return r.bot.Matches.ByBancho(id)
}

func (r *referee) inTournamentChannel(recipient wire.Recipient, pm bool) bool {
	if pm || !strings.HasPrefix(recipient.Name, "#multi_") {
		return false
	}
	_, ok := r.matchFor(recipient.Name)
	return ok
}

// handleCreate turns every pending tournament-system match into a room.
func (r *referee) handleCreate(ctx context.Context, inv *commands.Invocation) ([]string, error) {
	pending, err := r.bot.Misirlou.GetMatches(ctx)
	if err != nil {
		return nil, err
	}
	var created []int
	for _, pm := range pending {
		match, err := r.createMatch(ctx, pm)
		if err != nil {
			slog.Error("tournament match creation failed", "misirlou_id", pm.ID, "error", err)
			continue
		}
		if match != nil {
			created = append(created, match.BanchoID)
		}
	}

	verb := "es have"
	if len(created) == 1 {
		verb = " has"
	}
	ids := make([]string, len(created))
	for i, id := range created {
		ids[i] = strconv.Itoa(id)
	}
	return []string{fmt.Sprintf(
		"%d pending match%s been created (ids: [%s]).",
		len(created), verb, strings.Join(ids, ", "),
	)}, nil
}

// createMatch builds the room for one pending match and invites everyone who
// is online. A match already tracked yields (nil, nil).
func (r *referee) createMatch(ctx context.Context, pm api.MisirlouMatch) (*tournament.Match, error) {
	if r.bot.Matches.Tracked(pm.ID) {
		return nil, nil
	}
	password, err := tournament.GeneratePassword()
	if err != nil {
		return nil, err
	}
	match, err := tournament.FromAPI(pm, password)
	if err != nil {
		return nil, err
	}

	gameMode := match.Tournament.GameMode
	banchoID, err := r.bot.Bancho.CreateMatch(ctx, api.CreateMatchRequest{
		Name:     match.RoomName(),
		Password: password,
		// One extra slot for a human referee, just in case.
		Slots:    match.Tournament.TeamSize*2 + 1,
		GameMode: &gameMode,
		Beatmap: &api.MatchBeatmap{
			ID:       placeholderBeatmapID,
			MD5:      placeholderBeatmapMD5,
			SongName: match.Tournament.Name,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := r.bot.Bancho.EditMatch(ctx, banchoID, osu.TeamTypeTeamVS, osu.ScoringScoreV2); err != nil {
		return nil, err
	}
	if err := r.bot.Bancho.FreezeMatch(ctx, banchoID, true); err != nil {
		return nil, err
	}

	if !r.bot.Matches.Add(match) {
		return nil, nil
	}
	r.bot.Matches.Link(match, banchoID)
	r.invite(ctx, match)
	return match, nil
}

// invite PMs every roster member who is online in game.
func (r *referee) invite(ctx context.Context, match *tournament.Match) {
	members := append(
		append([]int(nil), match.TeamA.Members...),
		match.TeamB.Members...,
	)
	for _, member := range members {
		online, err := r.bot.Bancho.IsOnline(ctx, member, true)
		if err != nil || !online {
			continue
		}
		user, err := r.bot.Ripple.GetUser(ctx, member)
		if err != nil {
			slog.Error("invite lookup failed", "user_id", member, "error", err)
			continue
		}
		r.send(fmt.Sprintf(
			"Your match on tournament %s is ready! \"[osump://%d/%s Click here to join it]\"",
			match.Tournament.Name, match.BanchoID, match.Password,
		), user.Username)
	}
}

func (r *referee) send(message, target string) {
	if err := r.bot.SendMessage(message, target); err != nil {
		slog.Error("tournament message failed", "target", target, "error", err)
	}
}
