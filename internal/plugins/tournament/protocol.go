package tournament

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/osuripple/fokabot/internal/bot"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/internal/tournament"
)

var (
	poolCodeRegex = regexp.MustCompile(`(?i)^(NM|HD|HR|DT|FM|TB)(\d+)$`)
	yesNoRegex    = regexp.MustCompile(`(?i)^(yes|no)$`)
)

// onRoll consumes the !roll results thrown on the bus and feeds them to the
// match whose channel they were rolled in.
func (r *referee) onRoll(ctx context.Context, data any) error {
	ev, ok := data.(bot.RollEvent)
	if !ok || ev.PM {
		return nil
	}
	match, ok := r.matchFor(ev.Channel)
	if !ok {
		return nil
	}

	out, err := match.RecordRoll(ev.UserID, ev.Value)
	if err != nil {
		switch {
		case errors.Is(err, tournament.ErrAlreadyRolled):
			r.send(fmt.Sprintf("%s, your team has already rolled.", ev.Username), ev.Channel)
		case errors.Is(err, tournament.ErrNotYourTurn):
			if msg, refused := r.captainRefusal(match, ev.UserID, ev.Username); refused {
				r.send(msg, ev.Channel)
			}
		}
		return nil
	}

	switch out.Kind {
	case tournament.RollStored:
		other := match.Team(out.Team.Side.Other())
		r.send(fmt.Sprintf("%s, please roll.", match.CaptainOrTeamName(other)), ev.Channel)
	case tournament.RollTie:
		r.send(fmt.Sprintf("The rolls are tied! %s, please roll again.", match.CaptainOrTeamName(out.Team)), ev.Channel)
	case tournament.RollComplete:
		r.send(fmt.Sprintf("%s won the roll!", match.CaptainOrTeamName(out.Winner)), ev.Channel)
		r.send("Please pick your first ban. Here's the pool:", ev.Channel)
		r.sendMapPool(match)
		r.askBeatmap(match, out.Winner, "ban")
	}
	return nil
}

func (r *referee) sendMapPool(match *tournament.Match) {
	channel := match.ChatChannel()
	for _, group := range match.Pool() {
		for _, b := range group {
			r.send(fmt.Sprintf("► %s: %s", b.Code(), b.Name), channel)
		}
	}
	tb := match.Tiebreaker()
	r.send(fmt.Sprintf("► %s: %s", tb.Code(), tb.Name), channel)
}

// askBeatmap prompts whoever may act for the team to name a pool code.
func (r *referee) askBeatmap(match *tournament.Match, team *tournament.Team, op string) {
	who := match.CaptainOrTeamMembers(team)
	if !match.CaptainPresent(team) {
		who += ", any of you"
	}
	r.send(fmt.Sprintf(
		"%s, please type one beatmap you want to %s (eg: NM1, HD2, etc). I will ask for confirmation.",
		who, op,
	), match.ChatChannel())
}

// captainRefusal explains a rejected action when it was rejected because the
// sender is not their team's captain. Wrong-turn rejections stay silent.
func (r *referee) captainRefusal(match *tournament.Match, userID int, username string) (string, bool) {
	team := match.UserTeam(userID)
	if team == nil || !match.CaptainPresent(team) || userID == team.Captain {
		return "", false
	}
	return fmt.Sprintf("%s, only the captain of your team can use this command.", username), true
}

// handlePoolCode stages a ban or a pick, depending on the phase.
func (r *referee) handlePoolCode(ctx context.Context, inv *commands.Invocation) ([]string, error) {
	match, ok := r.matchFor(inv.Recipient.Name)
	if !ok {
		return nil, nil
	}
	group := inv.Groups[1]
	index, err := strconv.Atoi(inv.Groups[2])
	if err != nil {
		return nil, nil
	}

	var (
		b  tournament.Beatmap
		op string
	)
	switch match.State() {
	case tournament.StateBanning:
		op = "ban"
		b, err = match.ProposeBan(inv.Sender.UserID, group, index)
	case tournament.StatePicking:
		op = "pick"
		b, err = match.ProposePick(inv.Sender.UserID, group, index)
	default:
		return nil, nil
	}

	code := strings.ToUpper(group) + strconv.Itoa(index)
	switch {
	case errors.Is(err, tournament.ErrUnknownBeatmap):
		return []string{fmt.Sprintf("There is no %s you can %s in this pool.", code, op)}, nil
	case errors.Is(err, tournament.ErrBeatmapTaken):
		return []string{fmt.Sprintf("%s has already been banned or picked.", code)}, nil
	case errors.Is(err, tournament.ErrNotYourTurn):
		if msg, refused := r.captainRefusal(match, inv.Sender.UserID, inv.Sender.Username); refused {
			return []string{msg}, nil
		}
		return nil, nil
	case err != nil:
		return nil, nil
	}
	return []string{fmt.Sprintf(
		"%s, you are about to %s %s: %s. Type 'yes' to confirm or 'no' to abort.",
		inv.Sender.Username, op, b.Code(), b.Name,
	)}, nil
}

// handleConfirm applies or drops the staged ban/pick.
func (r *referee) handleConfirm(ctx context.Context, inv *commands.Invocation) ([]string, error) {
	match, ok := r.matchFor(inv.Recipient.Name)
	if !ok {
		return nil, nil
	}
	accept := strings.EqualFold(inv.Groups[1], "yes")
	res, b, err := match.Confirm(inv.Sender.UserID, accept)
	switch {
	case errors.Is(err, tournament.ErrNotYourTurn):
		if msg, refused := r.captainRefusal(match, inv.Sender.UserID, inv.Sender.Username); refused {
			return []string{msg}, nil
		}
		return nil, nil
	case err != nil:
		return nil, nil
	}

	channel := match.ChatChannel()
	switch res {
	case tournament.Declined:
		op := "ban"
		if match.State() == tournament.StatePicking {
			op = "pick"
		}
		r.send(fmt.Sprintf("Okay, %s cancelled.", op), channel)
		r.askBeatmap(match, match.Team(match.Turn()), op)
	case tournament.BanCommitted:
		r.send(fmt.Sprintf("%s: %s has been banned.", b.Code(), b.Name), channel)
		r.askBeatmap(match, match.Team(match.Turn()), "ban")
	case tournament.BansComplete:
		r.send(fmt.Sprintf("%s: %s has been banned.", b.Code(), b.Name), channel)
		r.send("Bans are over! The roll loser picks first.", channel)
		r.askBeatmap(match, match.Team(match.Turn()), "pick")
	case tournament.PickCommitted:
		r.send(fmt.Sprintf(
			"%s: %s has been picked. The match will start once everyone is ready. Good luck!",
			b.Code(), b.Name,
		), channel)
	case tournament.TiebreakerForced:
		r.send(fmt.Sprintf("Every remaining map is banned! The tiebreaker will be played: %s.", b.Name), channel)
	}
	return nil, nil
}
