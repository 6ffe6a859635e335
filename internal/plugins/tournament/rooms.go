package tournament

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/osuripple/fokabot/internal/tournament"
	"github.com/osuripple/fokabot/pkg/osu"
	"github.com/osuripple/fokabot/pkg/wire"
)

// onUserJoined seats whoever entered a tracked room: players go to their
// team's half of the slots, staff go to the last free slot, everyone else
// is kicked.
func (r *referee) onUserJoined(ctx context.Context, data any) error {
	msg, ok := data.(wire.Message)
	if !ok {
		return fmt.Errorf("tournament: unexpected match_user_joined payload %T", data)
	}
	var p wire.MatchUserJoinedPayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return fmt.Errorf("tournament: decode match_user_joined: %w", err)
	}
	match, ok := r.bot.Matches.ByBancho(p.Match.ID)
	if !ok {
		return nil
	}

	isStaff := p.User.Privileges.Has(osu.PrivilegeUserTournamentStaff)
	verdict, team := match.UserJoined(p.User.UserID, p.User.Username, isStaff)
	switch verdict {
	case tournament.RejectedTeamFull:
		if err := r.bot.Bancho.MatchKick(ctx, match.BanchoID, p.User.APIIdentifier); err != nil {
			return err
		}
		r.send(
			"Your team is full, please ask one of your teammates "+
				"to leave the match if you want to play instead.",
			p.User.APIIdentifier,
		)
		return nil

	case tournament.RejectedIntruder:
		if err := r.bot.Bancho.MatchKick(ctx, match.BanchoID, p.User.APIIdentifier); err != nil {
			return err
		}
		return r.bot.Bancho.Alert(
			ctx, p.User.APIIdentifier,
			"This is a tournament match and you are not allowed to be in there.",
		)

	case tournament.JoinedStaff:
		// Last free slot, so staff don't mess up the tournament client view.
		for i := len(p.Match.Slots) - 1; i >= 0; i-- {
			if p.Match.Slots[i].Status.Has(osu.SlotOpen) {
				return r.bot.Bancho.MatchMoveUser(ctx, match.BanchoID, p.User.APIIdentifier, i)
			}
		}
		slog.Warn("no more free slots available in the tournament match?", "match_id", match.BanchoID)
		return nil

	default:
		if err := r.seatPlayer(ctx, match, team, &p); err != nil {
			return err
		}
		if err := r.bot.Bancho.Alert(
			ctx, p.User.APIIdentifier,
			fmt.Sprintf("@@@ %s @@@\n\n", match.Tournament.Name)+
				"Welcome to your tournament match!\nThe match will begin as soon as all the players show up. "+
				"Please be ready to start playing and don't go afk. The match is managed by an automated bot. "+
				"If you need any kind of assistance you can call a human referee with the command '!t humanref'.\n\n"+
				"Have fun and good luck!",
		); err != nil {
			return err
		}
		if match.Ready() && match.State() == tournament.StateRolling {
			r.announceRollCall(match)
		}
		return nil
	}
}

// seatPlayer moves a player to a free slot in their team's half (team A gets
// the first half, team B the second) and colours them.
func (r *referee) seatPlayer(ctx context.Context, match *tournament.Match, team *tournament.Team, p *wire.MatchUserJoinedPayload) error {
	current := -1
	for i, slot := range p.Match.Slots {
		if slot.User != nil && slot.User.APIIdentifier == p.User.APIIdentifier {
			current = i
			break
		}
	}

	first := match.Tournament.TeamSize * int(team.Side)
	target := -1
	for i := first; i < first+match.Tournament.TeamSize && i < len(p.Match.Slots); i++ {
		slot := p.Match.Slots[i]
		if slot.Status.Has(osu.SlotOpen) ||
			(slot.User != nil && slot.User.APIIdentifier == p.User.APIIdentifier) {
			target = i
			break
		}
	}
	if target >= 0 && target != current {
		if err := r.bot.Bancho.MatchMoveUser(ctx, match.BanchoID, p.User.APIIdentifier, target); err != nil {
			return err
		}
	}
	return r.bot.Bancho.SetTeam(ctx, match.BanchoID, p.User.APIIdentifier, team.Side.BanchoTeam())
}

// announceRollCall greets the full room and opens the roll phase. Sent once
// per match.
func (r *referee) announceRollCall(match *tournament.Match) {
	r.mu.Lock()
	if r.announced[match.BanchoID] {
		r.mu.Unlock()
		return
	}
	r.announced[match.BanchoID] = true
	r.mu.Unlock()

	channel := match.ChatChannel()
	for _, msg := range []string{
		fmt.Sprintf("Welcome to your %s tournament match! Please be ready to start playing and don't go afk.", match.Tournament.Name),
		"I am the referree bot and I will guide you through your match",
		"If you need any assistance with the match, you can call a human referree with the command '!t humanref'",
		"All players are present, we can now roll to determine who will pick their first ban.",
	} {
		r.send(msg, channel)
	}
	r.send(match.RollCallLine(), channel)
}

// onMatchUpdate tracks player departures and detects the end of a play.
func (r *referee) onMatchUpdate(ctx context.Context, data any) error {
	msg, ok := data.(wire.Message)
	if !ok {
		return fmt.Errorf("tournament: unexpected match_update payload %T", data)
	}
	var p wire.MatchUpdatePayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return fmt.Errorf("tournament: decode match_update: %w", err)
	}
	match, ok := r.bot.Matches.ByBancho(p.ID)
	if !ok {
		return nil
	}

	present := make(map[int]struct{}, len(p.Slots))
	for _, slot := range p.Slots {
		if slot.User != nil {
			present[slot.User.UserID] = struct{}{}
		}
	}
	departed, paused := match.SyncPresence(present)
	for _, name := range departed {
		r.send(fmt.Sprintf("%s has left the match.", name), match.ChatChannel())
	}
	if paused {
		r.send("The match is paused until all the players are back.", match.ChatChannel())
	}

	r.mu.Lock()
	wasPlaying := r.inProgress[p.ID]
	r.inProgress[p.ID] = p.InProgress
	r.mu.Unlock()
	if wasPlaying && !p.InProgress {
		r.mapFinished(match)
	}
	return nil
}

// mapFinished advances the protocol after a play ended.
func (r *referee) mapFinished(match *tournament.Match) {
	res, err := match.MapFinished()
	if err != nil {
		// A play ended outside the protocol (warmup, paused match).
		return
	}
	channel := match.ChatChannel()
	switch res {
	case tournament.NextPick:
		r.send("Onto the next pick!", channel)
		r.askBeatmap(match, match.Team(match.Turn()), "pick")
	case tournament.TiebreakerNext:
		tb := match.Tiebreaker()
		r.send(fmt.Sprintf("The map pool is exhausted! The tiebreaker will decide the match: %s.", tb.Name), channel)
	case tournament.MatchOver:
		r.send("The match is over! Thanks for playing.", channel)
		r.forget(match)
	}
}

// forget drops a finished match from tracking.
func (r *referee) forget(match *tournament.Match) {
	r.bot.Matches.Remove(match)
	r.mu.Lock()
	delete(r.announced, match.BanchoID)
	delete(r.inProgress, match.BanchoID)
	r.mu.Unlock()
}
