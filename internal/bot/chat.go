package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/osuripple/fokabot/internal/api"
	"github.com/osuripple/fokabot/internal/commands"
	"github.com/osuripple/fokabot/pkg/osu"
	"github.com/osuripple/fokabot/pkg/wire"
)

// SendMessage is the single outbound chat path: everything the bot says
// goes through the pending queue, so nothing is lost across a suspend.
func (b *Bot) SendMessage(message, target string) error {
	return b.Transport.Send(wire.ChatMessage(message, target))
}

// onChatMessage feeds every inbound chat message through the command
// registry and sends the replies back where they belong.
func (b *Bot) onChatMessage(ctx context.Context, data any) error {
	msg, ok := data.(wire.Message)
	if !ok {
		return fmt.Errorf("bot: unexpected chat_message payload %T", data)
	}
	var p wire.ChatMessagePayload
	if err := json.Unmarshal(msg.Data, &p); err != nil {
		return fmt.Errorf("bot: decode chat_message: %w", err)
	}
	// Never answer ourselves.
	if strings.EqualFold(p.Sender.Username, b.Config.BotNickname) {
		return nil
	}

	// IRC clients do not carry privileges on the wire; fall back to the
	// cached API lookup so protected commands still work for them.
	if p.Sender.Privileges == 0 {
		if privs, err := b.PrivCache.Get(ctx, p.Sender.Username); err == nil {
			p.Sender.Privileges = privs
		}
	}

	inv := &commands.Invocation{
		Sender:    p.Sender,
		Recipient: p.Recipient,
		PM:        p.PM,
		Message:   p.Message,
	}
	replies, matched := b.Registry.Dispatch(ctx, inv)
	if !matched {
		return nil
	}
	for _, reply := range replies {
		if reply == "" {
			continue
		}
		if err := b.SendMessage(reply, inv.ReplyTarget()); err != nil {
			return err
		}
	}
	return nil
}

// LastScoreLine renders the user's most recent score. In public channels
// the line starts with the username.
func (b *Bot) LastScoreLine(ctx context.Context, username string, public bool) (string, error) {
	scores, err := b.Ripple.RecentScores(ctx, username)
	if err != nil {
		return "", err
	}
	if len(scores) == 0 {
		return "You have no scores :(", nil
	}
	return FormatScore(username, scores[0], public), nil
}

// lastScoreByID backs the internal API's last endpoint: resolve the user,
// render their last score for a PM.
func (b *Bot) lastScoreByID(ctx context.Context, userID int) (string, string, error) {
	user, err := b.Ripple.GetUser(ctx, userID)
	if err != nil {
		return "", "", err
	}
	line, err := b.LastScoreLine(ctx, user.Username, false)
	if err != nil {
		return "", "", err
	}
	return user.Username, line, nil
}

// FormatScore renders one score the way chat expects it.
func FormatScore(username string, s api.Score, public bool) string {
	var sb strings.Builder
	if public {
		fmt.Fprintf(&sb, "%s | ", username)
	}
	fmt.Fprintf(&sb, "[http://osu.ppy.sh/b/%d %s]", s.Beatmap.BeatmapID, s.Beatmap.SongName)
	fmt.Fprintf(&sb, " <%s>", s.PlayMode)
	if s.Mods != osu.ModNoMod {
		fmt.Fprintf(&sb, " +%s", s.Mods.Readable())
	}
	fmt.Fprintf(&sb, " (%.2f%%, %s)", s.Accuracy, s.Rank)
	if s.FullCombo {
		sb.WriteString(" (FC)")
	} else {
		fmt.Fprintf(&sb, " | %dx/%dx", s.MaxCombo, s.Beatmap.MaxCombo)
	}
	fmt.Fprintf(&sb, " | %.2fpp", s.PP)
	fmt.Fprintf(&sb, " | %.2f★", s.Difficulty())
	return sb.String()
}
