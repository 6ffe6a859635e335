package wire

import "github.com/osuripple/fokabot/pkg/osu"

// Inbound frame types the bot handles.
const (
	TypeAuthSuccess        = "auth_success"
	TypeAuthFailure        = "auth_failure"
	TypeSubscribed         = "subscribed"
	TypeChatChannelAdded   = "chat_channel_added"
	TypeChatChannelJoined  = "chat_channel_joined"
	TypeChatChannelRemoved = "chat_channel_removed"
	TypeChatChannelLeft    = "chat_channel_left"
	TypePing               = "ping"
	TypeSuspend            = "suspend"
	TypeResumeSuccess      = "resume_success"
	TypeResumeFailure      = "resume_failure"
	TypeStatusUpdate       = "status_update"
	TypeLobbyMatchAdded    = "lobby_match_added"
	TypeLobbyMatchRemoved  = "lobby_match_removed"
	TypeMatchUpdate        = "match_update"
	TypeMatchUserJoined    = "match_user_joined"
)

// User is the sender descriptor attached to chat messages and match events.
type User struct {
	UserID        int            `json:"user_id"`
	Username      string         `json:"username"`
	APIIdentifier string         `json:"api_identifier"`
	Type          osu.ClientType `json:"type"`
	Privileges    osu.Privileges `json:"privileges"`
}

// Recipient describes where a chat message was delivered.
type Recipient struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind,omitempty"`
}

// ChatMessagePayload is the data of an inbound chat_message frame.
type ChatMessagePayload struct {
	Sender    User      `json:"sender"`
	Recipient Recipient `json:"recipient"`
	PM        bool      `json:"pm"`
	Message   string    `json:"message"`
}

// ChannelPayload carries a channel name (added/joined/removed/left frames).
type ChannelPayload struct {
	Name string `json:"name"`
}

// SuspendPayload carries the opaque resume token issued before the server
// drops the connection.
type SuspendPayload struct {
	Token string `json:"token"`
}

// LobbyMatchPayload carries a match id (lobby_match_added/removed frames).
type LobbyMatchPayload struct {
	ID int `json:"id"`
}

// MatchSlot is one slot of a multiplayer match in a match_update frame.
type MatchSlot struct {
	Status osu.SlotStatus `json:"status"`
	Team   osu.Team       `json:"team"`
	User   *User          `json:"user"`
}

// MatchBeatmap is the beatmap currently set in a match.
type MatchBeatmap struct {
	ID   int    `json:"id"`
	MD5  string `json:"md5"`
	Name string `json:"name"`
}

// MatchUpdatePayload is the data of a match_update frame.
type MatchUpdatePayload struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	InProgress bool         `json:"in_progress"`
	Beatmap    MatchBeatmap `json:"beatmap"`
	Slots      []MatchSlot  `json:"slots"`
}

// MatchUserJoinedPayload is the data of a match_user_joined frame.
type MatchUserJoinedPayload struct {
	Match MatchUpdatePayload `json:"match"`
	User  User               `json:"user"`
}
