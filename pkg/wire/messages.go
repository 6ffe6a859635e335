package wire

// Outbound frame types.
const (
	TypeAuth        = "auth"
	TypeResume      = "resume"
	TypeSubscribe   = "subscribe"
	TypeJoinChannel = "join_chat_channel"
	TypeChatMessage = "chat_message"
	TypePong        = "pong"
)

// Subscribable event streams.
const (
	EventChatChannels  = "chat_channels"
	EventMultiplayer   = "multiplayer"
	EventLobby         = "lobby"
	EventStatusUpdates = "status_updates"
)

// Auth builds the initial authentication frame.
func Auth(username, token string) Message {
	return Message{Type: TypeAuth, Data: mustData(map[string]string{
		"username": username,
		"token":    token,
	})}
}

// Resume presents a server-issued resume token to rejoin the previous
// session without replaying joins.
func Resume(token string) Message {
	return Message{Type: TypeResume, Data: mustData(map[string]string{"token": token})}
}

// Subscribe subscribes to a server event stream.
func Subscribe(event string) Message {
	return Message{Type: TypeSubscribe, Data: mustData(map[string]string{"event": event})}
}

// SubscribeMatch subscribes to updates for a single multiplayer match.
func SubscribeMatch(matchID int) Message {
	return Message{Type: TypeSubscribe, Data: mustData(map[string]any{
		"event": EventMultiplayer,
		"data":  map[string]int{"match_id": matchID},
	})}
}

// JoinChannel asks the server to join a chat channel.
func JoinChannel(name string) Message {
	return Message{Type: TypeJoinChannel, Data: mustData(map[string]string{"name": name})}
}

// ChatMessage builds an outbound chat message to a channel or user.
func ChatMessage(message, target string) Message {
	return Message{Type: TypeChatMessage, Data: mustData(map[string]string{
		"message": message,
		"target":  target,
	})}
}

// Pong replies to a server ping.
func Pong() Message {
	return Message{Type: TypePong, Data: mustData(struct{}{})}
}
