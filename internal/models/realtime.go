package models

import "encoding/json"

// Client event types accepted over the live channel.
const (
	EventChatSend    = "chat.send"
	EventChatTyping  = "chat.typing"
	EventChatRead    = "chat.read"
	EventSubscribe   = "subscribe"
	EventUnsubscribe = "unsubscribe"
)

// Server event types pushed to live connections.
const (
	EventMessage = "message"
	EventTyping  = "typing"
	EventRead    = "read"
	EventError   = "error"
)

// ClientEvent is the inbound frame a connected client sends over the
// live channel. Fields beyond Type/RoomID are event-specific.
type ClientEvent struct {
	Type      string `json:"type"`
	RoomID    string `json:"room_id,omitempty"`
	Content   string `json:"content,omitempty"`
	MessageID string `json:"message_id,omitempty"` // chat.read: empty means mark all
	IsTyping  bool   `json:"is_typing,omitempty"`
}

// ServerEvent is the outbound frame delivered to live connections and the
// unit published on the broker. Payload holds the event-specific body.
type ServerEvent struct {
	Type    string          `json:"type"`
	RoomID  string          `json:"room_id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewServerEvent marshals payload into a ServerEvent envelope.
func NewServerEvent(eventType, roomID string, payload any) (ServerEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ServerEvent{}, err
	}
	return ServerEvent{Type: eventType, RoomID: roomID, Payload: raw}, nil
}

// TypingEvent is broadcast to a room topic while a member types.
// It is ephemeral: never persisted, never re-sent.
type TypingEvent struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsTyping bool   `json:"is_typing"`
}

// ReadReceipt tells a room topic who marked what as read. An empty
// MessageID means every qualifying message in the room.
type ReadReceipt struct {
	RoomID    string `json:"room_id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id,omitempty"`
}

// ErrorEvent is sent only to the connection whose inbound event failed.
type ErrorEvent struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}
