package models

import "encoding/json"

// Event types pushed from server to client.
const (
	EventFriendStatus          = "friend-status"
	EventReceiveMessage        = "receive-message"
	EventMessageSent           = "message-sent"
	EventFriendRequestReceived = "friend-request-received"
	EventFriendRequestAccepted = "friend-request-accepted"
	EventUserTyping            = "user-typing"
	EventUserStopTyping        = "user-stop-typing"
	EventSessionReplaced       = "session-replaced"
	EventError                 = "error"
)

// Frame types sent from client to server.
const (
	FrameSendMessage = "send-message"
	FrameTyping      = "typing"
	FrameStopTyping  = "stop-typing"
	FrameSetStatus   = "set-status"
)

// Event is the envelope written to a websocket.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// Frame is the envelope read from a websocket. Data is decoded per Type.
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type PresencePayload struct {
	UserID string         `json:"user_id"`
	Status PresenceStatus `json:"status"`
}

type MessagePayload struct {
	Message   *Message `json:"message"`
	ClientRef string   `json:"client_ref,omitempty"`
}

type FriendRequestPayload struct {
	RequestID      uint   `json:"request_id"`
	SenderID       string `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
}

type FriendAcceptedPayload struct {
	RequestID uint   `json:"request_id"`
	UserID    string `json:"user_id"`
}

type TypingPayload struct {
	UserID string `json:"user_id"`
}

type ErrorPayload struct {
	Error string `json:"error"`
}

// SendMessageFrame is the payload of a send-message frame.
type SendMessageFrame struct {
	ReceiverID  string `json:"receiver_id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	FileID      *uint  `json:"file_id"`
	ClientRef   string `json:"client_ref"`
}

// TypingFrame is the payload of typing and stop-typing frames.
type TypingFrame struct {
	ReceiverID string `json:"receiver_id"`
}

type SetStatusFrame struct {
	Status PresenceStatus `json:"status"`
}

func PresenceEvent(userID string, status PresenceStatus) Event {
	return Event{Type: EventFriendStatus, Data: PresencePayload{UserID: userID, Status: status}}
}
