package models

import (
	"strings"
	"time"
)

// MessageType is fixed when a message is created.
type MessageType string

const (
	MessageText     MessageType = "text"
	MessageImage    MessageType = "image"
	MessageVideo    MessageType = "video"
	MessageAudio    MessageType = "audio"
	MessageDocument MessageType = "document"
)

// ParseMessageType accepts the known message kinds only.
func ParseMessageType(s string) (MessageType, bool) {
	switch t := MessageType(strings.ToLower(strings.TrimSpace(s))); t {
	case MessageText, MessageImage, MessageVideo, MessageAudio, MessageDocument:
		return t, true
	}
	return "", false
}

// MessageTypeForMIME picks the message kind for an attachment.
func MessageTypeForMIME(mime string) MessageType {
	switch {
	case strings.HasPrefix(mime, "image/"):
		return MessageImage
	case strings.HasPrefix(mime, "video/"):
		return MessageVideo
	case strings.HasPrefix(mime, "audio/"):
		return MessageAudio
	default:
		return MessageDocument
	}
}

// Message is a durable chat message. Read only ever goes false -> true.
type Message struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	SenderID   string      `gorm:"size:36;not null;index:idx_message_pair,priority:1" json:"sender_id"`
	ReceiverID string      `gorm:"size:36;not null;index:idx_message_pair,priority:2;index:idx_message_unread,priority:1" json:"receiver_id"`
	Content    string      `gorm:"type:text" json:"content"`
	Type       MessageType `gorm:"size:16;not null;default:text" json:"message_type"`
	FileID     *uint       `json:"file_id,omitempty"`
	File       *File       `gorm:"foreignKey:FileID" json:"file,omitempty"`
	Read       bool        `gorm:"column:is_read;not null;default:false;index:idx_message_unread,priority:2" json:"is_read"`
	CreatedAt  time.Time   `gorm:"index" json:"created_at"`
}

// File is a reference to bytes held by the file store.
type File struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	StorageKey   string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	FileType     string    `gorm:"size:127" json:"file_type"`
	FileSize     int64     `json:"file_size"`
	UploadedBy   string    `gorm:"size:36;index" json:"uploaded_by"`
	CreatedAt    time.Time `json:"created_at"`
}

// Conversation tracks the last activity of a canonical pair.
type Conversation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	User1ID       string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair" json:"user1_id"`
	User2ID       string    `gorm:"size:36;not null;uniqueIndex:idx_conversation_pair;index" json:"user2_id"`
	LastMessageAt time.Time `gorm:"not null" json:"last_message_at"`
}

// ConversationView is a conversation list row for one viewer.
type ConversationView struct {
	ID            uint      `json:"id"`
	Partner       Profile   `json:"partner"`
	LastMessageAt time.Time `json:"last_message_at"`
	UnreadCount   int64     `json:"unread_count"`
}
