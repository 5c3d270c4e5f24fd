package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageStatus is the delivery state of a message. It only ever moves
// forward: SENT -> DELIVERED -> READ.
type MessageStatus string

const (
	StatusSent      MessageStatus = "SENT"
	StatusDelivered MessageStatus = "DELIVERED"
	StatusRead      MessageStatus = "READ"
)

// MaxMessageContentLen bounds the length of message content in characters.
const MaxMessageContentLen = 5000

// Message is one entry in a room's append-only log. CreatedAt is assigned
// server-side and is monotonically non-decreasing within a room so that
// newest-first pagination stays stable under concurrent senders. Seq is a
// per-room append counter, assigned in the same transaction as CreatedAt; it
// breaks timestamp ties in insertion order.
type Message struct {
	ID             string        `gorm:"primaryKey" json:"id"`
	RoomID         string        `gorm:"not null;index:idx_room_created,priority:1" json:"room_id"`
	SenderID       string        `gorm:"not null" json:"sender_id"`
	SenderUsername string        `gorm:"-" json:"sender_username,omitempty"`
	Content        string        `gorm:"type:text;not null" json:"content"`
	Status         MessageStatus `gorm:"not null;default:SENT" json:"status"`
	Seq            int64         `gorm:"not null;default:0" json:"-"`
	CreatedAt      time.Time     `gorm:"index:idx_room_created,priority:2" json:"created_at"`
}

// BeforeCreate assigns a UUID if the ID is not set yet.
func (m *Message) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}

// PageMeta describes one page of a paginated result, derived from the
// total row count.
type PageMeta struct {
	PageNumber    int   `json:"page_number"`
	PageSize      int   `json:"page_size"`
	TotalElements int64 `json:"total_elements"`
	TotalPages    int   `json:"total_pages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
	Empty         bool  `json:"empty"`
}

// MessagePage is one newest-first page of a room's history.
type MessagePage struct {
	Content []Message `json:"content"`
	PageMeta
}
