package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChatRoom is a direct conversation between exactly two users.
// A room is created atomically together with both membership rows and is
// never deleted.
type ChatRoom struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate assigns a UUID if the ID is not set yet.
func (r *ChatRoom) BeforeCreate(tx *gorm.DB) (err error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return
}

// ChatRoomMember is the join record authorizing a user to read and write
// in a room. Unique per (room, user) pair; created once at room creation.
type ChatRoomMember struct {
	ID       uint      `gorm:"primaryKey" json:"-"`
	RoomID   string    `gorm:"not null;uniqueIndex:idx_room_user" json:"room_id"`
	UserID   string    `gorm:"not null;uniqueIndex:idx_room_user" json:"user_id"`
	JoinedAt time.Time `gorm:"autoCreateTime" json:"joined_at"`
}

// RoomView is a room as presented to one of its members: the counterpart
// identity and the most recent message, if any.
type RoomView struct {
	ID          string      `json:"id"`
	OtherUser   *PublicUser `json:"other_user,omitempty"`
	LastMessage *Message    `json:"last_message,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
