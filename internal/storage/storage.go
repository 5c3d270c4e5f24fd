package storage

import (
	"errors"

	"gorm.io/gorm"

	"pingme/backend/internal/errs"
	"pingme/backend/internal/models"
)

// Store is the persistence contract the chat service depends on.
type Store interface {
	CreateUser(user *models.User) error
	GetUserByID(id string) (*models.User, error)
	GetUserByUsername(username string) (*models.User, error)
	SearchUsers(query, excludeUserID string) ([]models.User, error)

	FindDirectRoom(userA, userB string) (*models.ChatRoom, error)
	CreateDirectRoom(userA, userB string) (*models.ChatRoom, error)
	GetRoomByID(roomID string) (*models.ChatRoom, error)
	ListRoomsForUser(userID string) ([]models.ChatRoom, error)
	RoomMemberIDs(roomID string) ([]string, error)
	IsMember(userID, roomID string) (bool, error)

	AppendMessage(roomID, senderID, content string) (*models.Message, error)
	PageMessages(roomID string, page, size int) (*models.MessagePage, error)
	LastMessage(roomID string) (*models.Message, error)
	GetMessageByID(id string) (*models.Message, error)
	MarkMessageRead(id string) error
	MarkAllRead(roomID, readerID string) (int64, error)
	MarkDelivered(roomID, excludeSenderID string) (int64, error)
}

// Service is the GORM-backed Store implementation.
type Service struct {
	DB *gorm.DB
}

// NewService wraps db. The caller owns migrations and pooling.
func NewService(db *gorm.DB) *Service {
	return &Service{DB: db}
}

// Migrate creates or updates the four relations the system persists.
func (s *Service) Migrate() error {
	return s.DB.AutoMigrate(
		&models.User{},
		&models.ChatRoom{},
		&models.ChatRoomMember{},
		&models.Message{},
	)
}

// wrapErr translates GORM errors into the domain error kinds, keeping
// infra faults distinguishable from permanent rejections.
func wrapErr(err error, msg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NotFound(msg + " not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return errs.Conflict(msg + " already exists")
	default:
		return errs.Storage(msg+" storage failure", err)
	}
}
