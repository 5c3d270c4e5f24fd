package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"pingme/backend/internal/models"
)

// MaxPageSize is the hard cap on requested page sizes.
const MaxPageSize = 100

// AppendMessage durably appends a message with status SENT. The timestamp
// and the room's append counter are assigned inside the transaction: the
// timestamp never precedes the newest existing one in the room, and the
// counter breaks timestamp ties in insertion order at read time.
func (s *Service) AppendMessage(roomID, senderID, content string) (*models.Message, error) {
	msg := &models.Message{
		RoomID:   roomID,
		SenderID: senderID,
		Content:  content,
		Status:   models.StatusSent,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var newest models.Message
		err := tx.Where("room_id = ?", roomID).
			Order("created_at desc, seq desc").
			First(&newest).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		ts := time.Now()
		if err == nil && ts.Before(newest.CreatedAt) {
			ts = newest.CreatedAt
		}
		msg.CreatedAt = ts
		msg.Seq = newest.Seq + 1

		return tx.Create(msg).Error
	})
	if err != nil {
		return nil, wrapErr(err, "message")
	}
	return msg, nil
}

// PageMessages reads one newest-first page of a room's history. Page is
// zero-indexed; size is clamped to [1, MaxPageSize]; pages past the end
// come back empty rather than failing.
func (s *Service) PageMessages(roomID string, page, size int) (*models.MessagePage, error) {
	if page < 0 {
		page = 0
	}
	if size < 1 {
		size = 1
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	var total int64
	if err := s.DB.Model(&models.Message{}).Where("room_id = ?", roomID).Count(&total).Error; err != nil {
		return nil, wrapErr(err, "messages")
	}

	items := []models.Message{}
	err := s.DB.
		Where("room_id = ?", roomID).
		Order("created_at desc, seq desc").
		Limit(size).
		Offset(page * size).
		Find(&items).Error
	if err != nil {
		return nil, wrapErr(err, "messages")
	}

	totalPages := int((total + int64(size) - 1) / int64(size))
	return &models.MessagePage{
		Content: items,
		PageMeta: models.PageMeta{
			PageNumber:    page,
			PageSize:      size,
			TotalElements: total,
			TotalPages:    totalPages,
			First:         page == 0,
			Last:          page >= totalPages-1,
			Empty:         len(items) == 0,
		},
	}, nil
}

// LastMessage returns the newest message in the room, or nil when the room
// has no messages yet.
func (s *Service) LastMessage(roomID string) (*models.Message, error) {
	var msg models.Message
	err := s.DB.
		Where("room_id = ?", roomID).
		Order("created_at desc, seq desc").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr(err, "message")
	}
	return &msg, nil
}

func (s *Service) GetMessageByID(id string) (*models.Message, error) {
	var msg models.Message
	if err := s.DB.First(&msg, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err, "message")
	}
	return &msg, nil
}

// MarkMessageRead flips the message to READ. Forward-only and idempotent:
// an already-READ row is left untouched and the call still succeeds.
func (s *Service) MarkMessageRead(id string) error {
	err := s.DB.Model(&models.Message{}).
		Where("id = ? AND status <> ?", id, models.StatusRead).
		Update("status", models.StatusRead).Error
	return wrapErr(err, "message")
}

// MarkAllRead flips every message in the room not sent by readerID and not
// already READ, in one atomic bulk update. Returns the number of rows
// transitioned.
func (s *Service) MarkAllRead(roomID, readerID string) (int64, error) {
	res := s.DB.Model(&models.Message{}).
		Where("room_id = ? AND sender_id <> ? AND status <> ?", roomID, readerID, models.StatusRead).
		Update("status", models.StatusRead)
	if res.Error != nil {
		return 0, wrapErr(res.Error, "messages")
	}
	return res.RowsAffected, nil
}

// MarkDelivered advances SENT messages in the room to DELIVERED, excluding
// the given sender's own rows. READ rows never regress.
func (s *Service) MarkDelivered(roomID, excludeSenderID string) (int64, error) {
	res := s.DB.Model(&models.Message{}).
		Where("room_id = ? AND sender_id <> ? AND status = ?", roomID, excludeSenderID, models.StatusSent).
		Update("status", models.StatusDelivered)
	if res.Error != nil {
		return 0, wrapErr(res.Error, "messages")
	}
	return res.RowsAffected, nil
}
