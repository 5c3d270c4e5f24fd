package storage

import (
	"gorm.io/gorm"

	"pingme/backend/internal/models"
)

// FindDirectRoom returns the room whose two members are exactly userA and
// userB, or a not-found error when no such room exists.
func (s *Service) FindDirectRoom(userA, userB string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.
		Joins("JOIN chat_room_members m1 ON m1.room_id = chat_rooms.id AND m1.user_id = ?", userA).
		Joins("JOIN chat_room_members m2 ON m2.room_id = chat_rooms.id AND m2.user_id = ?", userB).
		First(&room).Error
	if err != nil {
		return nil, wrapErr(err, "room")
	}
	return &room, nil
}

// CreateDirectRoom creates a room together with both membership rows in a
// single transaction. Partial creation is never observable: on any failure
// neither the room nor a membership exists.
func (s *Service) CreateDirectRoom(userA, userB string) (*models.ChatRoom, error) {
	room := &models.ChatRoom{}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		members := []models.ChatRoomMember{
			{RoomID: room.ID, UserID: userA},
			{RoomID: room.ID, UserID: userB},
		}
		return tx.Create(&members).Error
	})
	if err != nil {
		return nil, wrapErr(err, "room")
	}
	return room, nil
}

func (s *Service) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	if err := s.DB.First(&room, "id = ?", roomID).Error; err != nil {
		return nil, wrapErr(err, "room")
	}
	return &room, nil
}

// ListRoomsForUser returns every room the user is a member of, ordered by
// room creation time descending.
func (s *Service) ListRoomsForUser(userID string) ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.DB.
		Joins("JOIN chat_room_members m ON m.room_id = chat_rooms.id AND m.user_id = ?", userID).
		Order("chat_rooms.created_at desc").
		Find(&rooms).Error
	if err != nil {
		return nil, wrapErr(err, "rooms")
	}
	return rooms, nil
}

// RoomMemberIDs returns the user ids of the room's members.
func (s *Service) RoomMemberIDs(roomID string) ([]string, error) {
	var ids []string
	err := s.DB.Model(&models.ChatRoomMember{}).
		Where("room_id = ?", roomID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, wrapErr(err, "room members")
	}
	return ids, nil
}

// IsMember is an indexed existence check; it never materializes the
// membership row.
func (s *Service) IsMember(userID, roomID string) (bool, error) {
	var count int64
	err := s.DB.Model(&models.ChatRoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	if err != nil {
		return false, wrapErr(err, "membership")
	}
	return count > 0, nil
}
