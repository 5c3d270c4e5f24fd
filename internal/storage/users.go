package storage

import "pingme/backend/internal/models"

// CreateUser inserts a new user. Duplicate username or email surfaces as
// a conflict, not a storage fault.
func (s *Service) CreateUser(user *models.User) error {
	return wrapErr(s.DB.Create(user).Error, "user")
}

func (s *Service) GetUserByID(id string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "id = ?", id).Error; err != nil {
		return nil, wrapErr(err, "user")
	}
	return &user, nil
}

func (s *Service) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.DB.First(&user, "username = ?", username).Error; err != nil {
		return nil, wrapErr(err, "user")
	}
	return &user, nil
}

// SearchUsers finds users whose username contains query, case-insensitive,
// excluding excludeUserID (the requester never matches themselves).
func (s *Service) SearchUsers(query, excludeUserID string) ([]models.User, error) {
	var users []models.User
	err := s.DB.
		Where("LOWER(username) LIKE LOWER(?)", "%"+query+"%").
		Where("id <> ?", excludeUserID).
		Order("username asc").
		Find(&users).Error
	if err != nil {
		return nil, wrapErr(err, "user search")
	}
	return users, nil
}
