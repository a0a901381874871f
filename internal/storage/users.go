package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/models"

	"gorm.io/gorm"
)

// CreateUser inserts a new account. Username or email clashes are ErrConflict.
func (s *Service) CreateUser(ctx context.Context, user *models.User) error {
	db, cancel := s.session(ctx)
	defer cancel()

	err := db.Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrConflict
	}
	return apperr.FromStore(err)
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &user, nil
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var user models.User
	if err := db.Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &user, nil
}

func (s *Service) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	db, cancel := s.session(ctx)
	defer cancel()

	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Unavailable(err)
	}
	return users, nil
}

func (s *Service) UserExists(ctx context.Context, id string) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, apperr.Unavailable(err)
	}
	return count > 0, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchUsers matches username or email case-insensitively, excluding the viewer.
func (s *Service) SearchUsers(ctx context.Context, viewerID, query string, limit int) ([]models.User, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	pattern := "%" + likeEscaper.Replace(strings.ToLower(query)) + "%"
	var users []models.User
	err := db.
		Where("id <> ?", viewerID).
		Where(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\')`, pattern, pattern).
		Order("username ASC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return users, nil
}

// SetUserStatus writes the durable presence of one user.
func (s *Service) SetUserStatus(ctx context.Context, userID string, status models.PresenceStatus, lastSeen time.Time) error {
	db, cancel := s.session(ctx)
	defer cancel()

	err := db.Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"status":    status,
			"last_seen": lastSeen,
		}).Error
	return apperr.Unavailable(err)
}

// ResetPresence marks every user offline. Used at startup, when no
// session can be live.
func (s *Service) ResetPresence(ctx context.Context) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Model(&models.User{}).
		Where("status <> ?", models.StatusOffline).
		Update("status", models.StatusOffline)
	if res.Error != nil {
		return 0, apperr.Unavailable(res.Error)
	}
	return res.RowsAffected, nil
}
