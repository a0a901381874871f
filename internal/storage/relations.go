package storage

import (
	"context"
	"errors"
	"time"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AreFriends checks the canonical friendship row, so argument order does not matter.
func (s *Service) AreFriends(ctx context.Context, a, b string) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	lo, hi := models.CanonicalPair(a, b)
	var count int64
	err := db.Model(&models.Friendship{}).
		Where("user1_id = ? AND user2_id = ?", lo, hi).
		Count(&count).Error
	if err != nil {
		return false, apperr.Unavailable(err)
	}
	return count > 0, nil
}

// FriendIDs returns the other member of every friendship of userID.
func (s *Service) FriendIDs(ctx context.Context, userID string) ([]string, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var rows []models.Friendship
	err := db.Where("user1_id = ? OR user2_id = ?", userID, userID).Find(&rows).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}

	ids := make([]string, 0, len(rows))
	for _, f := range rows {
		ids = append(ids, f.Other(userID))
	}
	return ids, nil
}

// FriendsAmong reports which of ids are friends of viewerID.
func (s *Service) FriendsAmong(ctx context.Context, viewerID string, ids []string) (map[string]bool, error) {
	out := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	db, cancel := s.session(ctx)
	defer cancel()

	var rows []models.Friendship
	err := db.
		Where("(user1_id = ? AND user2_id IN ?) OR (user2_id = ? AND user1_id IN ?)", viewerID, ids, viewerID, ids).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	for _, f := range rows {
		out[f.Other(viewerID)] = true
	}
	return out, nil
}

// DeleteFriendship removes the pair's friendship; false if there was none.
func (s *Service) DeleteFriendship(ctx context.Context, a, b string) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	lo, hi := models.CanonicalPair(a, b)
	res := db.Where("user1_id = ? AND user2_id = ?", lo, hi).Delete(&models.Friendship{})
	if res.Error != nil {
		return false, apperr.Unavailable(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// FindRequestBetween returns the pair's request row, or nil when the pair
// never had one.
func (s *Service) FindRequestBetween(ctx context.Context, a, b string) (*models.FriendRequest, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	lo, hi := models.CanonicalPair(a, b)
	var req models.FriendRequest
	err := db.Where("user_low = ? AND user_high = ?", lo, hi).First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return &req, nil
}

// RequestsForPairs loads the request rows between viewerID and each of
// others, keyed by the other user's ID.
func (s *Service) RequestsForPairs(ctx context.Context, viewerID string, others []string) (map[string]*models.FriendRequest, error) {
	out := make(map[string]*models.FriendRequest, len(others))
	if len(others) == 0 {
		return out, nil
	}
	db, cancel := s.session(ctx)
	defer cancel()

	var rows []models.FriendRequest
	err := db.
		Where("(sender_id = ? AND receiver_id IN ?) OR (receiver_id = ? AND sender_id IN ?)", viewerID, others, viewerID, others).
		Find(&rows).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	for i := range rows {
		other := rows[i].SenderID
		if other == viewerID {
			other = rows[i].ReceiverID
		}
		out[other] = &rows[i]
	}
	return out, nil
}

// CreateFriendRequest inserts the first request row of a pair. A concurrent
// insert for the same pair loses on the unique index.
func (s *Service) CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error {
	db, cancel := s.session(ctx)
	defer cancel()

	err := db.Create(req).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.ErrRequestAlreadyPending
	}
	return apperr.Unavailable(err)
}

// ReopenFriendRequest turns a settled row back into a pending request in
// the given direction. It only applies to rows that are not pending.
func (s *Service) ReopenFriendRequest(ctx context.Context, req *models.FriendRequest, senderID, receiverID string, at time.Time) error {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Model(&models.FriendRequest{}).
		Where("id = ? AND status <> ?", req.ID, models.RequestPending).
		Updates(map[string]interface{}{
			"sender_id":   senderID,
			"receiver_id": receiverID,
			"status":      models.RequestPending,
			"created_at":  at,
			"updated_at":  at,
		})
	if res.Error != nil {
		return apperr.Unavailable(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.ErrRequestAlreadyPending
	}

	req.SenderID = senderID
	req.ReceiverID = receiverID
	req.Status = models.RequestPending
	req.CreatedAt = at
	req.UpdatedAt = at
	return nil
}

// AcceptFriendRequest settles a pending request addressed to receiverID
// and creates the friendship in the same transaction.
func (s *Service) AcceptFriendRequest(ctx context.Context, requestID uint, receiverID string) (*models.FriendRequest, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var req models.FriendRequest
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("id = ? AND receiver_id = ? AND status = ?", requestID, receiverID, models.RequestPending).
			First(&req).Error
		if err != nil {
			return err
		}

		res := tx.Model(&models.FriendRequest{}).
			Where("id = ? AND status = ?", req.ID, models.RequestPending).
			Update("status", models.RequestAccepted)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		req.Status = models.RequestAccepted

		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(models.NewFriendship(req.SenderID, req.ReceiverID)).Error
	})
	if err != nil {
		return nil, apperr.FromStore(err)
	}
	return &req, nil
}

// RejectFriendRequest settles a pending request as rejected. It reports
// whether a row changed; a missing or settled request is not an error.
func (s *Service) RejectFriendRequest(ctx context.Context, requestID uint, receiverID string) (bool, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Model(&models.FriendRequest{}).
		Where("id = ? AND receiver_id = ? AND status = ?", requestID, receiverID, models.RequestPending).
		Update("status", models.RequestRejected)
	if res.Error != nil {
		return false, apperr.Unavailable(res.Error)
	}
	return res.RowsAffected > 0, nil
}

// PendingRequests lists incoming pending requests, newest first.
func (s *Service) PendingRequests(ctx context.Context, receiverID string) ([]models.PendingRequest, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var out []models.PendingRequest
	err := db.Table("friend_requests AS fr").
		Select("fr.id, fr.sender_id, u.username AS sender_username, u.email AS sender_email, u.avatar AS sender_avatar, fr.created_at").
		Joins("JOIN users u ON u.id = fr.sender_id").
		Where("fr.receiver_id = ? AND fr.status = ?", receiverID, models.RequestPending).
		Order("fr.created_at DESC").
		Scan(&out).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return out, nil
}
