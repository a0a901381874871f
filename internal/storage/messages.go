package storage

import (
	"context"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// latestActivity keeps the later timestamp when concurrent sends race on
// the same conversation row. Valid in postgres and sqlite.
const latestActivity = "CASE WHEN excluded.last_message_at > conversations.last_message_at " +
	"THEN excluded.last_message_at ELSE conversations.last_message_at END"

// SaveMessage persists msg and upserts the pair's conversation in one
// transaction. Nothing is stored if either write fails.
func (s *Service) SaveMessage(ctx context.Context, msg *models.Message) error {
	db, cancel := s.session(ctx)
	defer cancel()

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(msg).Error; err != nil {
			return err
		}

		lo, hi := models.CanonicalPair(msg.SenderID, msg.ReceiverID)
		conv := models.Conversation{User1ID: lo, User2ID: hi, LastMessageAt: msg.CreatedAt}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"last_message_at": gorm.Expr(latestActivity)}),
		}).Create(&conv).Error
	})
	return apperr.Unavailable(err)
}

// History marks everything otherID sent to viewerID as read, then returns
// the pair's full history in send order with file metadata attached.
func (s *Service) History(ctx context.Context, viewerID, otherID string) ([]models.Message, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var msgs []models.Message
	err := db.Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("sender_id = ? AND receiver_id = ? AND is_read = ?", otherID, viewerID, false).
			Update("is_read", true).Error
		if err != nil {
			return err
		}

		return tx.Preload("File").
			Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)",
				viewerID, otherID, otherID, viewerID).
			Order("created_at ASC, id ASC").
			Find(&msgs).Error
	})
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return msgs, nil
}

// CountUnread counts unread messages fromID sent to viewerID.
func (s *Service) CountUnread(ctx context.Context, viewerID, fromID string) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var count int64
	err := db.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", fromID, viewerID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperr.Unavailable(err)
	}
	return count, nil
}

// CountUnreadBySender is CountUnread for many senders in one query.
// Senders with nothing unread are absent from the map.
func (s *Service) CountUnreadBySender(ctx context.Context, viewerID string, senders []string) (map[string]int64, error) {
	out := make(map[string]int64, len(senders))
	if len(senders) == 0 {
		return out, nil
	}
	db, cancel := s.session(ctx)
	defer cancel()

	var rows []struct {
		SenderID string
		Unread   int64
	}
	err := db.Model(&models.Message{}).
		Select("sender_id, COUNT(*) AS unread").
		Where("receiver_id = ? AND is_read = ? AND sender_id IN ?", viewerID, false, senders).
		Group("sender_id").
		Scan(&rows).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	for _, r := range rows {
		out[r.SenderID] = r.Unread
	}
	return out, nil
}

// MarkRead flips every unread message fromID sent to viewerID.
func (s *Service) MarkRead(ctx context.Context, viewerID, fromID string) (int64, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	res := db.Model(&models.Message{}).
		Where("sender_id = ? AND receiver_id = ? AND is_read = ?", fromID, viewerID, false).
		Update("is_read", true)
	if res.Error != nil {
		return 0, apperr.Unavailable(res.Error)
	}
	return res.RowsAffected, nil
}

// Conversations lists the viewer's conversations, most recent first.
func (s *Service) Conversations(ctx context.Context, viewerID string) ([]models.Conversation, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var convs []models.Conversation
	err := db.Where("user1_id = ? OR user2_id = ?", viewerID, viewerID).
		Order("last_message_at DESC").
		Find(&convs).Error
	if err != nil {
		return nil, apperr.Unavailable(err)
	}
	return convs, nil
}

func (s *Service) CreateFile(ctx context.Context, file *models.File) error {
	db, cancel := s.session(ctx)
	defer cancel()

	return apperr.Unavailable(db.Create(file).Error)
}

func (s *Service) GetFile(ctx context.Context, id uint) (*models.File, error) {
	db, cancel := s.session(ctx)
	defer cancel()

	var file models.File
	if err := db.First(&file, id).Error; err != nil {
		return nil, apperr.FromStore(err)
	}
	return &file, nil
}
