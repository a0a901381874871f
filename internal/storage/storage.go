package storage

import (
	"context"
	"time"

	"friendchat/backend/internal/config"
	"friendchat/backend/internal/models"

	"gorm.io/gorm"
)

// Storage is the durable side of the chat: accounts, relationships,
// messages and file references.
type Storage interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UserExists(ctx context.Context, id string) (bool, error)
	SearchUsers(ctx context.Context, viewerID, query string, limit int) ([]models.User, error)
	SetUserStatus(ctx context.Context, userID string, status models.PresenceStatus, lastSeen time.Time) error
	ResetPresence(ctx context.Context) (int64, error)

	AreFriends(ctx context.Context, a, b string) (bool, error)
	FriendIDs(ctx context.Context, userID string) ([]string, error)
	FriendsAmong(ctx context.Context, viewerID string, ids []string) (map[string]bool, error)
	DeleteFriendship(ctx context.Context, a, b string) (bool, error)

	FindRequestBetween(ctx context.Context, a, b string) (*models.FriendRequest, error)
	RequestsForPairs(ctx context.Context, viewerID string, others []string) (map[string]*models.FriendRequest, error)
	CreateFriendRequest(ctx context.Context, req *models.FriendRequest) error
	ReopenFriendRequest(ctx context.Context, req *models.FriendRequest, senderID, receiverID string, at time.Time) error
	AcceptFriendRequest(ctx context.Context, requestID uint, receiverID string) (*models.FriendRequest, error)
	RejectFriendRequest(ctx context.Context, requestID uint, receiverID string) (bool, error)
	PendingRequests(ctx context.Context, receiverID string) ([]models.PendingRequest, error)

	SaveMessage(ctx context.Context, msg *models.Message) error
	History(ctx context.Context, viewerID, otherID string) ([]models.Message, error)
	CountUnread(ctx context.Context, viewerID, fromID string) (int64, error)
	CountUnreadBySender(ctx context.Context, viewerID string, senders []string) (map[string]int64, error)
	MarkRead(ctx context.Context, viewerID, fromID string) (int64, error)
	Conversations(ctx context.Context, viewerID string) ([]models.Conversation, error)

	CreateFile(ctx context.Context, file *models.File) error
	GetFile(ctx context.Context, id uint) (*models.File, error)
}

var _ Storage = (*Service)(nil)

type Service struct {
	DB      *gorm.DB
	Timeout time.Duration
}

// NewStorageService Constructor. A zero timeout uses the default.
func NewStorageService(db *gorm.DB, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = config.DefaultStoreTimeout
	}
	return &Service{
		DB:      db,
		Timeout: timeout,
	}
}

// session bounds a store call by the configured timeout.
func (s *Service) session(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	return s.DB.WithContext(ctx), cancel
}
