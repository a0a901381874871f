// Package friendship runs the friend-request lifecycle:
//
//	none -> pending -> accepted | rejected, rejected -> pending
//
// A pair has at most one request row; resending after a rejection reuses
// it. Operations on the same pair are serialized in process and guarded
// by a unique pair index in storage.
package friendship

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/config"
	"friendchat/backend/internal/events"
	"friendchat/backend/internal/keylock"
	"friendchat/backend/internal/logger"
	"friendchat/backend/internal/models"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Store interface {
	UserExists(ctx context.Context, id string) (bool, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	SearchUsers(ctx context.Context, viewerID, query string, limit int) ([]models.User, error)

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
}

type UnreadCounter interface {
	UnreadCounts(ctx context.Context, viewerID string, friendIDs []string) (map[string]int64, error)
}

type Service struct {
	store  Store
	unread UnreadCounter
	events events.Publisher
	locks  *keylock.Locker
	now    func() time.Time
}

func NewService(store Store, unread UnreadCounter, pub events.Publisher) *Service {
	return &Service{
		store:  store,
		unread: unread,
		events: pub,
		locks:  keylock.New(config.LockShards),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SendRequest opens a pending request from sender to receiver. A pair
// whose last request was rejected, or who unfriended, gets the same row
// back as pending in the new direction.
func (s *Service) SendRequest(ctx context.Context, senderID, receiverID string) (*models.FriendRequest, error) {
	if receiverID == "" {
		return nil, apperr.Validation("receiver_id is required")
	}
	if senderID == receiverID {
		return nil, apperr.ErrSelfRequest
	}

	exists, err := s.store.UserExists(ctx, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "check receiver")
	}
	if !exists {
		return nil, apperr.ErrNotFound
	}

	unlock := s.locks.Lock(keylock.PairKey(senderID, receiverID))
	defer unlock()

	friends, err := s.store.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "check friendship")
	}
	if friends {
		return nil, apperr.ErrAlreadyFriends
	}

	req, err := s.store.FindRequestBetween(ctx, senderID, receiverID)
	if err != nil {
		return nil, errors.Wrap(err, "load request")
	}

	switch {
	case req == nil:
		req = models.NewFriendRequest(senderID, receiverID)
		req.CreatedAt = s.now()
		if err := s.store.CreateFriendRequest(ctx, req); err != nil {
			return nil, errors.WithMessage(err, "create request")
		}
	case req.Status == models.RequestPending:
		return nil, apperr.ErrRequestAlreadyPending
	default:
		// rejected, or accepted by a pair that has since unfriended
		if err := s.store.ReopenFriendRequest(ctx, req, senderID, receiverID, s.now()); err != nil {
			return nil, errors.WithMessage(err, "reopen request")
		}
	}

	events.Emit(ctx, s.events, events.SubjectFriendRequested, events.FriendRequested{
		RequestID:  req.ID,
		SenderID:   senderID,
		ReceiverID: receiverID,
	})
	logger.Info("friend request sent", zap.Uint("request_id", req.ID), zap.String("sender_id", senderID), zap.String("receiver_id", receiverID))
	return req, nil
}

// AcceptRequest accepts a pending request addressed to receiverID and
// creates the friendship. Anything but a pending request is NotFound.
func (s *Service) AcceptRequest(ctx context.Context, requestID uint, receiverID string) (*models.FriendRequest, error) {
	req, err := s.store.AcceptFriendRequest(ctx, requestID, receiverID)
	if err != nil {
		return nil, errors.WithMessage(err, "accept request")
	}

	events.Emit(ctx, s.events, events.SubjectFriendAccepted, events.FriendAccepted{
		RequestID:  req.ID,
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
	})
	logger.Info("friend request accepted", zap.Uint("request_id", req.ID), zap.String("sender_id", req.SenderID), zap.String("receiver_id", req.ReceiverID))
	return req, nil
}

// RejectRequest rejects a pending request addressed to receiverID.
// Unknown or already settled requests are ignored.
func (s *Service) RejectRequest(ctx context.Context, requestID uint, receiverID string) error {
	changed, err := s.store.RejectFriendRequest(ctx, requestID, receiverID)
	if err != nil {
		return errors.WithMessage(err, "reject request")
	}
	if changed {
		logger.Info("friend request rejected", zap.Uint("request_id", requestID), zap.String("receiver_id", receiverID))
	}
	return nil
}

// RemoveFriendship ends the friendship of a and b, in either order.
// Request history is kept. Removing a missing friendship is not an error.
func (s *Service) RemoveFriendship(ctx context.Context, a, b string) error {
	unlock := s.locks.Lock(keylock.PairKey(a, b))
	defer unlock()

	removed, err := s.store.DeleteFriendship(ctx, a, b)
	if err != nil {
		return errors.WithMessage(err, "remove friendship")
	}
	if removed {
		logger.Info("friendship removed", zap.String("user_id", a), zap.String("friend_id", b))
	}
	return nil
}

func (s *Service) PendingRequests(ctx context.Context, receiverID string) ([]models.PendingRequest, error) {
	reqs, err := s.store.PendingRequests(ctx, receiverID)
	if err != nil {
		return nil, errors.WithMessage(err, "list pending requests")
	}
	if reqs == nil {
		reqs = []models.PendingRequest{}
	}
	return reqs, nil
}

// Friends lists the viewer's friends with presence and unread counts,
// online first.
func (s *Service) Friends(ctx context.Context, viewerID string) ([]models.FriendView, error) {
	ids, err := s.store.FriendIDs(ctx, viewerID)
	if err != nil {
		return nil, errors.WithMessage(err, "list friends")
	}
	out := make([]models.FriendView, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	users, err := s.store.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, errors.WithMessage(err, "load friends")
	}
	counts, err := s.unread.UnreadCounts(ctx, viewerID, ids)
	if err != nil {
		return nil, err
	}

	for _, u := range users {
		out = append(out, models.FriendView{Profile: u.Profile(), UnreadCount: counts[u.ID]})
	}
	models.SortFriendViews(out)
	return out, nil
}

// Search finds users by username or email and reports the relationship
// each one has with the viewer. Short queries return nothing.
func (s *Service) Search(ctx context.Context, viewerID, query string) ([]models.Candidate, error) {
	query = strings.TrimSpace(query)
	out := []models.Candidate{}
	if utf8.RuneCountInString(query) < config.SearchMinQueryLength {
		return out, nil
	}

	users, err := s.store.SearchUsers(ctx, viewerID, query, config.SearchResultLimit)
	if err != nil {
		return nil, errors.WithMessage(err, "search users")
	}
	if len(users) == 0 {
		return out, nil
	}

	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	friends, err := s.store.FriendsAmong(ctx, viewerID, ids)
	if err != nil {
		return nil, errors.WithMessage(err, "classify friends")
	}
	requests, err := s.store.RequestsForPairs(ctx, viewerID, ids)
	if err != nil {
		return nil, errors.WithMessage(err, "classify requests")
	}

	for _, u := range users {
		out = append(out, models.ClassifyCandidate(u.Profile(), viewerID, friends[u.ID], requests[u.ID]))
	}
	return out, nil
}
