package models

import (
	"sort"
	"time"
)

// RequestStatus is the state of a friend request row.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestAccepted RequestStatus = "accepted"
	RequestRejected RequestStatus = "rejected"
)

// FriendRequest holds the single request row of an unordered pair.
// UserLow/UserHigh carry the canonical pair so the unique index covers
// both directions; reject/resend cycles update this row in place.
type FriendRequest struct {
	ID         uint          `gorm:"primaryKey" json:"id"`
	SenderID   string        `gorm:"size:36;not null;index" json:"sender_id"`
	ReceiverID string        `gorm:"size:36;not null;index" json:"receiver_id"`
	UserLow    string        `gorm:"size:36;not null;uniqueIndex:idx_request_pair" json:"-"`
	UserHigh   string        `gorm:"size:36;not null;uniqueIndex:idx_request_pair" json:"-"`
	Status     RequestStatus `gorm:"size:16;not null;default:pending" json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// NewFriendRequest builds a pending request from sender to receiver.
func NewFriendRequest(senderID, receiverID string) *FriendRequest {
	lo, hi := CanonicalPair(senderID, receiverID)
	return &FriendRequest{
		SenderID:   senderID,
		ReceiverID: receiverID,
		UserLow:    lo,
		UserHigh:   hi,
		Status:     RequestPending,
	}
}

// Friendship is stored once per pair with User1ID < User2ID.
type Friendship struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	User1ID   string    `gorm:"size:36;not null;uniqueIndex:idx_friendship_pair" json:"user1_id"`
	User2ID   string    `gorm:"size:36;not null;uniqueIndex:idx_friendship_pair;index" json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
}

// NewFriendship returns the canonical row for the pair.
func NewFriendship(a, b string) *Friendship {
	lo, hi := CanonicalPair(a, b)
	return &Friendship{User1ID: lo, User2ID: hi}
}

// Other returns the member of the pair that is not userID.
func (f Friendship) Other(userID string) string {
	if f.User1ID == userID {
		return f.User2ID
	}
	return f.User1ID
}

// CanonicalPair orders two user IDs so that lo < hi.
func CanonicalPair(a, b string) (lo, hi string) {
	if a < b {
		return a, b
	}
	return b, a
}

// PendingRequest is an incoming request joined with the sender's profile.
type PendingRequest struct {
	ID             uint      `json:"id"`
	SenderID       string    `json:"sender_id"`
	SenderUsername string    `json:"username"`
	SenderEmail    string    `json:"email"`
	SenderAvatar   string    `json:"avatar,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// FriendView is a friend list row.
type FriendView struct {
	Profile
	UnreadCount int64 `json:"unread_count"`
}

// SortFriendViews puts online friends first, then away, then offline,
// and within a status the most recently seen first.
func SortFriendViews(views []FriendView) {
	sort.SliceStable(views, func(i, j int) bool {
		ri, rj := views[i].Status.rank(), views[j].Status.rank()
		if ri != rj {
			return ri < rj
		}
		return views[i].LastSeen.After(views[j].LastSeen)
	})
}

// Candidate is a search result with the relationship seen from the searcher.
// Rejected requests are reported as absent.
type Candidate struct {
	Profile
	IsFriend              bool          `json:"is_friend"`
	SentRequestStatus     RequestStatus `json:"sent_request_status,omitempty"`
	ReceivedRequestStatus RequestStatus `json:"received_request_status,omitempty"`
}

// ClassifyCandidate derives the relationship fields of a search result
// from the friendship flag and the pair's request row (may be nil).
func ClassifyCandidate(p Profile, viewerID string, isFriend bool, req *FriendRequest) Candidate {
	c := Candidate{Profile: p, IsFriend: isFriend}
	if req == nil {
		return c
	}
	switch req.Status {
	case RequestRejected:
		return c
	case RequestAccepted:
		// an accepted row without a friendship belongs to an unfriended pair
		if !isFriend {
			return c
		}
	}
	if req.SenderID == viewerID {
		c.SentRequestStatus = req.Status
	} else {
		c.ReceivedRequestStatus = req.Status
	}
	return c
}
