package models_test

import (
	"testing"
	"time"

	"friendchat/backend/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalPair(t *testing.T) {
	lo, hi := models.CanonicalPair("b", "a")
	assert.Equal(t, "a", lo)
	assert.Equal(t, "b", hi)

	lo2, hi2 := models.CanonicalPair("a", "b")
	assert.Equal(t, lo, lo2)
	assert.Equal(t, hi, hi2)
}

func TestNewFriendRequest_SetsPairKeysAndDirection(t *testing.T) {
	req := models.NewFriendRequest("zed", "amy")

	assert.Equal(t, "zed", req.SenderID)
	assert.Equal(t, "amy", req.ReceiverID)
	assert.Equal(t, "amy", req.UserLow)
	assert.Equal(t, "zed", req.UserHigh)
	assert.Equal(t, models.RequestPending, req.Status)
}

func TestFriendshipOther(t *testing.T) {
	f := models.NewFriendship("u2", "u1")

	assert.Equal(t, "u1", f.User1ID)
	assert.Equal(t, "u2", f.Other("u1"))
	assert.Equal(t, "u1", f.Other("u2"))
}

func TestClassifyCandidate(t *testing.T) {
	p := models.Profile{ID: "target"}

	tests := []struct {
		name         string
		isFriend     bool
		req          *models.FriendRequest
		wantSent     models.RequestStatus
		wantReceived models.RequestStatus
	}{
		{name: "no relationship"},
		{name: "outgoing pending", req: &models.FriendRequest{SenderID: "me", ReceiverID: "target", Status: models.RequestPending}, wantSent: models.RequestPending},
		{name: "incoming pending", req: &models.FriendRequest{SenderID: "target", ReceiverID: "me", Status: models.RequestPending}, wantReceived: models.RequestPending},
		{name: "rejected surfaces as none", req: &models.FriendRequest{SenderID: "me", ReceiverID: "target", Status: models.RequestRejected}},
		{name: "accepted friends", isFriend: true, req: &models.FriendRequest{SenderID: "target", ReceiverID: "me", Status: models.RequestAccepted}, wantReceived: models.RequestAccepted},
		{name: "accepted but unfriended", req: &models.FriendRequest{SenderID: "me", ReceiverID: "target", Status: models.RequestAccepted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := models.ClassifyCandidate(p, "me", tt.isFriend, tt.req)

			assert.Equal(t, tt.isFriend, c.IsFriend)
			assert.Equal(t, tt.wantSent, c.SentRequestStatus)
			assert.Equal(t, tt.wantReceived, c.ReceivedRequestStatus)
		})
	}
}

func TestSortFriendViews(t *testing.T) {
	now := time.Now()
	views := []models.FriendView{
		{Profile: models.Profile{ID: "off-old", Status: models.StatusOffline, LastSeen: now.Add(-2 * time.Hour)}},
		{Profile: models.Profile{ID: "away", Status: models.StatusAway, LastSeen: now}},
		{Profile: models.Profile{ID: "off-new", Status: models.StatusOffline, LastSeen: now.Add(-time.Minute)}},
		{Profile: models.Profile{ID: "on", Status: models.StatusOnline, LastSeen: now.Add(-time.Hour)}},
	}

	models.SortFriendViews(views)

	var order []string
	for _, v := range views {
		order = append(order, v.ID)
	}
	assert.Equal(t, []string{"on", "away", "off-new", "off-old"}, order)
}
