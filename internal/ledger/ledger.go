// Package ledger derives unread state from stored messages. There is no
// stored counter: every count is recomputed from read flags.
package ledger

import (
	"context"

	"github.com/pkg/errors"
)

type Store interface {
	CountUnread(ctx context.Context, viewerID, fromID string) (int64, error)
	CountUnreadBySender(ctx context.Context, viewerID string, senders []string) (map[string]int64, error)
	MarkRead(ctx context.Context, viewerID, fromID string) (int64, error)
}

type Ledger struct {
	store Store
}

func New(store Store) *Ledger {
	return &Ledger{store: store}
}

// UnreadCount is the number of messages friendID sent to viewerID that
// viewerID has not read.
func (l *Ledger) UnreadCount(ctx context.Context, viewerID, friendID string) (int64, error) {
	n, err := l.store.CountUnread(ctx, viewerID, friendID)
	return n, errors.Wrap(err, "count unread")
}

// UnreadCounts returns a count for every friend, zero included.
func (l *Ledger) UnreadCounts(ctx context.Context, viewerID string, friendIDs []string) (map[string]int64, error) {
	counts, err := l.store.CountUnreadBySender(ctx, viewerID, friendIDs)
	if err != nil {
		return nil, errors.Wrap(err, "count unread by sender")
	}
	out := make(map[string]int64, len(friendIDs))
	for _, id := range friendIDs {
		out[id] = counts[id]
	}
	return out, nil
}

// MarkRead clears the unread state of one conversation for viewerID.
func (l *Ledger) MarkRead(ctx context.Context, viewerID, friendID string) (int64, error) {
	n, err := l.store.MarkRead(ctx, viewerID, friendID)
	return n, errors.Wrap(err, "mark read")
}
