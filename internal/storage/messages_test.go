package storage_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/models"
	"friendchat/backend/internal/storage"
	"friendchat/backend/internal/storage/storagetest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMessage(from, to, content string, at time.Time) *models.Message {
	return &models.Message{SenderID: from, ReceiverID: to, Content: content, Type: models.MessageText, CreatedAt: at}
}

func TestSaveMessage_UpsertsConversation(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.CreateUser(t, s, "a")
	b := storagetest.CreateUser(t, s, "b")
	t0 := time.Now().UTC()

	require.NoError(t, s.SaveMessage(ctx, newMessage(a.ID, b.ID, "hi", t0)))
	require.NoError(t, s.SaveMessage(ctx, newMessage(b.ID, a.ID, "hey", t0.Add(time.Second))))

	convs, err := s.Conversations(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.WithinDuration(t, t0.Add(time.Second), convs[0].LastMessageAt, time.Millisecond)
}

func TestSaveMessage_OlderSendDoesNotMoveConversationBack(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.CreateUser(t, s, "a")
	b := storagetest.CreateUser(t, s, "b")
	t0 := time.Now().UTC()

	require.NoError(t, s.SaveMessage(ctx, newMessage(a.ID, b.ID, "late", t0.Add(time.Minute))))
	require.NoError(t, s.SaveMessage(ctx, newMessage(a.ID, b.ID, "early", t0)))

	convs, err := s.Conversations(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.WithinDuration(t, t0.Add(time.Minute), convs[0].LastMessageAt, time.Millisecond)
}

func TestSaveMessage_ConcurrentSendsKeepOneConversation(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.CreateUser(t, s, "a")
	b := storagetest.CreateUser(t, s, "b")
	t0 := time.Now().UTC()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			from, to := a.ID, b.ID
			if i%2 == 1 {
				from, to = to, from
			}
			assert.NoError(t, s.SaveMessage(ctx, newMessage(from, to, "m", t0.Add(time.Duration(i)*time.Second))))
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, s.DB.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	convs, err := s.Conversations(ctx, a.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, t0.Add((n-1)*time.Second), convs[0].LastMessageAt, time.Millisecond)
}

func TestHistory_MarksIncomingReadAndOrders(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.CreateUser(t, s, "a")
	b := storagetest.CreateUser(t, s, "b")
	c := storagetest.CreateUser(t, s, "c")
	t0 := time.Now().UTC()

	file := &models.File{StorageKey: "k1", OriginalName: "cat.png", FileType: "image/png", FileSize: 10, UploadedBy: a.ID}
	require.NoError(t, s.CreateFile(ctx, file))

	require.NoError(t, s.SaveMessage(ctx, newMessage(a.ID, b.ID, "one", t0)))
	require.NoError(t, s.SaveMessage(ctx, newMessage(b.ID, a.ID, "two", t0.Add(time.Second))))
	img := newMessage(a.ID, b.ID, "", t0.Add(2*time.Second))
	img.Type, img.FileID = models.MessageImage, &file.ID
	require.NoError(t, s.SaveMessage(ctx, img))
	require.NoError(t, s.SaveMessage(ctx, newMessage(c.ID, b.ID, "other pair", t0)))

	unread, err := s.CountUnread(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	msgs, err := s.History(ctx, b.ID, a.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, []string{"one", "two", ""}, []string{msgs[0].Content, msgs[1].Content, msgs[2].Content})
	require.NotNil(t, msgs[2].File)
	assert.Equal(t, "cat.png", msgs[2].File.OriginalName)
	assert.True(t, msgs[0].Read)
	assert.False(t, msgs[1].Read, "b's own outgoing message is read only when a views it")

	unread, err = s.CountUnread(ctx, b.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	unread, err = s.CountUnread(ctx, b.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread, "other conversations are untouched")
}

func TestCountUnreadBySenderAndMarkRead(t *testing.T) {
	s := storagetest.New(t)
	ctx := context.Background()
	a := storagetest.CreateUser(t, s, "a")
	b := storagetest.CreateUser(t, s, "b")
	c := storagetest.CreateUser(t, s, "c")
	t0 := time.Now().UTC()
	require.NoError(t, s.SaveMessage(ctx, newMessage(b.ID, a.ID, "1", t0)))
	require.NoError(t, s.SaveMessage(ctx, newMessage(b.ID, a.ID, "2", t0)))
	require.NoError(t, s.SaveMessage(ctx, newMessage(c.ID, a.ID, "3", t0)))

	counts, err := s.CountUnreadBySender(ctx, a.ID, []string{b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{b.ID: 2, c.ID: 1}, counts)

	n, err := s.MarkRead(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	counts, err = s.CountUnreadBySender(ctx, a.ID, []string{b.ID, c.ID})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{c.ID: 1}, counts)
}

func TestGetFile_Missing(t *testing.T) {
	s := storagetest.New(t)

	_, err := s.GetFile(context.Background(), 42)

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func newMockStorage(t *testing.T, timeout time.Duration) (*storage.Service, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return storage.NewStorageService(gdb, timeout), mock
}

func TestStoreFailureIsRetryable(t *testing.T) {
	s, mock := newMockStorage(t, time.Second)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "messages"`).
		WillReturnError(errors.New("connection refused"))

	_, err := s.CountUnread(context.Background(), "a", "b")

	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.True(t, apperr.Retryable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreCallsAreBounded(t *testing.T) {
	s, mock := newMockStorage(t, 20*time.Millisecond)
	mock.ExpectQuery(`SELECT count\(\*\) FROM "friendships"`).
		WillDelayFor(time.Second).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	start := time.Now()
	_, err := s.AreFriends(context.Background(), "a", "b")

	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestSaveMessage_RollsBackOnConversationFailure(t *testing.T) {
	s, mock := newMockStorage(t, time.Second)
	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "messages"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`INSERT INTO "conversations"`).
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := s.SaveMessage(context.Background(), newMessage("a", "b", "hi", time.Now().UTC()))

	assert.ErrorIs(t, err, apperr.ErrStorageUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}
