// Package filestore keeps uploaded file bytes outside the relational
// store. The chat core only ever sees the returned key.
package filestore

import (
	"context"
	"io"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"friendchat/backend/internal/apperr"
)

const bucketName = "chat_files"

// Object describes stored bytes.
type Object struct {
	Key         string
	Name        string
	ContentType string
	Size        int64
	UploadedAt  time.Time
}

type Store interface {
	Upload(ctx context.Context, name, contentType, uploaderID string, r io.Reader) (*Object, error)
	Open(ctx context.Context, key string) (io.ReadCloser, *Object, error)
	Delete(ctx context.Context, key string) error
}

type GridFSStore struct {
	client *mongo.Client
	bucket *gridfs.Bucket
}

var _ Store = (*GridFSStore)(nil)

// Connect opens a mongo client and the chat_files bucket of database.
func Connect(ctx context.Context, uri, database string) (*GridFSStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to ping mongodb")
	}

	bucket, err := gridfs.NewBucket(client.Database(database), options.GridFSBucket().SetName(bucketName))
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, errors.Wrap(err, "failed to open gridfs bucket")
	}
	return &GridFSStore{client: client, bucket: bucket}, nil
}

func (s *GridFSStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *GridFSStore) Upload(ctx context.Context, name, contentType, uploaderID string, r io.Reader) (*Object, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.bucket.SetWriteDeadline(deadline); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	opts := options.GridFSUpload().SetMetadata(bson.M{
		"content_type": contentType,
		"uploaded_by":  uploaderID,
		"uploaded_at":  now,
	})
	stream, err := s.bucket.OpenUploadStream(name, opts)
	if err != nil {
		return nil, apperr.Unavailable(errors.Wrap(err, "open upload stream"))
	}

	size, err := io.Copy(stream, r)
	if err != nil {
		_ = stream.Abort()
		return nil, errors.Wrap(err, "copy upload")
	}
	if err := stream.Close(); err != nil {
		return nil, apperr.Unavailable(errors.Wrap(err, "finish upload"))
	}

	id, ok := stream.FileID.(primitive.ObjectID)
	if !ok {
		return nil, errors.New("unexpected gridfs file id type")
	}
	return &Object{
		Key:         id.Hex(),
		Name:        name,
		ContentType: contentType,
		Size:        size,
		UploadedAt:  now,
	}, nil
}

func (s *GridFSStore) Open(ctx context.Context, key string) (io.ReadCloser, *Object, error) {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return nil, nil, apperr.ErrNotFound
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := s.bucket.SetReadDeadline(deadline); err != nil {
			return nil, nil, err
		}
	}

	stream, err := s.bucket.OpenDownloadStream(id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return nil, nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, nil, apperr.Unavailable(errors.Wrap(err, "open download stream"))
	}

	info := stream.GetFile()
	var meta bson.M
	if info.Metadata != nil {
		_ = bson.Unmarshal(info.Metadata, &meta)
	}
	contentType, _ := meta["content_type"].(string)

	return stream, &Object{
		Key:         key,
		Name:        info.Name,
		ContentType: contentType,
		Size:        info.Length,
		UploadedAt:  info.UploadDate,
	}, nil
}

func (s *GridFSStore) Delete(ctx context.Context, key string) error {
	id, err := primitive.ObjectIDFromHex(key)
	if err != nil {
		return apperr.ErrNotFound
	}
	err = s.bucket.DeleteContext(ctx, id)
	if errors.Is(err, gridfs.ErrFileNotFound) {
		return apperr.ErrNotFound
	}
	return apperr.Unavailable(err)
}
