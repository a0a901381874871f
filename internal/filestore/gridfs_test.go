package filestore

import (
	"context"
	"testing"

	"friendchat/backend/internal/apperr"

	"github.com/stretchr/testify/assert"
)

func TestOpen_InvalidKeyIsNotFound(t *testing.T) {
	s := &GridFSStore{}

	_, _, err := s.Open(context.Background(), "not-an-object-id")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestDelete_InvalidKeyIsNotFound(t *testing.T) {
	s := &GridFSStore{}

	err := s.Delete(context.Background(), "../etc/passwd")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
