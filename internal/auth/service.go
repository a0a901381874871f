// Package auth registers accounts and issues the tokens that identify a
// user on REST calls and on the websocket.
package auth

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"friendchat/backend/internal/apperr"
	"friendchat/backend/internal/config"
	"friendchat/backend/internal/models"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

type Service struct {
	users  UserStore
	tokens *TokenIssuer
	cost   int
}

func NewService(users UserStore, tokens *TokenIssuer) *Service {
	return &Service{users: users, tokens: tokens, cost: config.BcryptCost}
}

// Register creates an account and returns it with a fresh token.
func (s *Service) Register(ctx context.Context, username, email, password string) (*models.User, string, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))

	if len(username) < 3 || len(username) > 50 {
		return nil, "", apperr.Validation("username must be 3-50 characters")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, "", apperr.Validation("invalid email")
	}
	if len(password) < config.MinPasswordLength {
		return nil, "", apperr.Validation("password too short")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, "", err
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Status:       models.StatusOffline,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the password. Unknown email and wrong password look the same.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, "", apperr.ErrUnauthorized
	}
	if err != nil {
		return nil, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, "", apperr.ErrUnauthorized
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.users.GetUserByID(ctx, userID)
}

// Authenticate resolves a bearer token to a user ID.
func (s *Service) Authenticate(token string) (string, error) {
	return s.tokens.Verify(token)
}
