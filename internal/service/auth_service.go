package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ruaancorrea/helpdesk-backend/internal/docstore"
	"github.com/ruaancorrea/helpdesk-backend/internal/models"
	"github.com/ruaancorrea/helpdesk-backend/internal/utils"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

// storedUser is the persisted shape: the public profile plus the bcrypt
// hash, which must never reach an HTTP response.
type storedUser struct {
	models.User
	PasswordHash string `json:"passwordHash,omitempty"`
}

type AuthService struct {
	store         docstore.Store
	sessionSecret string
}

func NewAuthService(store docstore.Store, sessionSecret string) *AuthService {
	return &AuthService{store: store, sessionSecret: sessionSecret}
}

// Login verifies the password against the stored bcrypt hash and returns a
// session token plus the public profile.
func (a *AuthService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return "", nil, ErrValidation
	}
	docs, err := a.store.Query(ctx, collUsers, map[string]any{"email": email})
	if err != nil {
		return "", nil, err
	}
	if len(docs) == 0 {
		return "", nil, ErrInvalidCredentials
	}
	var su storedUser
	if err := docs[0].Decode(&su); err != nil {
		return "", nil, err
	}
	if !utils.CheckPassword(su.PasswordHash, password) {
		return "", nil, ErrInvalidCredentials
	}
	tok, err := utils.SignJWT(a.sessionSecret, su.ID, su.Role, 24*time.Hour)
	if err != nil {
		return "", nil, err
	}
	return tok, &su.User, nil
}
