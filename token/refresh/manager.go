package refresh

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jrsteele09/go-auth-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
)

// Manager handles refresh token creation, validation and revocation. Tokens
// are not rotated; one stays valid until it expires or is revoked at logout.
type Manager struct {
	repo    Repo
	config  config.TokenConfig
	nowFunc func() time.Time
}

type ManagerOption func(*Manager)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

// NewManager creates a new refresh token manager
func NewManager(repo Repo, cfg config.TokenConfig, options ...ManagerOption) *Manager {
	m := &Manager{
		repo:    repo,
		config:  cfg,
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Create generates a new refresh token for userID and stores it. Each call
// starts a new session, so a user may be signed in from several clients.
func (m *Manager) Create(userID string) (*StoredRefreshToken, error) {
	tokenBytes := make([]byte, m.config.GetRefreshTokenLength()) // Configured length (default: 32 bytes = 256 bits)
	if _, err := rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}

	rt := &StoredRefreshToken{
		Token:     hex.EncodeToString(tokenBytes),
		SessionID: uuid.New().String(),
		UserID:    userID,
		Iat:       m.nowFunc(),
	}
	if err := m.repo.Upsert(rt); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}
	return rt, nil
}

// Validate returns the stored metadata for token. Unknown tokens return
// ErrInvalidRefreshToken; expired ones are deleted and return
// ErrRefreshTokenExpired.
func (m *Manager) Validate(token string) (*StoredRefreshToken, error) {
	rt, err := m.repo.Get(token)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidRefreshToken
		}
		return nil, fmt.Errorf("failed to load refresh token: %w", err)
	}

	if m.IsExpired(rt) {
		_ = m.repo.Delete(token)
		return nil, apperrors.ErrRefreshTokenExpired
	}
	return rt, nil
}

// Revoke deletes token so it can no longer be used.
func (m *Manager) Revoke(token string) error {
	if err := m.repo.Delete(token); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return apperrors.ErrInvalidRefreshToken
		}
		return err
	}
	return nil
}

// IsExpired checks if a refresh token has outlived the configured expiry
func (m *Manager) IsExpired(rt *StoredRefreshToken) bool {
	return m.nowFunc().Sub(rt.Iat) > m.config.GetRefreshTokenExpiry()
}

// Cleanup removes every expired token and returns how many were removed.
func (m *Manager) Cleanup() (int, error) {
	return m.repo.DeleteExpired(m.nowFunc().Add(-m.config.GetRefreshTokenExpiry()))
}
