package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
	"github.com/jrsteele09/go-auth-gateway/users"
)

// Claims are carried by every access token.
type Claims struct {
	Username  string `json:"username"`
	SessionID string `json:"sid"` // Refresh token session the access token was minted for
	jwt.RegisteredClaims
}

type Manager struct {
	signer            Signer              // Token signing and verification
	issuer            string              // Value of the iss claim
	revokedCache      RevokedSessionCache // Sessions ended by logout
	accessTokenExpiry time.Duration
	nowFunc           func() time.Time
}

type ManagerOption func(*Manager)

func WithAccessTokenExpiry(expiry time.Duration) ManagerOption {
	return func(m *Manager) {
		m.accessTokenExpiry = expiry
	}
}

func WithNowFunc(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowFunc = now
	}
}

func WithIssuer(issuer string) ManagerOption {
	return func(m *Manager) {
		m.issuer = issuer
	}
}

func WithRevokedSessionCache(cache RevokedSessionCache) ManagerOption {
	return func(m *Manager) {
		m.revokedCache = cache
	}
}

func New(signer Signer, options ...ManagerOption) *Manager {
	m := &Manager{
		signer:       signer,
		revokedCache: NewInMemoryRevokedSessionCache(), // Default implementation
	}

	for _, opt := range options {
		opt(m)
	}

	if m.accessTokenExpiry == 0 {
		m.accessTokenExpiry = 5 * time.Minute
	}
	if m.nowFunc == nil {
		m.nowFunc = time.Now
	}
	return m
}

// AccessTokenExpiry is the lifetime of newly minted access tokens.
func (c *Manager) AccessTokenExpiry() time.Duration {
	return c.accessTokenExpiry
}

func (c *Manager) CreateAccessToken(user *users.User, sessionID string) (string, error) {
	now := c.nowFunc()
	claims := Claims{
		Username:  user.Username,
		SessionID: sessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTokenExpiry)),
			ID:        uuid.New().String(), // Unique token ID
		},
	}

	signed, err := c.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "Manager.CreateAccessToken Sign")
	}
	return signed, nil
}

// Validate verifies rawToken and returns its claims. Expired tokens return
// ErrTokenExpired, tokens of a logged-out session ErrTokenRevoked, anything
// else that fails verification ErrInvalidToken.
func (c *Manager) Validate(rawToken string) (*Claims, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apperrors.ErrInvalidToken
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{c.signer.Algorithm()}),
		jwt.WithTimeFunc(c.nowFunc),
		jwt.WithExpirationRequired(),
	}
	if c.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(c.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, c.signer.Keyfunc, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "%v", err)
	}
	if !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	if claims.SessionID != "" && c.revokedCache.IsRevoked(claims.SessionID) {
		return nil, apperrors.ErrTokenRevoked
	}
	return claims, nil
}

// RevokeSession rejects every access token minted for sessionID from now
// until the longest-lived of them would have expired anyway.
func (c *Manager) RevokeSession(sessionID string) error {
	if sessionID == "" {
		return errors.New("Manager.RevokeSession empty session id")
	}
	return c.revokedCache.Add(sessionID, c.nowFunc().Add(c.accessTokenExpiry))
}

// CleanupRevokedSessions removes expired entries from the revocation cache
func (c *Manager) CleanupRevokedSessions() {
	if c.revokedCache != nil {
		c.revokedCache.Cleanup(c.nowFunc())
	}
}
