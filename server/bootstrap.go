package server

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
	"github.com/jrsteele09/go-auth-gateway/token"
	"github.com/jrsteele09/go-auth-gateway/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-auth-gateway/token/refresh/repofake"
	"github.com/jrsteele09/go-auth-gateway/users"
)

// NewAuthorizationService wires the token managers from configuration over
// in-memory refresh token storage.
func NewAuthorizationService(cfg config.TokenConfig, userRepo users.UserRepo, options ...auth.AuthorizationServiceOption) (*auth.AuthorizationService, error) {
	tokenCreator := token.New(token.NewHMACSigner(cfg.GetSigningSecret()),
		token.WithIssuer(cfg.GetIssuer()),
		token.WithAccessTokenExpiry(cfg.GetAccessTokenExpiry()),
	)
	refreshTokens := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg)
	return auth.NewAuthorizationService(userRepo, tokenCreator, refreshTokens, options...)
}

// SeedUser creates the configured startup account if it does not exist yet.
// With no password configured a random one is generated and returned so it
// can be shown once.
func SeedUser(cfg config.Config, userRepo users.UserRepo) (generatedPassword string, err error) {
	username := cfg.GetSeedUsername()
	if username == "" {
		return "", nil
	}

	if _, err := userRepo.GetByUsername(username); err == nil {
		log.Info().Str("username", username).Msg("Seed user already exists")
		return "", nil
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return "", fmt.Errorf("failed to check for seed user: %w", err)
	}

	password := cfg.GetSeedPassword()
	if password == "" {
		passwordBytes := make([]byte, 12)
		if _, err := rand.Read(passwordBytes); err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password = base64.RawURLEncoding.EncodeToString(passwordBytes)
		generatedPassword = password
	}

	passwordHash, err := users.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	user := &users.User{
		Username:     username,
		Email:        generateEmailFromBaseURL(username, cfg.GetBaseURL()),
		PasswordHash: passwordHash,
		DateJoined:   time.Now(),
	}
	if err := userRepo.Upsert(user); err != nil {
		return "", fmt.Errorf("failed to create seed user: %w", err)
	}

	log.Info().Str("username", username).Str("email", user.Email).Msg("Created seed user")
	return generatedPassword, nil
}

// generateEmailFromBaseURL creates an email address from a username and base URL
// Example: ("admin", "https://auth.example.com/path") -> "admin@auth.example.com"
func generateEmailFromBaseURL(user, baseURL string) string {
	domain := strings.ReplaceAll(strings.ReplaceAll(baseURL, "https://", ""), "http://", "")
	domain = strings.SplitN(domain, "/", 2)[0] // Remove any path - safe because SplitN always returns at least 1 element
	domain = strings.SplitN(domain, ":", 2)[0] // Remove port if present
	return fmt.Sprintf("%s@%s", user, domain)
}
