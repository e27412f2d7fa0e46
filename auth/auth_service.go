package auth

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
	"github.com/jrsteele09/go-auth-gateway/token"
	"github.com/jrsteele09/go-auth-gateway/token/refresh"
	"github.com/jrsteele09/go-auth-gateway/users"
)

// TokenPair is issued by login and signup.
type TokenPair struct {
	Access   string
	Refresh  string
	Username string
}

// SignupParameters are the fields of a new account.
type SignupParameters struct {
	Username       string
	Email          string
	Password       string
	RepeatPassword string
}

// AuthorizationService implements the reference API: password login, signup,
// access token refresh, logout and current-user lookup.
type AuthorizationService struct {
	users         users.UserRepo   // Repository for user data
	tokenCreator  *token.Manager   // Access token minting and validation
	refreshTokens *refresh.Manager // Refresh token storage
	nowTime       func() time.Time // nowTime function (injectable for testing)
}

// AuthorizationServiceOption defines a function type to modify the AuthorizationService instance.
type AuthorizationServiceOption func(*AuthorizationService)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) AuthorizationServiceOption {
	return func(as *AuthorizationService) {
		as.nowTime = nowFunc
	}
}

// NewAuthorizationService initializes a new AuthorizationService with required dependencies.
func NewAuthorizationService(
	userRepo users.UserRepo,
	tokenCreator *token.Manager,
	refreshTokens *refresh.Manager,
	options ...AuthorizationServiceOption,
) (*AuthorizationService, error) {
	if userRepo == nil {
		return nil, errors.New("[NewAuthorizationService] Users repo is required")
	}
	if tokenCreator == nil {
		return nil, errors.New("[NewAuthorizationService] tokenCreator is required")
	}
	if refreshTokens == nil {
		return nil, errors.New("[NewAuthorizationService] refresh token manager is required")
	}

	authService := &AuthorizationService{
		users:         userRepo,
		tokenCreator:  tokenCreator,
		refreshTokens: refreshTokens,
		nowTime:       time.Now,
	}

	for _, opt := range options {
		opt(authService)
	}

	return authService, nil
}

// Login checks the password and starts a new session. Unknown users and
// wrong passwords both return ErrInvalidCredentials.
func (as *AuthorizationService) Login(username, password string) (*TokenPair, error) {
	user, err := as.users.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, errors.Wrap(err, "[Login] GetByUsername")
	}
	if !user.CheckPassword(password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Blocked {
		return nil, UserBlockedErr
	}

	if err := as.users.SetLastLogin(user.Username, as.nowTime()); err != nil {
		log.Err(err).Str("username", user.Username).Msg("Failed to record last login")
	}
	return as.issue(user)
}

// Signup creates an account and signs it in.
func (as *AuthorizationService) Signup(params SignupParameters) (*TokenPair, error) {
	username := strings.TrimSpace(params.Username)
	if err := users.ValidateSignup(username, params.Password, params.RepeatPassword); err != nil {
		return nil, err
	}

	if _, err := as.users.GetByUsername(username); err == nil {
		return nil, apperrors.ErrUserExists
	} else if !errors.Is(err, apperrors.ErrUserNotFound) {
		return nil, errors.Wrap(err, "[Signup] GetByUsername")
	}

	hash, err := users.HashPassword(params.Password)
	if err != nil {
		return nil, errors.Wrap(err, "[Signup] HashPassword")
	}

	now := as.nowTime()
	user := &users.User{
		Username:     username,
		Email:        strings.TrimSpace(params.Email),
		PasswordHash: hash,
		DateJoined:   now,
		LastLogin:    now,
	}
	if err := as.users.Upsert(user); err != nil {
		return nil, errors.Wrap(err, "[Signup] Upsert")
	}
	return as.issue(user)
}

// Refresh mints a new access token for the session of refreshToken. The
// refresh token itself is not rotated.
func (as *AuthorizationService) Refresh(refreshToken string) (string, error) {
	rt, err := as.refreshTokens.Validate(refreshToken)
	if err != nil {
		return "", err
	}

	user, err := as.users.GetByID(rt.UserID)
	if err != nil {
		return "", errors.Wrap(apperrors.ErrInvalidRefreshToken, "user not found for refresh token")
	}
	if user.Blocked {
		return "", UserBlockedErr
	}

	access, err := as.tokenCreator.CreateAccessToken(user, rt.SessionID)
	if err != nil {
		return "", errors.Wrap(err, "[Refresh] CreateAccessToken")
	}
	return access, nil
}

// Logout revokes refreshToken and every access token minted from it.
func (as *AuthorizationService) Logout(refreshToken string) error {
	rt, err := as.refreshTokens.Validate(refreshToken)
	if err != nil {
		return err
	}
	if err := as.refreshTokens.Revoke(refreshToken); err != nil {
		return errors.Wrap(err, "[Logout] Revoke")
	}
	if err := as.tokenCreator.RevokeSession(rt.SessionID); err != nil {
		return errors.Wrap(err, "[Logout] RevokeSession")
	}
	return nil
}

// Authenticate validates a bearer access token and returns its user.
func (as *AuthorizationService) Authenticate(accessToken string) (*users.User, error) {
	claims, err := as.tokenCreator.Validate(accessToken)
	if err != nil {
		return nil, err
	}
	user, err := as.users.GetByID(claims.Subject)
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrInvalidToken, "user not found for access token")
	}
	if user.Blocked {
		return nil, UserBlockedErr
	}
	return user, nil
}

// Cleanup drops expired refresh tokens and revocation entries.
func (as *AuthorizationService) Cleanup() {
	removed, err := as.refreshTokens.Cleanup()
	if err != nil {
		log.Err(err).Msg("Failed to remove expired refresh tokens")
	}
	as.tokenCreator.CleanupRevokedSessions()
	log.Debug().Int("refresh_tokens", removed).Msg("Token cleanup finished")
}

func (as *AuthorizationService) issue(user *users.User) (*TokenPair, error) {
	rt, err := as.refreshTokens.Create(user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "AuthorizationService.issue CreateRefreshToken")
	}
	access, err := as.tokenCreator.CreateAccessToken(user, rt.SessionID)
	if err != nil {
		return nil, errors.Wrap(err, "AuthorizationService.issue CreateAccessToken")
	}
	return &TokenPair{Access: access, Refresh: rt.Token, Username: user.Username}, nil
}
