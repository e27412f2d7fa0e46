package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
)

// MinPasswordLength is the shortest password signup accepts.
const MinPasswordLength = 6

type User struct {
	ID           string    `json:"id,omitempty"`          // Unique identifier for the user
	Username     string    `json:"username,omitempty"`    // Unique username, used to log in
	Email        string    `json:"email,omitempty"`       // Optional contact address
	PasswordHash string    `json:"-"`                     // Hashed version of the user's password - never serialize
	DateJoined   time.Time `json:"date_joined,omitempty"` // Date and time when the user registered
	LastLogin    time.Time `json:"last_login,omitempty"`  // Last time the user logged in
	Blocked      bool      `json:"blocked,omitempty"`     // Blocked, has the user been blocked from logging in
}

// ValidateSignup checks the fields a new account must carry.
func ValidateSignup(username, password, repeatPassword string) error {
	if strings.TrimSpace(username) == "" {
		return apperrors.Wrapf(apperrors.ErrInvalidRequest, "username is required")
	}
	if len(password) < MinPasswordLength {
		return apperrors.ErrWeakPassword
	}
	if password != repeatPassword {
		return apperrors.ErrPasswordMismatch
	}
	return nil
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword reports whether password matches the stored hash.
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
