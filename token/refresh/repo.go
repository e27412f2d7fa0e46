package refresh

import (
	"time"
)

// StoredRefreshToken represents the server-side storage of refresh token metadata.
// The client only receives the Token field (a random string). All other fields are
// server-side metadata used for validation and logout.
type StoredRefreshToken struct {
	Token     string    // The actual random token string (sent to client)
	SessionID string    // Stamped into every access token minted from this refresh token
	UserID    string    // Server-side metadata
	Iat       time.Time // Server-side metadata (issued at time)
}

// Repo manages server-side storage of refresh token metadata, keyed by the
// token string. Get of an unknown token returns errors.ErrNotFound.
type Repo interface {
	Upsert(refreshToken *StoredRefreshToken) error
	Delete(token string) error
	Get(token string) (*StoredRefreshToken, error)
	DeleteExpired(before time.Time) (int, error)
}
