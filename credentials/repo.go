package credentials

import apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"

// ErrNotFound is returned by Repo.Get for an absent key.
var ErrNotFound = apperrors.ErrNotFound

// Repo is the durable key/value facility the host provides. Implementations
// must survive process restarts (except the in-memory fake) and treat Delete
// of an absent key as success.
type Repo interface {
	Get(key string) (string, error)
	Put(key, value string) error
	Delete(key string) error
}
