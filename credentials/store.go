package credentials

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// ErrMissingAccess is returned when Set is called without an access token.
var ErrMissingAccess = errors.New("credential has no access token")

// Store is the single owner of the persisted Credential. All operations are
// synchronous and serialized; there is no cache, so a write is visible to the
// next read from any goroutine.
type Store struct {
	repo Repo
	lock sync.Mutex
}

// NewStore wraps repo. The repo must not be shared with another Store.
func NewStore(repo Repo) *Store {
	return &Store{repo: repo}
}

// Get returns the value of field, or false when it is absent. Repo failures
// are logged and reported as absent.
func (s *Store) Get(field Field) (string, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.get(field)
}

func (s *Store) get(field Field) (string, bool) {
	value, err := s.repo.Get(string(field))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Err(err).Str("field", string(field)).Msg("Failed to read credential")
		}
		return "", false
	}
	return value, value != ""
}

// Credential returns a consistent snapshot of all three fields.
func (s *Store) Credential() Credential {
	s.lock.Lock()
	defer s.lock.Unlock()

	access, _ := s.get(FieldAccess)
	refresh, _ := s.get(FieldRefresh)
	identity, _ := s.get(FieldIdentity)
	return Credential{Access: access, Refresh: refresh, Identity: identity}
}

// Set replaces the stored credential. Empty refresh or identity values remove
// the corresponding key. If a write fails the store is cleared rather than
// left holding fields of two different sessions.
func (s *Store) Set(c Credential) error {
	if c.Access == "" {
		return ErrMissingAccess
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if err := s.write(c); err != nil {
		if clearErr := s.clear(); clearErr != nil {
			log.Err(clearErr).Msg("Failed to clear credentials after a partial write")
			return errors.Join(err, clearErr)
		}
		return err
	}
	return nil
}

func (s *Store) write(c Credential) error {
	if err := s.put(FieldRefresh, c.Refresh); err != nil {
		return err
	}
	if err := s.put(FieldIdentity, c.Identity); err != nil {
		return err
	}
	return s.put(FieldAccess, c.Access)
}

// SetAccess replaces only the access token, leaving refresh and identity.
func (s *Store) SetAccess(access string) error {
	if access == "" {
		return ErrMissingAccess
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	return s.put(FieldAccess, access)
}

// SetIdentity records the username of the signed-in user. It fails with
// ErrMissingAccess when no one is signed in, so a late identity lookup cannot
// outlive a logout.
func (s *Store) SetIdentity(identity string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.get(FieldAccess); !ok {
		return ErrMissingAccess
	}
	return s.put(FieldIdentity, identity)
}

// ReplaceAccess stores access only while refresh is still the stored refresh
// token, and reports whether it did. A refresh started by a session that has
// since logged out or been replaced by a new login must not touch the store.
func (s *Store) ReplaceAccess(refresh, access string) (bool, error) {
	if access == "" {
		return false, ErrMissingAccess
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	if current, ok := s.get(FieldRefresh); !ok || current != refresh {
		return false, nil
	}
	return true, s.put(FieldAccess, access)
}

// ClearSession clears every field only while refresh is still the stored
// refresh token, and reports whether it did.
func (s *Store) ClearSession(refresh string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if current, ok := s.get(FieldRefresh); !ok || current != refresh {
		return false, nil
	}
	return true, s.clear()
}

// Clear removes every field. All deletes are attempted even if one fails.
func (s *Store) Clear() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.clear()
}

func (s *Store) clear() error {
	var errs []error
	for _, f := range Fields {
		if err := s.repo.Delete(string(f)); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", f, err))
		}
	}
	return errors.Join(errs...)
}

// IsAuthenticated reports whether an access token is stored.
func (s *Store) IsAuthenticated() bool {
	_, ok := s.Get(FieldAccess)
	return ok
}

func (s *Store) put(field Field, value string) error {
	if value == "" {
		if err := s.repo.Delete(string(field)); err != nil {
			return fmt.Errorf("delete %s: %w", field, err)
		}
		return nil
	}
	if err := s.repo.Put(string(field), value); err != nil {
		return fmt.Errorf("store %s: %w", field, err)
	}
	return nil
}
