// Package keyringrepo stores each credential field as a separate secret in
// the operating system keyring (Keychain, Credential Manager, Secret Service).
package keyringrepo

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

var _ credentials.Repo = (*Repo)(nil)

type Repo struct {
	service string
}

// New returns a repo that stores secrets under service.
func New(service string) *Repo {
	return &Repo{service: service}
}

func (r *Repo) Get(key string) (string, error) {
	value, err := keyring.Get(r.service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", credentials.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keyring get %s/%s: %w", r.service, key, err)
	}
	return value, nil
}

func (r *Repo) Put(key, value string) error {
	if err := keyring.Set(r.service, key, value); err != nil {
		return fmt.Errorf("keyring set %s/%s: %w", r.service, key, err)
	}
	return nil
}

func (r *Repo) Delete(key string) error {
	err := keyring.Delete(r.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("keyring delete %s/%s: %w", r.service, key, err)
	}
	return nil
}
