package credentialrepofake

import (
	"sync"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

var _ credentials.Repo = (*FakeCredentialRepo)(nil)

// FakeCredentialRepo keeps credentials in memory. It does not survive a
// restart and is used by tests and the "memory" backend.
type FakeCredentialRepo struct {
	values map[string]string
	lock   sync.RWMutex
}

func NewFakeCredentialRepo() *FakeCredentialRepo {
	return &FakeCredentialRepo{
		values: make(map[string]string),
	}
}

func (r *FakeCredentialRepo) Get(key string) (string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	v, ok := r.values[key]
	if !ok {
		return "", credentials.ErrNotFound
	}
	return v, nil
}

func (r *FakeCredentialRepo) Put(key, value string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	r.values[key] = value
	return nil
}

func (r *FakeCredentialRepo) Delete(key string) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	delete(r.values, key)
	return nil
}

// Len returns the number of stored keys.
func (r *FakeCredentialRepo) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.values)
}
