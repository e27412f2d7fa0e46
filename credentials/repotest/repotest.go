// Package repotest holds behaviour every credentials.Repo must share.
package repotest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

// Run exercises repo through the contract the Store relies on.
func Run(t *testing.T, newRepo func(t *testing.T) credentials.Repo) {
	t.Helper()

	t.Run("get missing key", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.Get("access")
		require.True(t, errors.Is(err, credentials.ErrNotFound), "got %v", err)
	})

	t.Run("put then get", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put("access", "A1"))
		v, err := repo.Get("access")
		require.NoError(t, err)
		require.Equal(t, "A1", v)
	})

	t.Run("put overwrites", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put("access", "A1"))
		require.NoError(t, repo.Put("access", "A2"))
		v, err := repo.Get("access")
		require.NoError(t, err)
		require.Equal(t, "A2", v)
	})

	t.Run("keys are independent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Put("access", "A1"))
		require.NoError(t, repo.Put("refresh", "R1"))
		require.NoError(t, repo.Delete("access"))

		_, err := repo.Get("access")
		require.ErrorIs(t, err, credentials.ErrNotFound)
		v, err := repo.Get("refresh")
		require.NoError(t, err)
		require.Equal(t, "R1", v)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newRepo(t)
		require.NoError(t, repo.Delete("identity"))
		require.NoError(t, repo.Put("identity", "alice"))
		require.NoError(t, repo.Delete("identity"))
		require.NoError(t, repo.Delete("identity"))
	})

	t.Run("store round trip", func(t *testing.T) {
		store := credentials.NewStore(newRepo(t))
		require.NoError(t, store.Set(credentials.Credential{Access: "A1", Refresh: "R1", Identity: "alice"}))
		require.Equal(t, credentials.Credential{Access: "A1", Refresh: "R1", Identity: "alice"}, store.Credential())
		require.NoError(t, store.Clear())
		require.True(t, store.Credential().IsZero())
	})
}
