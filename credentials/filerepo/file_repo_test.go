package filerepo_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/credentials"
	"github.com/jrsteele09/go-auth-gateway/credentials/filerepo"
	"github.com/jrsteele09/go-auth-gateway/credentials/repotest"
)

func TestFileRepo(t *testing.T) {
	repotest.Run(t, func(t *testing.T) credentials.Repo {
		repo, err := filerepo.New(filepath.Join(t.TempDir(), "nested", "credentials.json"))
		require.NoError(t, err)
		return repo
	})
}

func TestFileRepo_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")

	first, err := filerepo.New(path)
	require.NoError(t, err)
	store := credentials.NewStore(first)
	require.NoError(t, store.Set(credentials.Credential{Access: "A1", Refresh: "R1", Identity: "alice"}))

	second, err := filerepo.New(path)
	require.NoError(t, err)
	require.Equal(t, credentials.Credential{Access: "A1", Refresh: "R1", Identity: "alice"},
		credentials.NewStore(second).Credential())
}

func TestFileRepo_FileIsPrivate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	repo, err := filerepo.New(path)
	require.NoError(t, err)
	require.NoError(t, repo.Put("access", "A1"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileRepo_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	repo, err := filerepo.New(path)
	require.NoError(t, err)
	_, err = repo.Get("access")
	require.Error(t, err)
	require.NotErrorIs(t, err, credentials.ErrNotFound)
}
