package sqliterepo_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/credentials"
	"github.com/jrsteele09/go-auth-gateway/credentials/repotest"
	"github.com/jrsteele09/go-auth-gateway/credentials/sqliterepo"
)

func TestSQLiteRepo(t *testing.T) {
	repotest.Run(t, func(t *testing.T) credentials.Repo {
		repo, err := sqliterepo.Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestSQLiteRepo_SurvivesReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "db", "credentials.db")

	first, err := sqliterepo.Open(dsn)
	require.NoError(t, err)
	require.NoError(t, credentials.NewStore(first).Set(credentials.Credential{Access: "A1", Refresh: "R1"}))
	require.NoError(t, first.Close())

	second, err := sqliterepo.Open(dsn)
	require.NoError(t, err)
	defer second.Close()

	require.Equal(t, credentials.Credential{Access: "A1", Refresh: "R1"}, credentials.NewStore(second).Credential())
}
