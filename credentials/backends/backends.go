// Package backends builds the credentials.Repo selected by configuration.
package backends

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/credentials"
	"github.com/jrsteele09/go-auth-gateway/credentials/filerepo"
	"github.com/jrsteele09/go-auth-gateway/credentials/keyringrepo"
	"github.com/jrsteele09/go-auth-gateway/credentials/redisrepo"
	credentialrepofake "github.com/jrsteele09/go-auth-gateway/credentials/repofake"
	"github.com/jrsteele09/go-auth-gateway/credentials/sqliterepo"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
)

// CloseFunc releases whatever the backend holds open.
type CloseFunc func() error

func noopClose() error { return nil }

// Open returns the repo named by cfg.GetStoreBackend().
func Open(ctx context.Context, cfg config.StoreConfig) (credentials.Repo, CloseFunc, error) {
	backend := cfg.GetStoreBackend()
	log.Debug().Str("backend", backend).Msg("Opening credential store")

	switch backend {
	case config.StoreBackendMemory:
		return credentialrepofake.NewFakeCredentialRepo(), noopClose, nil

	case config.StoreBackendFile:
		repo, err := filerepo.New(cfg.GetStoreFilePath())
		if err != nil {
			return nil, nil, err
		}
		return repo, noopClose, nil

	case config.StoreBackendKeyring:
		return keyringrepo.New(cfg.GetKeyringService()), noopClose, nil

	case config.StoreBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr: cfg.GetRedisAddr(),
			DB:   cfg.GetRedisDB(),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.GetRedisAddr(), err)
		}
		return redisrepo.New(client, cfg.GetRedisPrefix()), client.Close, nil

	case config.StoreBackendSQLite:
		repo, err := sqliterepo.Open(cfg.GetSQLiteDSN())
		if err != nil {
			return nil, nil, err
		}
		return repo, repo.Close, nil

	default:
		return nil, nil, apperrors.Wrapf(apperrors.ErrUnknownBackend, "%q", backend)
	}
}
