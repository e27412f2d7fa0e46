// Package redisrepo keeps credentials in a single redis hash so that several
// client processes on different hosts share one session.
package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

const opTimeout = 3 * time.Second

var _ credentials.Repo = (*Repo)(nil)

type Repo struct {
	client redis.UniversalClient
	key    string
}

// New stores the credential hash at prefix+"credentials".
func New(client redis.UniversalClient, prefix string) *Repo {
	return &Repo{
		client: client,
		key:    prefix + "credentials",
	}
}

func (r *Repo) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	value, err := r.client.HGet(ctx, r.key, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", credentials.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("redis hget %s %s: %w", r.key, key, err)
	}
	return value, nil
}

func (r *Repo) Put(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.HSet(ctx, r.key, key, value).Err(); err != nil {
		return fmt.Errorf("redis hset %s %s: %w", r.key, key, err)
	}
	return nil
}

func (r *Repo) Delete(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := r.client.HDel(ctx, r.key, key).Err(); err != nil {
		return fmt.Errorf("redis hdel %s %s: %w", r.key, key, err)
	}
	return nil
}
