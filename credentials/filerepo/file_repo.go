// Package filerepo persists credentials as a JSON object in a single file.
// Every operation holds an advisory lock on a sibling ".lock" file so that
// several processes sharing the file never interleave a read-modify-write.
package filerepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

const (
	lockTimeout       = 5 * time.Second
	lockRetryInterval = 50 * time.Millisecond
	filePerm          = 0o600
	dirPerm           = 0o700
)

var _ credentials.Repo = (*Repo)(nil)

type Repo struct {
	path string
}

// New returns a repo backed by path. The parent directory is created when missing.
func New(path string) (*Repo, error) {
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create credential directory: %w", err)
	}
	return &Repo{path: path}, nil
}

func (r *Repo) Get(key string) (string, error) {
	var value string
	err := r.withLock(false, func() error {
		values, err := r.read()
		if err != nil {
			return err
		}
		v, ok := values[key]
		if !ok {
			return credentials.ErrNotFound
		}
		value = v
		return nil
	})
	return value, err
}

func (r *Repo) Put(key, value string) error {
	return r.withLock(true, func() error {
		values, err := r.read()
		if err != nil {
			return err
		}
		values[key] = value
		return r.write(values)
	})
}

func (r *Repo) Delete(key string) error {
	return r.withLock(true, func() error {
		values, err := r.read()
		if err != nil {
			return err
		}
		if _, ok := values[key]; !ok {
			return nil
		}
		delete(values, key)
		return r.write(values)
	})
}

func (r *Repo) withLock(exclusive bool, fn func() error) error {
	lockPath := r.path + ".lock"
	fileLock := flock.New(lockPath)
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			log.Warn().Err(err).Str("path", lockPath).Msg("Failed to unlock credential file")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if exclusive {
		locked, err = fileLock.TryLockContext(ctx, lockRetryInterval)
	} else {
		locked, err = fileLock.TryRLockContext(ctx, lockRetryInterval)
	}
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", r.path, err)
	}
	if !locked {
		return fmt.Errorf("could not acquire lock on %s: timeout after %v", r.path, lockTimeout)
	}

	return fn()
}

func (r *Repo) read() (map[string]string, error) {
	values := map[string]string{}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return values, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.path, err)
	}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", r.path, err)
	}
	return values, nil
}

// write replaces the file atomically via a temp file in the same directory.
func (r *Repo) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // gone after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", r.path, err)
	}
	return nil
}
