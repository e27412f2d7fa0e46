package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/credentials"
)

const defaultRefreshTimeout = 15 * time.Second

var errNoAccessToken = errors.New("refresh returned no access token")

// Refresher exchanges a refresh token for a new access token. It must not
// send its request through a Gateway.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (string, error)
}

// RefreshFunc adapts a function to Refresher.
type RefreshFunc func(ctx context.Context, refreshToken string) (string, error)

func (f RefreshFunc) Refresh(ctx context.Context, refreshToken string) (string, error) {
	return f(ctx, refreshToken)
}

// RefreshState is the Coordinator's position in the refresh cycle.
type RefreshState int

const (
	StateIdle RefreshState = iota
	StateInFlight
	// StateFailed is only passed to state observers; the coordinator moves
	// straight on to StateIdle.
	StateFailed
)

func (s RefreshState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInFlight:
		return "in-flight"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("RefreshState(%d)", int(s))
	}
}

type refreshResult struct {
	access string
	err    error
}

// Coordinator turns any number of concurrent refresh requests into a single
// call to the Refresher and delivers that call's outcome to each caller.
type Coordinator struct {
	store     *credentials.Store
	refresher Refresher
	timeout   time.Duration
	metrics   *Metrics
	observe   func(RefreshState)

	lock    sync.Mutex
	state   RefreshState
	waiters []chan refreshResult
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithRefreshTimeout bounds the shared refresh call.
func WithRefreshTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCoordinatorMetrics records refresh calls, failures and waiters.
func WithCoordinatorMetrics(m *Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithStateObserver calls fn, with the coordinator lock held, on every state
// transition. fn must not call back into the Coordinator.
func WithStateObserver(fn func(RefreshState)) CoordinatorOption {
	return func(c *Coordinator) {
		c.observe = fn
	}
}

// NewCoordinator returns an idle Coordinator refreshing the credentials held
// in store.
func NewCoordinator(store *credentials.Store, refresher Refresher, options ...CoordinatorOption) (*Coordinator, error) {
	if store == nil {
		return nil, errors.New("[NewCoordinator] credential store is required")
	}
	if refresher == nil {
		return nil, errors.New("[NewCoordinator] refresher is required")
	}
	c := &Coordinator{
		store:     store,
		refresher: refresher,
		timeout:   defaultRefreshTimeout,
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// State returns the current state.
func (c *Coordinator) State() RefreshState {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

// Waiting returns the number of callers waiting on the in-flight refresh.
func (c *Coordinator) Waiting() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return len(c.waiters)
}

// Refresh returns an access token to replace staleAccess, the token the
// caller's rejected request was sent with.
//
// When no refresh is running and the store already holds a different access
// token, that token is returned without a network call. Otherwise the caller
// starts the refresh, or joins the one in flight, and waits for it. A failed
// refresh clears the store and returns an error matching ErrSessionExpired.
// The outcome is only applied to the session that started the refresh: if a
// login or logout replaced it meanwhile, the store is left alone and waiters
// get the current access token, or ErrUnauthenticated when there is none.
// With no refresh token stored Refresh returns ErrUnauthenticated.
//
// Cancelling ctx releases this caller only; the shared call keeps running.
func (c *Coordinator) Refresh(ctx context.Context, staleAccess string) (string, error) {
	c.lock.Lock()
	if c.state != StateInFlight {
		if current, ok := c.store.Get(credentials.FieldAccess); ok && current != staleAccess {
			c.lock.Unlock()
			return current, nil
		}
		refreshToken, ok := c.store.Get(credentials.FieldRefresh)
		if !ok {
			c.lock.Unlock()
			return "", ErrUnauthenticated
		}
		c.setState(StateInFlight)
		go c.run(refreshToken)
	}
	result := make(chan refreshResult, 1)
	c.waiters = append(c.waiters, result)
	c.metrics.setWaiters(len(c.waiters))
	c.lock.Unlock()

	select {
	case res := <-result:
		return res.access, res.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (c *Coordinator) run(refreshToken string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	c.metrics.refreshStarted()
	access, err := c.call(ctx, refreshToken)
	result := refreshResult{access: access}
	if err == nil {
		replaced, storeErr := c.store.ReplaceAccess(refreshToken, access)
		switch {
		case storeErr != nil:
			err = fmt.Errorf("failed to store refreshed access token: %w", storeErr)
		case !replaced:
			log.Debug().Msg("Session changed during refresh, discarding refreshed token")
			result = c.currentSession()
		}
	}

	if err != nil {
		c.metrics.refreshFailed()
		cleared, clearErr := c.store.ClearSession(refreshToken)
		if clearErr != nil {
			log.Err(clearErr).Msg("Failed to clear credentials after refresh failure")
		}
		if cleared || clearErr != nil {
			log.Err(err).Msg("Token refresh failed, clearing session")
			result = refreshResult{err: fmt.Errorf("%w: %w", ErrSessionExpired, err)}
		} else {
			log.Err(err).Msg("Token refresh failed for a session that has since ended")
			result = c.currentSession()
		}
	}

	c.lock.Lock()
	waiters := c.waiters
	c.waiters = nil
	if err != nil {
		c.setState(StateFailed)
	}
	c.setState(StateIdle)
	c.metrics.setWaiters(0)
	c.lock.Unlock()

	for _, w := range waiters {
		w <- result
	}
}

// currentSession resolves waiters of a refresh whose session was replaced by
// a login or ended by a logout while the call was in flight.
func (c *Coordinator) currentSession() refreshResult {
	if access, ok := c.store.Get(credentials.FieldAccess); ok {
		return refreshResult{access: access}
	}
	return refreshResult{err: ErrUnauthenticated}
}

// call invokes the refresher, turning a panic or an empty token into an error
// so waiters are always resolved.
func (c *Coordinator) call(ctx context.Context, refreshToken string) (access string, err error) {
	defer func() {
		if r := recover(); r != nil {
			access, err = "", fmt.Errorf("refresher panicked: %v", r)
		}
	}()

	access, err = c.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	if access == "" {
		return "", errNoAccessToken
	}
	return access, nil
}

func (c *Coordinator) setState(s RefreshState) {
	log.Debug().Stringer("from", c.state).Stringer("to", s).Msg("Refresh state change")
	c.state = s
	if c.observe != nil {
		c.observe(s)
	}
}
