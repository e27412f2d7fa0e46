package session_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-auth-gateway/api"
	"github.com/jrsteele09/go-auth-gateway/auth"
	"github.com/jrsteele09/go-auth-gateway/credentials"
	credentialrepofake "github.com/jrsteele09/go-auth-gateway/credentials/repofake"
	"github.com/jrsteele09/go-auth-gateway/gateway"
	"github.com/jrsteele09/go-auth-gateway/internal/config"
	"github.com/jrsteele09/go-auth-gateway/server"
	"github.com/jrsteele09/go-auth-gateway/session"
	"github.com/jrsteele09/go-auth-gateway/token"
	"github.com/jrsteele09/go-auth-gateway/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-auth-gateway/token/refresh/repofake"
	"github.com/jrsteele09/go-auth-gateway/users"
	fakeuserrepo "github.com/jrsteele09/go-auth-gateway/users/repofake"
)

// clock is shared by the reference API's token managers.
type clock struct {
	lock sync.Mutex
	now  time.Time
}

func (c *clock) Now() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.now = c.now.Add(d)
}

// endToEnd runs the reference API in process and a client stack against it.
type endToEnd struct {
	clock       *clock
	service     *auth.AuthorizationService
	refreshes   atomic.Int32
	store       *credentials.Store
	coordinator *gateway.Coordinator
	manager     *session.Manager
	loggedOut   atomic.Int32
	expired     atomic.Int32
}

func setupEndToEnd(t *testing.T) *endToEnd {
	t.Helper()
	t.Setenv("ENV", "TEST")
	t.Setenv("REFRESH_TOKEN_EXPIRY", "1h")
	cfg, err := config.New()
	require.NoError(t, err)

	e := &endToEnd{clock: &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}}

	userRepo := fakeuserrepo.NewFakeUserRepo()
	hash, err := users.HashPassword("secret1")
	require.NoError(t, err)
	require.NoError(t, userRepo.Upsert(&users.User{Username: "alice", PasswordHash: hash}))

	tokenCreator := token.New(token.NewHMACSigner("test-secret"),
		token.WithAccessTokenExpiry(5*time.Minute),
		token.WithNowFunc(e.clock.Now))
	refreshTokens := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg, refresh.WithNowFunc(e.clock.Now))
	e.service, err = auth.NewAuthorizationService(userRepo, tokenCreator, refreshTokens, auth.WithNowTime(e.clock.Now))
	require.NoError(t, err)

	s, err := server.New(cfg, e.service)
	require.NoError(t, err)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == server.RouteTokenRefresh {
			e.refreshes.Add(1)
		}
		s.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	client := api.New(ts.URL)
	e.store = credentials.NewStore(credentialrepofake.NewFakeCredentialRepo())
	e.coordinator, err = gateway.NewCoordinator(e.store, client)
	require.NoError(t, err)
	gw, err := gateway.New(ts.URL, e.store, e.coordinator)
	require.NoError(t, err)

	e.manager, err = session.NewManager(client, e.store,
		session.WithGateway(gw),
		session.WithOnLoggedOut(func() { e.loggedOut.Add(1) }),
		session.WithOnSessionExpired(func(error) { e.expired.Add(1) }),
	)
	require.NoError(t, err)
	return e
}

func TestEndToEnd_SessionLifecycle(t *testing.T) {
	e := setupEndToEnd(t)
	ctx := context.Background()

	_, err := e.manager.CurrentUser(ctx)
	require.ErrorIs(t, err, gateway.ErrUnauthenticated)
	require.Equal(t, int32(1), e.expired.Load())

	cred, err := e.manager.Login(ctx, "alice", "secret1")
	require.NoError(t, err)
	require.Equal(t, "alice", cred.Identity)

	user, err := e.manager.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Zero(t, e.refreshes.Load())

	// the access token expires, the refresh token does not
	e.clock.Advance(10 * time.Minute)
	user, err = e.manager.CurrentUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, int32(1), e.refreshes.Load())

	current := e.store.Credential()
	require.NotEqual(t, cred.Access, current.Access)
	require.Equal(t, cred.Refresh, current.Refresh)
	require.Equal(t, "alice", current.Identity)

	require.NoError(t, e.manager.Logout(ctx))
	require.False(t, e.manager.IsAuthenticated())
	require.Equal(t, int32(1), e.loggedOut.Load())

	// the revoked pair no longer works anywhere
	_, err = e.service.Refresh(cred.Refresh)
	require.Error(t, err)
	_, err = e.service.Authenticate(current.Access)
	require.Error(t, err)
}

func TestEndToEnd_ConcurrentExpiryRefreshesOnce(t *testing.T) {
	for _, n := range []int{1, 2, 5, 25} {
		t.Run(fmt.Sprintf("%d callers", n), func(t *testing.T) {
			e := setupEndToEnd(t)
			_, err := e.manager.Login(context.Background(), "alice", "secret1")
			require.NoError(t, err)

			e.clock.Advance(10 * time.Minute)

			g, ctx := errgroup.WithContext(context.Background())
			for range n {
				g.Go(func() error {
					_, err := e.manager.CurrentUser(ctx)
					return err
				})
			}
			require.NoError(t, g.Wait())
			require.Equal(t, int32(1), e.refreshes.Load())
			require.Equal(t, gateway.StateIdle, e.coordinator.State())
		})
	}
}

func TestEndToEnd_RevokedElsewhereExpiresSession(t *testing.T) {
	e := setupEndToEnd(t)
	cred, err := e.manager.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	// another client logs this session out
	require.NoError(t, e.service.Logout(cred.Refresh))

	_, err = e.manager.CurrentUser(context.Background())
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	require.Equal(t, int32(1), e.refreshes.Load())
	require.Equal(t, int32(1), e.expired.Load())
	require.Equal(t, credentials.Credential{}, e.store.Credential())

	redirect := &session.LoginRedirect{}
	require.ErrorAs(t, e.manager.RequireAuthenticated("/profile"), &redirect)
	require.Equal(t, "/login?returnUrl=%2Fprofile", redirect.URL())
}

func TestEndToEnd_RefreshTokenExpiry(t *testing.T) {
	e := setupEndToEnd(t)
	_, err := e.manager.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)

	e.clock.Advance(2 * time.Hour)
	_, err = e.manager.CurrentUser(context.Background())
	require.ErrorIs(t, err, gateway.ErrSessionExpired)
	require.False(t, e.manager.IsAuthenticated())
}
