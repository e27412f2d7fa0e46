package gateway_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jrsteele09/go-auth-gateway/api"
	"github.com/jrsteele09/go-auth-gateway/credentials"
	credentialrepofake "github.com/jrsteele09/go-auth-gateway/credentials/repofake"
	"github.com/jrsteele09/go-auth-gateway/gateway"
)

const (
	testAccess     = "A1"
	testNewAccess  = "A2"
	testRefresh    = "R1"
	testIdentity   = "alice"
	testDataPath   = "/data"
	testWaitFor    = 5 * time.Second
	testPollPeriod = 5 * time.Millisecond
)

// seenRequest is one request as received by the fake API.
type seenRequest struct {
	auth      string
	requestID string
	body      string
}

// fakeAPI answers 200 to requests bearing the accepted token and 401 to the
// rest. A non-zero status overrides the success status.
type fakeAPI struct {
	store *credentials.Store

	lock     sync.Mutex
	accepted string
	status   int
	seen     []seenRequest

	// replays carrying the accepted token while the store still held another
	early atomic.Int32
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.lock.Lock()
	f.seen = append(f.seen, seenRequest{
		auth:      r.Header.Get("Authorization"),
		requestID: r.Header.Get(gateway.HeaderRequestID),
		body:      string(body),
	})
	accepted, status := f.accepted, f.status
	f.lock.Unlock()

	if accepted == "" || r.Header.Get("Authorization") != "Bearer "+accepted {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"token not valid"}`))
		return
	}
	if stored, _ := f.store.Get(credentials.FieldAccess); stored != accepted {
		f.early.Add(1)
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprintf(w, `{"path":%q,"body":%q}`, r.URL.Path, string(body))
}

func (f *fakeAPI) configure(accepted string, status int) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.accepted, f.status = accepted, status
}

func (f *fakeAPI) requests() []seenRequest {
	f.lock.Lock()
	defer f.lock.Unlock()
	return append([]seenRequest(nil), f.seen...)
}

// fakeRefresher returns a fixed outcome, optionally holding every call until
// release is closed.
type fakeRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	access  string
	err     error
	tokens  chan string
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (string, error) {
	f.calls.Add(1)
	if f.tokens != nil {
		f.tokens <- refreshToken
	}
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.access, f.err
}

// testFixture holds all test dependencies
type testFixture struct {
	store       *credentials.Store
	api         *fakeAPI
	server      *httptest.Server
	refresher   *fakeRefresher
	coordinator *gateway.Coordinator
	gateway     *gateway.Gateway
}

func setupTestFixture(t *testing.T, refresher *fakeRefresher) *testFixture {
	t.Helper()

	store := credentials.NewStore(credentialrepofake.NewFakeCredentialRepo())
	fake := &fakeAPI{store: store, accepted: testNewAccess}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	coordinator, err := gateway.NewCoordinator(store, refresher, gateway.WithRefreshTimeout(testWaitFor))
	require.NoError(t, err)
	gw, err := gateway.New(server.URL, store, coordinator)
	require.NoError(t, err)

	return &testFixture{
		store:       store,
		api:         fake,
		server:      server,
		refresher:   refresher,
		coordinator: coordinator,
		gateway:     gw,
	}
}

func (f *testFixture) signIn(t *testing.T, access, refresh string) {
	t.Helper()
	require.NoError(t, f.store.Set(credentials.Credential{Access: access, Refresh: refresh, Identity: testIdentity}))
}

func (f *testFixture) get(ctx context.Context) (*http.Response, error) {
	return f.gateway.Do(ctx, gateway.NewRequest(http.MethodGet, testDataPath, nil))
}

// waitForWaiters blocks until n callers are queued on the coordinator, then
// lets the refresh complete.
func (f *testFixture) waitForWaiters(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return f.coordinator.Waiting() == n
	}, testWaitFor, testPollPeriod)
	close(f.refresher.release)
}

func TestGateway_ReplaysWithRefreshedToken(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess, tokens: make(chan string, 1)})
	f.signIn(t, testAccess, testRefresh)

	resp, err := f.get(context.Background())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Equal(t, int32(1), f.refresher.calls.Load())
	require.Equal(t, testRefresh, <-f.refresher.tokens)

	access, ok := f.store.Get(credentials.FieldAccess)
	require.True(t, ok)
	require.Equal(t, testNewAccess, access)
	refresh, _ := f.store.Get(credentials.FieldRefresh)
	require.Equal(t, testRefresh, refresh)

	seen := f.api.requests()
	require.Len(t, seen, 2)
	require.Equal(t, "Bearer "+testAccess, seen[0].auth)
	require.Equal(t, "Bearer "+testNewAccess, seen[1].auth)
	require.NotEmpty(t, seen[0].requestID)
	require.Equal(t, seen[0].requestID, seen[1].requestID)
	require.Zero(t, f.api.early.Load())
	require.Equal(t, gateway.StateIdle, f.coordinator.State())
}

func TestGateway_ConcurrentUnauthorizedShareOneRefresh(t *testing.T) {
	for _, n := range []int{1, 2, 5, 50} {
		t.Run(fmt.Sprintf("%d requests", n), func(t *testing.T) {
			f := setupTestFixture(t, &fakeRefresher{access: testNewAccess, release: make(chan struct{})})
			f.signIn(t, testAccess, testRefresh)

			statuses := make([]int, n)
			var g errgroup.Group
			for i := range n {
				g.Go(func() error {
					resp, err := f.get(context.Background())
					if err != nil {
						return err
					}
					defer resp.Body.Close()
					statuses[i] = resp.StatusCode
					return nil
				})
			}

			f.waitForWaiters(t, n)
			require.NoError(t, g.Wait())

			require.Equal(t, int32(1), f.refresher.calls.Load())
			for _, status := range statuses {
				require.Equal(t, http.StatusOK, status)
			}
			require.Len(t, f.api.requests(), 2*n)
			require.Zero(t, f.api.early.Load())

			access, _ := f.store.Get(credentials.FieldAccess)
			require.Equal(t, testNewAccess, access)
		})
	}
}

func TestGateway_RefreshFailureExpiresSession(t *testing.T) {
	const n = 2
	rejected := &api.StatusError{StatusCode: http.StatusUnauthorized, Body: `{"detail":"token not valid"}`}
	f := setupTestFixture(t, &fakeRefresher{err: rejected, release: make(chan struct{})})
	f.signIn(t, testAccess, testRefresh)

	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.get(context.Background())
		}()
	}

	f.waitForWaiters(t, n)
	wg.Wait()

	require.Equal(t, int32(1), f.refresher.calls.Load())
	for _, err := range errs {
		require.ErrorIs(t, err, gateway.ErrSessionExpired)
		var statusErr *api.StatusError
		require.ErrorAs(t, err, &statusErr)
		require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	}

	for _, field := range credentials.Fields {
		_, ok := f.store.Get(field)
		require.False(t, ok, "field %s should be cleared", field)
	}
	require.False(t, f.store.IsAuthenticated())
	require.Len(t, f.api.requests(), n)
}

func TestGateway_NoRefreshTokenIsUnauthenticated(t *testing.T) {
	tests := []struct {
		name   string
		signIn func(t *testing.T, f *testFixture)
	}{
		{
			name: "access only",
			signIn: func(t *testing.T, f *testFixture) {
				require.NoError(t, f.store.Set(credentials.Credential{Access: testAccess}))
			},
		},
		{
			name:   "signed out",
			signIn: func(*testing.T, *testFixture) {},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, &fakeRefresher{access: testNewAccess})
			tt.signIn(t, f)

			resp, err := f.get(context.Background())
			require.Nil(t, resp)
			require.ErrorIs(t, err, gateway.ErrUnauthenticated)
			require.Zero(t, f.refresher.calls.Load())
			require.Len(t, f.api.requests(), 1)
		})
	}
}

func TestGateway_SignedOutRequestHasNoAuthorization(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{})

	_, err := f.get(context.Background())
	require.ErrorIs(t, err, gateway.ErrUnauthenticated)

	seen := f.api.requests()
	require.Len(t, seen, 1)
	require.Empty(t, seen[0].auth)
}

func TestGateway_UnauthorizedReplayIsTerminal(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess})
	f.api.configure("", 0)
	f.signIn(t, testAccess, testRefresh)

	resp, err := f.get(context.Background())
	require.Nil(t, resp)
	require.ErrorIs(t, err, gateway.ErrAuthorizationFailure)
	require.NotErrorIs(t, err, gateway.ErrSessionExpired)

	var statusErr *gateway.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Contains(t, string(statusErr.Body), "token not valid")

	require.Equal(t, int32(1), f.refresher.calls.Load())
	require.Len(t, f.api.requests(), 2)

	// the session survives; only the refresh failure path clears it
	access, _ := f.store.Get(credentials.FieldAccess)
	require.Equal(t, testNewAccess, access)
	refresh, _ := f.store.Get(credentials.FieldRefresh)
	require.Equal(t, testRefresh, refresh)
}

func TestGateway_OtherStatusesPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			f := setupTestFixture(t, &fakeRefresher{access: "unused"})
			f.api.configure(testAccess, status)
			f.signIn(t, testAccess, testRefresh)

			resp, err := f.get(context.Background())
			require.NoError(t, err)
			defer resp.Body.Close()
			require.Equal(t, status, resp.StatusCode)
			require.Zero(t, f.refresher.calls.Load())
		})
	}
}

func TestGateway_TransportErrorIsNotRetried(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess})
	f.signIn(t, testAccess, testRefresh)
	f.server.Close()

	resp, err := f.get(context.Background())
	require.Nil(t, resp)

	var transportErr *gateway.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, http.MethodGet, transportErr.Method)
	require.True(t, strings.HasSuffix(transportErr.URL, testDataPath))
	require.Zero(t, f.refresher.calls.Load())

	access, _ := f.store.Get(credentials.FieldAccess)
	require.Equal(t, testAccess, access)
}

func TestGateway_CancelledWaiterDoesNotStopRefresh(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess, release: make(chan struct{})})
	f.signIn(t, testAccess, testRefresh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.get(ctx)
		done <- err
	}()

	require.Eventually(t, func() bool {
		return f.coordinator.Waiting() == 1
	}, testWaitFor, testPollPeriod)
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	close(f.refresher.release)
	require.Eventually(t, func() bool {
		return f.coordinator.State() == gateway.StateIdle
	}, testWaitFor, testPollPeriod)

	access, _ := f.store.Get(credentials.FieldAccess)
	require.Equal(t, testNewAccess, access)
	require.Equal(t, int32(1), f.refresher.calls.Load())
}

func TestGateway_DoJSON(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess})
	f.signIn(t, testAccess, testRefresh)

	var out struct {
		Path string `json:"path"`
		Body string `json:"body"`
	}
	err := f.gateway.DoJSON(context.Background(), http.MethodPost, testDataPath, map[string]string{"title": "draft"}, &out)
	require.NoError(t, err)
	require.Equal(t, testDataPath, out.Path)
	require.JSONEq(t, `{"title":"draft"}`, out.Body)

	seen := f.api.requests()
	require.Len(t, seen, 2)
	require.Equal(t, seen[0].body, seen[1].body)

	f.api.configure(testNewAccess, http.StatusNotFound)
	err = f.gateway.DoJSON(context.Background(), http.MethodGet, testDataPath, nil, nil)
	var statusErr *gateway.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	require.NotErrorIs(t, err, gateway.ErrAuthorizationFailure)
}

func TestGateway_Transport(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess})
	f.signIn(t, testAccess, testRefresh)

	client := &http.Client{Transport: f.gateway.Transport()}
	resp, err := client.Post(f.server.URL+testDataPath, "text/plain", strings.NewReader("hello"))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	seen := f.api.requests()
	require.Len(t, seen, 2)
	require.Equal(t, "hello", seen[0].body)
	require.Equal(t, "hello", seen[1].body)
	require.Equal(t, int32(1), f.refresher.calls.Load())

	f.api.configure("", 0)
	_, err = client.Get(f.server.URL + testDataPath)
	require.ErrorIs(t, err, gateway.ErrAuthorizationFailure)
}

func TestGateway_KeepsCallerRequestID(t *testing.T) {
	f := setupTestFixture(t, &fakeRefresher{access: testNewAccess})
	f.signIn(t, testAccess, testRefresh)

	req := gateway.NewRequest(http.MethodGet, testDataPath, nil)
	req.Header.Set(gateway.HeaderRequestID, "req-42")
	resp, err := f.gateway.Do(context.Background(), req)
	require.NoError(t, err)
	resp.Body.Close()

	for _, seen := range f.api.requests() {
		require.Equal(t, "req-42", seen.requestID)
	}
}

func TestAuthorize(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "http://api.test/data", nil)

	require.Same(t, req, gateway.Authorize(req, ""))

	authorized := gateway.Authorize(req, testAccess)
	require.NotSame(t, req, authorized)
	require.Equal(t, "Bearer "+testAccess, authorized.Header.Get("Authorization"))
	require.Empty(t, req.Header.Get("Authorization"))
}
