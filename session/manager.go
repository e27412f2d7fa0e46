// Package session signs the user in and out. It writes the credential
// store after login or signup, clears it on logout, and routes expired
// sessions back to the login screen.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/api"
	"github.com/jrsteele09/go-auth-gateway/credentials"
	"github.com/jrsteele09/go-auth-gateway/gateway"
	"github.com/jrsteele09/go-auth-gateway/internal/utils"
)

// DefaultLoginRoute is where unauthenticated users are sent.
const DefaultLoginRoute = "/login"

// ErrInvalidCredentials is returned when the API rejects a login.
var ErrInvalidCredentials = errors.New("invalid username or password")

// LoginRedirect is returned by RequireAuthenticated when no one is signed in.
type LoginRedirect struct {
	Route     string
	ReturnURL string
}

func (r *LoginRedirect) Error() string {
	return "authentication required: redirect to " + r.URL()
}

// URL is the login route with the return URL as the returnUrl query value.
func (r *LoginRedirect) URL() string {
	if r.ReturnURL == "" {
		return r.Route
	}
	return r.Route + "?" + url.Values{"returnUrl": {r.ReturnURL}}.Encode()
}

// Manager owns the sign-in lifecycle.
type Manager struct {
	client  *api.Client
	store   *credentials.Store
	gateway *gateway.Gateway

	loginRoute       string
	onLoggedOut      func()
	onSessionExpired func(error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithGateway enables CurrentUser and the identity lookup after login.
func WithGateway(gw *gateway.Gateway) Option {
	return func(m *Manager) {
		m.gateway = gw
	}
}

// WithLoginRoute overrides DefaultLoginRoute.
func WithLoginRoute(route string) Option {
	return func(m *Manager) {
		m.loginRoute = route
	}
}

// WithOnLoggedOut is called after every Logout, once the store is cleared.
func WithOnLoggedOut(fn func()) Option {
	return func(m *Manager) {
		m.onLoggedOut = fn
	}
}

// WithOnSessionExpired is called by Handle for errors that require a new
// login.
func WithOnSessionExpired(fn func(error)) Option {
	return func(m *Manager) {
		m.onSessionExpired = fn
	}
}

func NewManager(client *api.Client, store *credentials.Store, options ...Option) (*Manager, error) {
	if client == nil {
		return nil, errors.New("[NewManager] api client is required")
	}
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	m := &Manager{
		client:     client,
		store:      store,
		loginRoute: DefaultLoginRoute,
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Login exchanges identity and secret for a token pair and stores it. When
// the API does not echo the username it is fetched from the current-user
// endpoint; a failure there leaves the identity empty. The returned
// credential is what the store holds when Login returns.
func (m *Manager) Login(ctx context.Context, identity, secret string) (credentials.Credential, error) {
	resp, err := m.client.Login(ctx, identity, secret)
	if err != nil {
		var statusErr *api.StatusError
		if errors.As(err, &statusErr) && (statusErr.StatusCode == http.StatusUnauthorized || statusErr.StatusCode == http.StatusBadRequest) {
			return credentials.Credential{}, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
		return credentials.Credential{}, err
	}

	cred := credentials.Credential{
		Access:   resp.Access,
		Refresh:  resp.Refresh,
		Identity: utils.Value(resp.Username),
	}
	if err := m.store.Set(cred); err != nil {
		return credentials.Credential{}, fmt.Errorf("failed to store credentials: %w", err)
	}

	if cred.Identity == "" && m.gateway != nil {
		if user, err := m.CurrentUser(ctx); err != nil {
			log.Err(err).Msg("Failed to look up current user after login")
		} else if err := m.store.SetIdentity(user.Username); err != nil {
			log.Err(err).Msg("Failed to store identity")
		}
		// the lookup may have refreshed the access token or ended the session
		cred = m.store.Credential()
	}
	return cred, nil
}

// Signup registers an account and stores its first token pair.
func (m *Manager) Signup(ctx context.Context, req api.SignupRequest) (credentials.Credential, error) {
	resp, err := m.client.Signup(ctx, req)
	if err != nil {
		return credentials.Credential{}, err
	}

	cred := credentials.Credential{
		Access:   resp.Access,
		Refresh:  resp.Refresh,
		Identity: utils.Value(resp.Username),
	}
	if cred.Identity == "" {
		cred.Identity = req.Username
	}
	if err := m.store.Set(cred); err != nil {
		return credentials.Credential{}, fmt.Errorf("failed to store credentials: %w", err)
	}
	return cred, nil
}

// Logout revokes the refresh token on a best-effort basis, clears every
// stored field and then calls the logged-out callback. Only a failure to
// clear the store is returned.
func (m *Manager) Logout(ctx context.Context) error {
	if refresh, ok := m.store.Get(credentials.FieldRefresh); ok {
		if err := m.client.Logout(ctx, refresh); err != nil {
			log.Err(err).Msg("Logout request failed")
		}
	}

	err := m.store.Clear()
	if err != nil {
		log.Err(err).Msg("Failed to clear credentials")
	}
	if m.onLoggedOut != nil {
		m.onLoggedOut()
	}
	return err
}

func (m *Manager) IsAuthenticated() bool {
	return m.store.IsAuthenticated()
}

// Identity returns the stored username.
func (m *Manager) Identity() (string, bool) {
	return m.store.Get(credentials.FieldIdentity)
}

// CurrentUser asks the API who the access token belongs to.
func (m *Manager) CurrentUser(ctx context.Context) (*api.CurrentUser, error) {
	if m.gateway == nil {
		return nil, errors.New("current user lookup requires a gateway")
	}
	var user api.CurrentUser
	if err := m.gateway.DoJSON(ctx, http.MethodGet, m.client.Paths().CurrentUser, nil, &user); err != nil {
		return nil, m.Handle(err)
	}
	return &user, nil
}

// RequireAuthenticated returns nil for a signed-in user and a *LoginRedirect
// carrying returnURL otherwise.
func (m *Manager) RequireAuthenticated(returnURL string) error {
	if m.IsAuthenticated() {
		return nil
	}
	return &LoginRedirect{Route: m.loginRoute, ReturnURL: returnURL}
}

// Handle passes err through unchanged, first calling the session-expired
// callback when err means the user has to log in again.
func (m *Manager) Handle(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gateway.ErrSessionExpired) || errors.Is(err, gateway.ErrUnauthenticated) {
		log.Info().Err(err).Str("route", m.loginRoute).Msg("Session ended, login required")
		if m.onSessionExpired != nil {
			m.onSessionExpired(err)
		}
	}
	return err
}
