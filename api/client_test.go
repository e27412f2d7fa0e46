package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jrsteele09/go-auth-gateway/api"
	"github.com/jrsteele09/go-auth-gateway/internal/utils"
)

// newTestServer serves one handler per path and fails the test on any
// unexpected request.
func newTestServer(t *testing.T, handlers map[string]http.HandlerFunc) *api.Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := handlers[r.URL.Path]
		if !ok || r.Method != http.MethodPost {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		h(w, r)
	}))
	t.Cleanup(server.Close)
	return api.New(server.URL + "/")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_Login(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/login": func(w http.ResponseWriter, r *http.Request) {
			var req api.LoginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			if req.Username != "alice" || req.Password != "secret1" {
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "invalid credentials"})
				return
			}
			writeJSON(w, http.StatusOK, api.TokenResponse{Access: "A1", Refresh: "R1", Username: utils.Ptr("alice")})
		},
	})

	resp, err := client.Login(context.Background(), "alice", "secret1")
	require.NoError(t, err)
	require.Equal(t, "A1", resp.Access)
	require.Equal(t, "R1", resp.Refresh)
	require.Equal(t, "alice", utils.Value(resp.Username))

	_, err = client.Login(context.Background(), "alice", "wrong")
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	require.Contains(t, statusErr.Body, "invalid credentials")
}

func TestClient_Signup(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/signup": func(w http.ResponseWriter, r *http.Request) {
			var req api.SignupRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RepeatPassword != req.Password {
				writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "passwords do not match"})
				return
			}
			writeJSON(w, http.StatusCreated, api.TokenResponse{
				Success:  true,
				Username: utils.Ptr(req.Username),
				Access:   "A1",
				Refresh:  "R1",
			})
		},
	})

	resp, err := client.Signup(context.Background(), api.SignupRequest{
		Username:       "bob",
		Email:          "bob@example.com",
		Password:       "secret1",
		RepeatPassword: "secret1",
	})
	require.NoError(t, err)
	require.True(t, resp.Success)
	require.Equal(t, "bob", utils.Value(resp.Username))

	_, err = client.Signup(context.Background(), api.SignupRequest{Username: "bob", Password: "a", RepeatPassword: "b"})
	var statusErr *api.StatusError
	require.ErrorAs(t, err, &statusErr)
	require.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
}

func TestClient_Refresh(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantAccess string
		wantErr    error
		wantStatus int
	}{
		{
			name: "new access token",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var req api.RefreshRequest
				_ = json.NewDecoder(r.Body).Decode(&req)
				if req.Refresh != "R1" {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
				writeJSON(w, http.StatusOK, api.RefreshResponse{Access: "A2"})
			},
			wantAccess: "A2",
		},
		{
			name: "rejected refresh token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "token is invalid or expired"})
			},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantStatus: http.StatusBadGateway,
		},
		{
			name: "empty token",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				writeJSON(w, http.StatusOK, api.RefreshResponse{})
			},
			wantErr: api.ErrEmptyToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, map[string]http.HandlerFunc{"/token/refresh": tt.handler})

			access, err := client.Refresh(context.Background(), "R1")
			switch {
			case tt.wantStatus != 0:
				var statusErr *api.StatusError
				require.ErrorAs(t, err, &statusErr)
				require.Equal(t, tt.wantStatus, statusErr.StatusCode)
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			default:
				require.NoError(t, err)
				require.Equal(t, tt.wantAccess, access)
			}
		})
	}
}

func TestClient_Logout(t *testing.T) {
	var revoked string
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/logout": func(w http.ResponseWriter, r *http.Request) {
			var req api.LogoutRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			revoked = req.Refresh
			w.WriteHeader(http.StatusResetContent)
		},
	})

	require.NoError(t, client.Logout(context.Background(), "R1"))
	require.Equal(t, "R1", revoked)
}

func TestClient_CancelledContext(t *testing.T) {
	client := newTestServer(t, map[string]http.HandlerFunc{
		"/token/refresh": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, api.RefreshResponse{Access: "A2"})
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := client.Refresh(ctx, "R1")
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_Paths(t *testing.T) {
	client := api.New("http://api.test/", api.WithPaths(api.Paths{Refresh: "/auth/refresh"}))
	require.Equal(t, "http://api.test", client.BaseURL())
	require.Equal(t, "/auth/refresh", client.Paths().Refresh)
	require.Equal(t, "/login", api.DefaultPaths().Login)
}
