package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/go-auth-gateway/api"
	"github.com/jrsteele09/go-auth-gateway/auth"
	apperrors "github.com/jrsteele09/go-auth-gateway/internal/errors"
)

const maxRequestBody = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("Failed to write response")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, api.ErrorResponse{Error: code, Detail: detail})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object.")
		return false
	}
	return true
}

// PreflightHandler answers CORS preflight requests; the headers are set by
// CorsMiddleware.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// LoginHandler exchanges a username and password for a token pair.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LoginRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Username == "" || req.Password == "" {
			writeError(w, http.StatusBadRequest, "invalid_request", "Username and password are required.")
			return
		}

		pair, err := s.auth.Login(req.Username, req.Password)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidCredentials) || errors.Is(err, auth.UserBlockedErr) {
				// Don't reveal if the user exists or is blocked
				writeError(w, http.StatusUnauthorized, "no_active_account", "No active account found with the given credentials")
				return
			}
			log.Err(err).Msg("Login failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}

		writeJSON(w, http.StatusOK, api.TokenResponse{
			Access:   pair.Access,
			Refresh:  pair.Refresh,
			Username: &pair.Username,
		})
	}
}

// SignupHandler registers an account and signs it in.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.SignupRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		pair, err := s.auth.Signup(auth.SignupParameters{
			Username:       req.Username,
			Email:          req.Email,
			Password:       req.Password,
			RepeatPassword: req.RepeatPassword,
		})
		if err != nil {
			switch {
			case errors.Is(err, apperrors.ErrUserExists):
				writeError(w, http.StatusBadRequest, "user_exists", "A user with that username already exists.")
			case errors.Is(err, apperrors.ErrWeakPassword):
				writeError(w, http.StatusBadRequest, "weak_password", "Password must be at least 6 characters long.")
			case errors.Is(err, apperrors.ErrPasswordMismatch):
				writeError(w, http.StatusBadRequest, "password_mismatch", "Passwords do not match.")
			case errors.Is(err, apperrors.ErrInvalidRequest):
				writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
			default:
				log.Err(err).Msg("Signup failed")
				writeError(w, http.StatusInternalServerError, "internal_error", "")
			}
			return
		}

		writeJSON(w, http.StatusCreated, api.TokenResponse{
			Success:  true,
			Username: &pair.Username,
			Access:   pair.Access,
			Refresh:  pair.Refresh,
		})
	}
}

// TokenRefreshHandler mints a new access token. Any refresh token problem is
// a 401.
func (s *Server) TokenRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.RefreshRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		access, err := s.auth.Refresh(req.Refresh)
		if err != nil {
			if errors.Is(err, apperrors.ErrInvalidRefreshToken) ||
				errors.Is(err, apperrors.ErrRefreshTokenExpired) ||
				errors.Is(err, auth.UserBlockedErr) {
				writeUnauthorized(w, "Token is invalid or expired")
				return
			}
			log.Err(err).Msg("Token refresh failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}

		writeJSON(w, http.StatusOK, api.RefreshResponse{Access: access})
	}
}

// LogoutHandler revokes the posted refresh token.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req api.LogoutRequest
		if !decodeJSON(w, r, &req) {
			return
		}

		if err := s.auth.Logout(req.Refresh); err != nil {
			if errors.Is(err, apperrors.ErrInvalidRefreshToken) || errors.Is(err, apperrors.ErrRefreshTokenExpired) {
				writeError(w, http.StatusBadRequest, "token_not_valid", "Token is invalid or expired")
				return
			}
			log.Err(err).Msg("Logout failed")
			writeError(w, http.StatusInternalServerError, "internal_error", "")
			return
		}

		w.WriteHeader(http.StatusResetContent)
	}
}

// CurrentUserHandler returns the user the bearer token belongs to.
func (s *Server) CurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeUnauthorized(w, "Authentication credentials were not provided.")
			return
		}
		writeJSON(w, http.StatusOK, api.CurrentUser{Username: user.Username})
	}
}
