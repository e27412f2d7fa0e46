package api

// LoginRequest is the body posted to the login endpoint.
type LoginRequest struct {
	// Username identifies the account.
	// Example: "alice"
	Username string `json:"username"`

	// Password is the account secret.
	// Security: Never log or expose this value
	Password string `json:"password"`
}

// SignupRequest is the body posted to the signup endpoint.
// The API validates the password length and that both passwords match.
type SignupRequest struct {
	// Username must be unique.
	// Example: "alice"
	Username string `json:"username"`

	// Email is optional contact information.
	// Example: "alice@example.com"
	Email string `json:"email,omitempty"`

	// Password must be at least six characters.
	Password string `json:"password"`

	// RepeatPassword must equal Password.
	RepeatPassword string `json:"repeat_password"`
}

// TokenResponse is returned by both login and signup.
type TokenResponse struct {
	// Access is the short-lived bearer token.
	// Usage: Include in Authorization header: "Bearer <access>"
	// Lifespan: Minutes
	Access string `json:"access"`

	// Refresh is the long-lived token used only at the refresh endpoint.
	// Lifespan: Hours to days; revoked on logout
	Refresh string `json:"refresh"`

	// Username is echoed back by signup. Login may omit it, in which case the
	// caller can look it up at the current-user endpoint.
	Username *string `json:"username,omitempty"`

	// Success is set by signup only.
	Success bool `json:"success,omitempty"`
}

// RefreshRequest is the body posted to the refresh endpoint.
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the newly minted access token.
// Only a 2xx status with a non-empty Access counts as success.
type RefreshResponse struct {
	Access string `json:"access"`
}

// LogoutRequest asks the API to revoke a refresh token.
type LogoutRequest struct {
	Refresh string `json:"refresh"`
}

// CurrentUser is returned by the current-user endpoint.
type CurrentUser struct {
	Username string `json:"username"`
}

// ErrorResponse is the body of every non-2xx answer from the API.
type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
