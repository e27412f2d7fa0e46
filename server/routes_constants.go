package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes
	RouteLogin        = "/login"
	RouteSignup       = "/signup"
	RouteTokenRefresh = "/token/refresh"
	RouteLogout       = "/logout"

	// API Routes
	RouteCurrentUser = "/me"
	RouteHealth      = "/health"
)
