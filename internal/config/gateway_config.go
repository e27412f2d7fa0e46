package config

import "time"

type Gateway struct{}

var _ GatewayConfig = Gateway{}

func (Gateway) GetAPIBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8080")
}

func (Gateway) GetLoginPath() string {
	return GetEnv("API_LOGIN_PATH", "/login")
}

func (Gateway) GetSignupPath() string {
	return GetEnv("API_SIGNUP_PATH", "/signup")
}

func (Gateway) GetRefreshPath() string {
	return GetEnv("API_REFRESH_PATH", "/token/refresh")
}

func (Gateway) GetLogoutPath() string {
	return GetEnv("API_LOGOUT_PATH", "/logout")
}

func (Gateway) GetCurrentUserPath() string {
	return GetEnv("API_ME_PATH", "/me")
}

func (Gateway) GetRequestTimeout() time.Duration {
	return GetDuration("REQUEST_TIMEOUT", 30*time.Second)
}

// GetRefreshTimeout bounds the shared refresh call, independent of any caller.
func (Gateway) GetRefreshTimeout() time.Duration {
	return GetDuration("REFRESH_TIMEOUT", 15*time.Second)
}
