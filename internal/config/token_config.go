package config

import "time"

type Tokens struct{}

var _ TokenConfig = Tokens{}

func (Tokens) GetAccessTokenExpiry() time.Duration {
	return GetDuration("ACCESS_TOKEN_EXPIRY", 5*time.Minute)
}

func (Tokens) GetRefreshTokenExpiry() time.Duration {
	return GetDuration("REFRESH_TOKEN_EXPIRY", 24*time.Hour)
}

func (Tokens) GetRefreshTokenLength() int {
	return 32 // 32 bytes = 256 bits
}

func (Tokens) GetSigningSecret() string {
	return GetEnv("TOKEN_SECRET", "dev-only-signing-secret")
}

func (Tokens) GetIssuer() string {
	return EnvVars{}.GetBaseURL()
}
