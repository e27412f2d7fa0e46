package config

import "time"

type Config interface {
	EnvConfig
	CorsConfig
	GatewayConfig
	StoreConfig
	TokenConfig
	SeedConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetDataFolder() string
	GetBaseURL() string
	GetLogLevel() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

// GatewayConfig describes where the client finds the backing API.
type GatewayConfig interface {
	GetAPIBaseURL() string
	GetLoginPath() string
	GetSignupPath() string
	GetRefreshPath() string
	GetLogoutPath() string
	GetCurrentUserPath() string
	GetRequestTimeout() time.Duration
	GetRefreshTimeout() time.Duration
}

// StoreConfig selects and configures the durable credential backend.
type StoreConfig interface {
	GetStoreBackend() string
	GetStoreFilePath() string
	GetKeyringService() string
	GetRedisAddr() string
	GetRedisDB() int
	GetRedisPrefix() string
	GetSQLiteDSN() string
}

// TokenConfig holds the reference API token settings.
type TokenConfig interface {
	GetAccessTokenExpiry() time.Duration
	GetRefreshTokenExpiry() time.Duration
	GetRefreshTokenLength() int
	GetSigningSecret() string
	GetIssuer() string
}

// SeedConfig names an account the reference API creates at startup.
type SeedConfig interface {
	GetSeedUsername() string
	GetSeedPassword() string
}

type mainConfig struct {
	EnvVars
	Cors
	Gateway
	Store
	Tokens
	Seed
}

// New returns the environment backed configuration. When GATEWAY_CONFIG names a
// YAML file its values are used for any variable not set in the environment.
func New() (Config, error) {
	if path := GetEnv(configFileEnvVar, ""); path != "" {
		if err := LoadOverlay(path); err != nil {
			return nil, err
		}
	}
	return mainConfig{}, nil
}
