package config

import "path/filepath"

const (
	StoreBackendMemory  = "memory"
	StoreBackendFile    = "file"
	StoreBackendKeyring = "keyring"
	StoreBackendRedis   = "redis"
	StoreBackendSQLite  = "sqlite"
)

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetStoreBackend() string {
	return GetEnv("STORE_BACKEND", StoreBackendFile)
}

func (Store) GetStoreFilePath() string {
	return GetEnv("STORE_FILE", filepath.Join(EnvVars{}.GetDataFolder(), "credentials.json"))
}

func (Store) GetKeyringService() string {
	return GetEnv("KEYRING_SERVICE", "auth-gateway")
}

func (Store) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Store) GetRedisDB() int {
	return GetInt("REDIS_DB", 0)
}

func (Store) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "auth-gateway:")
}

func (Store) GetSQLiteDSN() string {
	return GetEnv("SQLITE_DSN", filepath.Join(EnvVars{}.GetDataFolder(), "credentials.db"))
}
