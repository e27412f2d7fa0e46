package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	configFileEnvVar = "GATEWAY_CONFIG"
	portEnvVar       = "PORT"
	appNameVar       = "APP_NAME"
	folderEnvVar     = "FOLDER"
	baseURLVar       = "BASE_URL"
	logLevelVar      = "LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Auth Gateway")
}

func (EnvVars) GetDataFolder() string {
	return GetEnv(folderEnvVar, "./data")
}

// GetBaseURL returns the public URL of the reference API (e.g., "https://api.example.com").
func (EnvVars) GetBaseURL() string {
	return GetEnv(baseURLVar, "http://localhost:8080")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

func (EnvVars) GetEnv() string {
	return GetEnv("ENV", "DEV")
}

var (
	overlayLock sync.RWMutex
	overlay     map[string]string
)

// LoadOverlay reads a flat YAML document of VARIABLE: value pairs. Environment
// variables always win over the file.
func LoadOverlay(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}

	raw := map[string]any{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	values := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			continue
		}
		values[strings.ToUpper(k)] = fmt.Sprint(v)
	}

	overlayLock.Lock()
	overlay = values
	overlayLock.Unlock()
	log.Debug().Str("path", path).Int("values", len(values)).Msg("Loaded config overlay")
	return nil
}

// ResetOverlay drops any values loaded by LoadOverlay.
func ResetOverlay() {
	overlayLock.Lock()
	overlay = nil
	overlayLock.Unlock()
}

func GetEnv(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}

	overlayLock.RLock()
	value, ok := overlay[envVar]
	overlayLock.RUnlock()
	if ok && value != "" {
		return value
	}
	return defaultValue
}

func GetDuration(envVar string, defaultValue time.Duration) time.Duration {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Warn().Err(err).Str("var", envVar).Msg("Invalid duration, using default")
		return defaultValue
	}
	return d
}

func GetInt(envVar string, defaultValue int) int {
	value := GetEnv(envVar, "")
	if value == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		log.Warn().Err(err).Str("var", envVar).Msg("Invalid integer, using default")
		return defaultValue
	}
	return i
}
