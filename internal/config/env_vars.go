package config

import (
	"os"
	"path/filepath"
)

const (
	appNameVar    = "OPENLABS_APP_NAME"
	envVar        = "OPENLABS_ENV"
	logLevelVar   = "OPENLABS_LOG_LEVEL"
	sessionDirVar = "OPENLABS_SESSION_DIR"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Open Labs")
}

func (EnvVars) GetEnv() string {
	return GetEnv(envVar, "DEV")
}

func (EnvVars) GetLogLevel() string {
	return GetEnv(logLevelVar, "info")
}

// GetSessionDir returns the directory holding the persisted session file.
// Every process pointed at the same directory shares one session.
func (EnvVars) GetSessionDir() string {
	if dir := os.Getenv(sessionDirVar); dir != "" {
		return dir
	}
	if base, err := os.UserConfigDir(); err == nil {
		return filepath.Join(base, "openlabs")
	}
	return "./.openlabs"
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
