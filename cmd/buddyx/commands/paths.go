package commands

import (
	"os"
	"path/filepath"
	"runtime"
)

// dataDir returns the XDG_DATA_HOME-style directory this CLI uses for
// session snapshots and stored credentials. There is no separate
// Config/Cache/State split since this CLI owns no config-file loader.
func dataDir() string {
	return filepath.Join(getEnvOrDefault("XDG_DATA_HOME", defaultDataHome()), "buddyx")
}

func sessionDir() string {
	return filepath.Join(dataDir(), "sessions")
}

func authPath() string {
	return filepath.Join(dataDir(), "auth.json")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func defaultDataHome() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA")
	}
	return filepath.Join(os.Getenv("HOME"), ".local", "share")
}

func ensureDataDir() error {
	return os.MkdirAll(dataDir(), 0755)
}
