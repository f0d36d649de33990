package config

import (
	"os"
	"path/filepath"
)

const appDir = "polytlai"

func baseDir() string {
	if dir, err := os.UserConfigDir(); err == nil && dir != "" {
		return filepath.Join(dir, appDir)
	}
	return "." + appDir
}

// DefaultPath is where the CLI looks for config.yaml.
func DefaultPath() string {
	return filepath.Join(baseDir(), "config.yaml")
}

// DefaultStorePath is the SQLite file holding saved keys and preferences.
func DefaultStorePath() string {
	return filepath.Join(baseDir(), "polytlai.db")
}
