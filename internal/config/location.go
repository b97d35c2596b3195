package config

import (
	"os"
	"path/filepath"
)

// ConfigEnvVar overrides the configuration file location.
const ConfigEnvVar = "UIDRIVER_CONFIG"

// GetConfigPath returns $UIDRIVER_CONFIG, else ~/.uidriver/config.
func GetConfigPath() (string, error) {
	if p := os.Getenv(ConfigEnvVar); p != "" {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".uidriver", "config"), nil
}
