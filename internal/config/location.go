package config

import (
	"os"
	"path/filepath"
)

// ConfigEnv overrides the config file location.
const ConfigEnv = "NB_CONFIG"

// GetConfigPath returns the config file path: $NB_CONFIG when set, else
// ~/.nativebridge/config, or ~/.nativebridge/config.toml when only the TOML
// file exists.
func GetConfigPath() (string, error) {
	if configPath := os.Getenv(ConfigEnv); configPath != "" {
		return configPath, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(homeDir, ".nativebridge")
	plain := filepath.Join(configDir, "config")
	if _, err := os.Lstat(plain); os.IsNotExist(err) {
		withExt := plain + ".toml"
		if _, err := os.Lstat(withExt); err == nil {
			return withExt, nil
		}
	}
	return plain, nil
}
