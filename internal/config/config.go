package config

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

// DirEnv overrides the data directory.
const DirEnv = "NORMATRACK_DIR"

// GetDataDir resolves the base directory for all normatrack storage. It checks
// NORMATRACK_DIR first, then XDG paths, and finally falls back to the user's
// home directory.
func GetDataDir() string {
	if explicit := os.Getenv(DirEnv); explicit != "" {
		return explicit
	}

	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home := xdg.Home
		if home == "" {
			var err error
			home, err = os.UserHomeDir()
			if err != nil {
				return filepath.Join(os.TempDir(), "normatrack")
			}
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	return filepath.Join(dataHome, "normatrack")
}

// GetDBPath returns the absolute path to the SQLite database file.
func GetDBPath() string {
	return filepath.Join(GetDataDir(), "snapshots.db")
}

// GetObjectsDir returns the directory that stores archived raw markup.
func GetObjectsDir() string {
	return filepath.Join(GetDataDir(), "objects")
}

// GetConfigPath returns the default location of the config file.
func GetConfigPath() string {
	return filepath.Join(GetDataDir(), DefaultConfigFile)
}
