package config

import (
	"os"
	"path/filepath"
)

const (
	// ConfigDirName is the directory name for launchwarden config.
	ConfigDirName = ".launchwarden"
	// ConfigFileName is the config file name within the config directory.
	ConfigFileName = "config.yaml"
)

// DiscoverConfig finds the config file using walk-up discovery.
// Search order:
//  1. Walk up from cwd looking for .launchwarden/config.yaml
//  2. Fall back to ~/.launchwarden/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func DiscoverConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return existing(homeConfigPath())
	}

	dir := cwd
	for {
		configPath := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if fileExists(configPath) {
			return configPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return existing(homeConfigPath())
}

// homeConfigPath returns the path to ~/.launchwarden/config.yaml
func homeConfigPath() string {
	return ExpandPath("~/" + ConfigDirName + "/" + ConfigFileName)
}

func existing(path string) string {
	if fileExists(path) {
		return path
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
