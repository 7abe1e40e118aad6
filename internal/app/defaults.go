package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Environment variables that override the default locations.
const (
	EnvConfigPath = "ZIMP_CONFIG_PATH"
	EnvHome       = "ZIMP_HOME"
)

// Defaults holds the default locations of zimp's files.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// LoadEnv reads a .env file in the working directory, if there is one.
// Variables already set in the environment win.
func LoadEnv() error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// GetDefaults returns application default paths, checking environment variables first.
//   - ZIMP_CONFIG_PATH: config file location (default: ~/.config/zimp.toml)
//   - ZIMP_HOME: base directory for zimp data (default: ~/.local/share/zimp)
func GetDefaults() (*Defaults, error) {
	configPath, err := fromEnvOrHome(EnvConfigPath, ".config", "zimp.toml")
	if err != nil {
		return nil, err
	}
	baseDir, err := fromEnvOrHome(EnvHome, ".local", "share", "zimp")
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

func fromEnvOrHome(env string, elem ...string) (string, error) {
	if path := os.Getenv(env); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(append([]string{homeDir}, elem...)...), nil
}
