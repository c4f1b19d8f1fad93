// Package paths resolves the configuration, data and export directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// appDir is the directory name used under every platform base directory.
const appDir = "organigrama"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "ORGANIGRAMA_CONFIG_DIR"
	EnvDataDir   = "ORGANIGRAMA_DATA_DIR"
	EnvExportDir = "ORGANIGRAMA_EXPORT_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/organigrama (fallback ~/.config/organigrama)
// macOS:   ~/Library/Application Support/organigrama
// Windows: %APPDATA%/organigrama
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_CONFIG_HOME", ".config")
	}
	return userDir()
}

// DefaultDataDir returns the platform-specific default data directory, the
// home of the database file and the preference keys.
//
// Linux:   $XDG_DATA_HOME/organigrama (fallback ~/.local/share/organigrama)
// macOS:   ~/Library/Application Support/organigrama
// Windows: %APPDATA%/organigrama
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", ".local", "share")
	}
	return userDir()
}

func xdgDir(env string, fallback ...string) (string, error) {
	if xdg := os.Getenv(env); xdg != "" {
		return filepath.Join(xdg, appDir), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appDir)...), nil
}

func userDir() (string, error) {
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appDir), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > ORGANIGRAMA_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config.yaml value > ORGANIGRAMA_DATA_DIR > DefaultDataDir().
func ResolveDataDir(flag, configYAMLValue string) (string, error) {
	if dir, ok, err := override(flag, configYAMLValue, EnvDataDir); ok {
		return dir, err
	}
	return DefaultDataDir()
}

// ResolveExportDir returns the download directory following the precedence
// chain: flag > config.yaml value > ORGANIGRAMA_EXPORT_DIR > the working
// directory.
func ResolveExportDir(flag, configYAMLValue string) (string, error) {
	if dir, ok, err := override(flag, configYAMLValue, EnvExportDir); ok {
		return dir, err
	}
	return platformDir.getwd()
}

func override(flag, configYAMLValue, env string) (string, bool, error) {
	for _, v := range []string{flag, configYAMLValue, os.Getenv(env)} {
		if v != "" {
			dir, err := filepath.Abs(v)
			return dir, true, err
		}
	}
	return "", false, nil
}
