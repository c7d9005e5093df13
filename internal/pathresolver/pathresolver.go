// Package pathresolver derives the on-disk locations intern uses for its
// configuration file, database, and log files from the platform's user
// config directory.
package pathresolver

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const appDirName = "intern"

// Dir returns <user config dir>/intern, creating it if it does not exist.
func Dir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	dir := filepath.Join(base, appDirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	return dir, nil
}

// ConfigFile returns <config dir>/intern.json.
func ConfigFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "intern.json"), nil
}

// DatabaseFile returns <config dir>/intern.sqlite3.
func DatabaseFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "intern.sqlite3"), nil
}

// LogFile returns a fresh timestamped <config dir>/intern.<ts>.log path.
func LogFile() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("intern.%s.log", time.Now().UTC().Format("20060102T150405"))
	return filepath.Join(dir, name), nil
}
