// Package logging wires intern's log sink through logrus, matching the
// five levels ("trace"|"debug"|"info"|"warn"|"error") named in
// configuration.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a logrus.Logger at the requested level, writing to path if
// non-empty (otherwise to stderr). An unrecognized level falls back to
// info rather than failing startup over a typo in logLevel.
func New(level, path string) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if path == "" {
		logger.SetOutput(os.Stderr)
		return logger, nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	logger.SetOutput(f)
	return logger, nil
}
