// Package logging provides the shared structured logger for the engine.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	mu      sync.RWMutex
	base    = newDefaultLogger()
	logFile *os.File
)

// Config holds logger configuration.
type Config struct {
	Level      string // "debug", "info", "warn", "error"
	OutputPath string // empty for stderr, or a file path
	Format     string // "json" or "text"
}

func newDefaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

// Init configures the shared logger. It may be called once at startup;
// components obtain entries through WithComponent and never reconfigure.
func Init(config Config) error {
	mu.Lock()
	defer mu.Unlock()

	level := logrus.InfoLevel
	if config.Level != "" {
		parsed, err := logrus.ParseLevel(config.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", config.Level)
		}
		level = parsed
	}

	var writer io.Writer = os.Stderr
	if config.OutputPath != "" {
		if err := os.MkdirAll(filepath.Dir(config.OutputPath), 0o750); err != nil {
			return errors.Wrap(err, "failed to create log directory")
		}
		file, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return errors.Wrap(err, "failed to open log file")
		}
		writer = file
		logFile = file
	}

	base.SetLevel(level)
	base.SetOutput(writer)
	if config.Format == "json" {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return nil
}

// Close releases the log file handle if one was opened.
func Close() error {
	mu.Lock()
	defer mu.Unlock()

	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	base.SetOutput(os.Stderr)
	return err
}

// WithComponent returns an entry tagged with the originating component,
// e.g. "PageStore" or "LockManager".
func WithComponent(name string) *logrus.Entry {
	mu.RLock()
	defer mu.RUnlock()
	return base.WithField("component", name)
}
