package logger

import (
	"strings"
	"sync"

	"github.com/rs/zerolog"

	corelogger "github.com/kilianp07/coopt/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger implements Logger with no-op methods.
type NopLogger struct{}

func (NopLogger) Debugf(string, ...any)         {}
func (NopLogger) Debugw(string, map[string]any) {}
func (NopLogger) Infof(string, ...any)          {}
func (NopLogger) Infow(string, map[string]any)  {}
func (NopLogger) Warnf(string, ...any)          {}
func (NopLogger) Errorf(string, ...any)         {}

var (
	levelMu sync.RWMutex
	level   = zerolog.InfoLevel
)

// SetLevel changes the minimum level of loggers created afterwards. Unknown
// names are rejected and leave the current level unchanged.
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	levelMu.Lock()
	level = lvl
	levelMu.Unlock()
	return nil
}

func currentLevel() zerolog.Level {
	levelMu.RLock()
	defer levelMu.RUnlock()
	return level
}

// New returns a Logger for the given component. The output format is selected
// through the APP_ENV variable.
func New(component string) Logger {
	return NewZerologLogger(component)
}
