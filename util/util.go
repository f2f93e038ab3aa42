// Package util holds the process-wide logger.
//
// The logger is a no-op until SetLogging(true) or SetLogger is called,
// so library code can log freely.
package util

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	logger = zap.NewNop()

	// Logging reports whether SetLogging(true) is in effect.
	Logging = false
)

// Logger returns the current logger.
func Logger() *zap.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	return l
}

// SetLogger installs the given logger.  A nil logger means no-op.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	logger = l
	Logging = true
	mu.Unlock()
}

// SetLogging is a clumsy switch: true installs a console logger at
// debug level on stderr, and false installs a no-op logger.
func SetLogging(on bool) {
	if !on {
		mu.Lock()
		logger = zap.NewNop()
		Logging = false
		mu.Unlock()
		return
	}
	SetLogger(NewConsoleLogger(zapcore.DebugLevel))
}

// NewConsoleLogger makes a human-oriented logger writing to stderr.
func NewConsoleLogger(level zapcore.Level) *zap.Logger {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(os.Stderr),
		level,
	)
	return zap.New(core)
}

// Logf is a silly utility function that logs at debug level if
// Logging is true.
func Logf(format string, args ...interface{}) {
	mu.RLock()
	on, l := Logging, logger
	mu.RUnlock()
	if !on {
		return
	}
	l.Sugar().Debugf(format, args...)
}
