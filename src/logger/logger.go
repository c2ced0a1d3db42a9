package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

const logFormat = `%{time:2006-01-02 15:04:05} %{level:.5s} [%{module}] %{message}`

var (
	initOnce sync.Once
	mu       sync.Mutex
	current  logging.Backend
)

func install(backend logging.Backend) {
	mu.Lock()
	defer mu.Unlock()
	current = backend
	logging.SetBackend(backend)
}

// -----------------------------------------------------------------------------

// Init installs the stdout backend and sets the level for every component.
// An empty level means INFO.
func Init(level string) error {
	if level == "" {
		level = "INFO"
	}
	lvl, err := logging.LogLevel(strings.ToUpper(level))
	if err != nil {
		return fmt.Errorf("invalid log level '%s': %w", level, err)
	}

	base := logging.NewLogBackend(os.Stdout, "", 0)
	formatted := logging.NewBackendFormatter(base, logging.MustStringFormatter(logFormat))
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(lvl, "")
	install(leveled)
	initOnce.Do(func() {})
	return nil
}

// -----------------------------------------------------------------------------

// UseBackend routes every component to the given backend and returns a func
// that reinstalls the previous one. Tests use it with a memory backend.
func UseBackend(backend logging.Backend) (restore func()) {
	initOnce.Do(installDefault)
	mu.Lock()
	previous := current
	mu.Unlock()

	install(backend)
	return func() { install(previous) }
}

func installDefault() {
	base := logging.NewLogBackend(os.Stdout, "", 0)
	install(logging.NewBackendFormatter(base, logging.MustStringFormatter(logFormat)))
}

// -----------------------------------------------------------------------------

// Logger provides component-scoped leveled logging
type Logger struct {
	name   string
	logger *logging.Logger
	config interface{}
}

// -----------------------------------------------------------------------------

// NewLogger creates a new Logger instance
func NewLogger(config interface{}, name string) *Logger {
	// Callers that never ran Init still get formatted output.
	initOnce.Do(installDefault)
	return &Logger{
		name:   name,
		logger: logging.MustGetLogger(name),
		config: config,
	}
}

// -----------------------------------------------------------------------------

// Name returns the component name
func (l *Logger) Name() string {
	return l.name
}

// -----------------------------------------------------------------------------

// Debug logs diagnostic messages
func (l *Logger) Debug(format string, args ...interface{}) {
	l.logger.Debugf(format, args...)
}

// -----------------------------------------------------------------------------

// Info logs informational messages
func (l *Logger) Info(format string, args ...interface{}) {
	l.logger.Infof(format, args...)
}

// -----------------------------------------------------------------------------

// Warning logs recoverable problems
func (l *Logger) Warning(format string, args ...interface{}) {
	l.logger.Warningf(format, args...)
}

// -----------------------------------------------------------------------------

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	l.logger.Errorf(format, args...)
}

// -----------------------------------------------------------------------------

// Critical logs critical errors and exits the application
func (l *Logger) Critical(format string, args ...interface{}) {
	l.logger.Criticalf(format, args...)
	os.Exit(1)
}
