package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

var (
	mu      sync.RWMutex
	output  io.Writer = os.Stderr
	logFile *os.File
	logger  zerolog.Logger
)

func init() {
	initLogger()
}

func initLogger() {
	consoleWriter := zerolog.ConsoleWriter{
		Out:        output,
		TimeFormat: "15:04:05",
		NoColor:    logFile != nil, // Disable colors when writing to file
	}

	logger = zerolog.New(consoleWriter).With().Timestamp().Logger()
}

// SetOutputFile redirects all log output to filename, creating its directory.
// The terminal UI owns stdout, so the client always logs to a file.
func SetOutputFile(filename string) error {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	output = f
	initLogger()
	return nil
}

// SetOutput sends log output to w. Used by tests and by the server.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	initLogger()
}

// CloseLogFile closes the log file if it's open and falls back to stderr.
func CloseLogFile() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
		output = os.Stderr
		initLogger()
	}
}

// SetLevel sets the global log level; unknown names fall back to info.
func SetLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func current() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := logger
	return &l
}

// With returns a child logger carrying a single string field, for
// per-request or per-component context.
func With(key, value string) zerolog.Logger {
	return current().With().Str(key, value).Logger()
}

func Debug(msg string) {
	current().Debug().Msg(msg)
}

func Debugf(format string, v ...interface{}) {
	current().Debug().Msgf(format, v...)
}

func Info(msg string) {
	current().Info().Msg(msg)
}

func Infof(format string, v ...interface{}) {
	current().Info().Msgf(format, v...)
}

func Warn(msg string) {
	current().Warn().Msg(msg)
}

func Warnf(format string, v ...interface{}) {
	current().Warn().Msgf(format, v...)
}

// Error logs an error message with the error object
func Error(msg string, err error) {
	current().Error().Err(err).Msg(msg)
}

// Errorf logs an error message with formatting and the error object
func Errorf(format string, err error, v ...interface{}) {
	current().Error().Err(err).Msgf(format, v...)
}
