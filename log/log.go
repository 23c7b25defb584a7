// Package log writes pid-tagged diagnostics to a file in the data
// directory, and keeps a separate append-only error artifact with full
// failure detail. All functions are no-ops before Init.
package log

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog      zerolog.Logger
	diagFile     *os.File
	artifactPath string
	logMu        sync.Mutex
	logReady     bool
)

// Init opens diagnostics_log.txt under dir and routes error artifacts to
// error.log in the same directory.
func Init(dir string) error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	diagPath := filepath.Join(dir, "diagnostics_log.txt")
	f, err := os.OpenFile(diagPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	diagFile = f
	artifactPath = filepath.Join(dir, "error.log")

	consoleWriter := zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	diagLog = zerolog.New(consoleWriter).With().Timestamp().Int("pid", os.Getpid()).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	logReady = false
}

func Info(msg string) {
	if logReady {
		diagLog.Info().Msg(msg)
	}
}

func Infof(format string, args ...any) {
	if logReady {
		diagLog.Info().Msg(fmt.Sprintf(format, args...))
	}
}

func Warn(msg string) {
	if logReady {
		diagLog.Warn().Msg(msg)
	}
}

func Warnf(format string, args ...any) {
	if logReady {
		diagLog.Warn().Msg(fmt.Sprintf(format, args...))
	}
}

func Errorf(format string, args ...any) {
	if logReady {
		diagLog.Error().Msg(fmt.Sprintf(format, args...))
	}
}

// Artifact appends a timestamped block of failure detail to error.log.
// Used for transcription failures, which keep their full diagnostics even
// when the tray has already moved on.
func Artifact(detail string) {
	logMu.Lock()
	defer logMu.Unlock()
	if !logReady {
		return
	}
	f, err := os.OpenFile(artifactPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	fmt.Fprintf(f, "--- %s ---\n%s\n", time.Now().Format(time.RFC3339), detail)
}
