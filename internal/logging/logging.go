// Package logging configures zerolog for switchboard and bridges log
// output into the ("debug", "log") plugin hook.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// AppName names the XDG state directory.
const AppName = "switchboard"

// Options controls SetupLogger.
type Options struct {
	// Verbosity maps to a level: 0 warn, 1 info, 2 debug, 3+ trace.
	Verbosity int

	// File is an extra log destination. Empty disables file logging;
	// "default" uses DefaultLogPath.
	File string

	// Out is the console destination, stderr when nil.
	Out io.Writer

	// NoColor disables console colors.
	NoColor bool
}

// LevelFor returns the zerolog level for a verbosity count.
func LevelFor(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

// SetupLogger configures the global logger and returns it together with a
// closer for the log file, if one was opened.
func SetupLogger(opts Options) (zerolog.Logger, io.Closer) {
	zerolog.SetGlobalLevel(LevelFor(opts.Verbosity))

	out := opts.Out
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    opts.NoColor,
	}}

	var closer io.Closer = nopCloser{}
	path := opts.File
	if path == "default" {
		path = DefaultLogPath()
	}

	var fileErr error
	if path != "" {
		f, err := openLogFile(path)
		if err != nil {
			fileErr = err
		} else {
			writers = append(writers, f)
			closer = f
		}
	}

	logger := zerolog.New(io.MultiWriter(writers...)).With().Timestamp().Logger()
	if opts.Verbosity >= 2 {
		logger = logger.With().Caller().Logger()
	}
	log.Logger = logger

	if fileErr != nil {
		logger.Warn().Err(fileErr).Str("path", path).Msg("Failed to open log file, logging to console only")
	}
	logger.Debug().Int("verbosity", opts.Verbosity).Str("logFile", path).Msg("Logger initialized")

	return logger, closer
}

// GetLogger returns a child of the global logger tagged with component.
func GetLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// DefaultLogPath returns the log file location under the XDG state home.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, AppName, AppName+".log")
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
