package build

import (
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btclog"
)

// LogType is an indicating the type of logging specified by the build flag.
type LogType byte

const (
	// LogTypeNone indicates no logging.
	LogTypeNone LogType = iota

	// LogTypeStdOut all logging is written directly to stdout.
	LogTypeStdOut

	// LogTypeDefault logs to both stderr and a given io.PipeWriter.
	LogTypeDefault
)

// String returns a human readable identifier for the logging type.
func (t LogType) String() string {
	switch t {
	case LogTypeNone:
		return "none"
	case LogTypeStdOut:
		return "stdout"
	case LogTypeDefault:
		return "default"
	default:
		return "unknown"
	}
}

// LogWriter is the writer behind every backend created by this package. The
// "stdlog" build flag makes it write to stdout only, "nolog" turns Write into
// a noop. Otherwise it writes to stderr and the RotatorPipe.
type LogWriter struct {
	// RotatorPipe is the write-end pipe for writing to the log rotator.
	// It is only used by the default build and may be nil.
	RotatorPipe *io.PipeWriter
}

// NewSubLogger constructs a new subsystem log from the current LogWriter
// implementation. Packages call it from init with a nil genSubLogger, which
// yields a disabled logger unless the build writes everything to stdout.
func NewSubLogger(subsystem string,
	genSubLogger func(string) btclog.Logger) btclog.Logger {

	switch Deployment {
	// For production builds, generate a new subsystem logger from the
	// primary log backend. If no function is provided, logging will be
	// disabled.
	case Production:
		if genSubLogger != nil {
			return genSubLogger(subsystem)
		}

	// Development builds either behave like production builds, or send
	// every sub-logger straight to stdout for unit tests.
	case Development:
		switch LoggingType {
		case LogTypeDefault:
			if genSubLogger != nil {
				return genSubLogger(subsystem)
			}

		case LogTypeStdOut:
			backend := btclog.NewBackend(&LogWriter{})
			logger := backend.Logger(subsystem)

			// Use the level picked by the build flags.
			level, _ := btclog.LevelFromString(LogLevel)
			logger.SetLevel(level)

			return logger
		}
	}

	// For any other configurations, we'll disable logging.
	return btclog.Disabled
}

// SubLoggers is a type that holds a map of subsystem loggers keyed by their
// subsystem name.
type SubLoggers map[string]btclog.Logger

// LeveledSubLogger provides the ability to retrieve the subsystem loggers of
// a logger and set their log levels individually or all at once.
type LeveledSubLogger interface {
	// SubLoggers returns the map of all registered subsystem loggers.
	SubLoggers() SubLoggers

	// SupportedSubsystems returns a slice of strings containing the names
	// of the supported subsystems. Should ideally correspond to the keys
	// of the subsystem logger map and be sorted.
	SupportedSubsystems() []string

	// SetLogLevel assigns an individual subsystem logger a new log level.
	SetLogLevel(subsystemID string, logLevel string)

	// SetLogLevels assigns all subsystem loggers the same new log level.
	SetLogLevels(logLevel string)
}

// ParseAndSetDebugLevels parses a debug level string and applies it to the
// given logger. The string is either a single level for all
// subsystems, or a comma separated list of subsystem=level pairs, optionally
// preceded by a global level, e.g. "info,ZPAY=trace".
func ParseAndSetDebugLevels(level string, logger LeveledSubLogger) error {
	levels := strings.Split(level, ",")

	// A first entry without = is the level of all subsystems.
	if !strings.Contains(levels[0], "=") {
		if !validLogLevel(levels[0]) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", levels[0])
		}

		logger.SetLogLevels(levels[0])
		levels = levels[1:]
	}

	subLoggers := logger.SubLoggers()
	for _, pair := range levels {
		subsysID, logLevel, found := strings.Cut(pair, "=")
		if !found || strings.Contains(logLevel, "=") {
			return fmt.Errorf("the specified debug level has an "+
				"invalid subsystem/level pair [%v], use the "+
				"format subsystem1=level1,subsystem2=level2",
				pair)
		}

		if _, exists := subLoggers[subsysID]; !exists {
			return fmt.Errorf("the specified subsystem [%v] is "+
				"invalid, supported subsystems are %v",
				subsysID, logger.SupportedSubsystems())
		}

		if !validLogLevel(logLevel) {
			return fmt.Errorf("the specified debug level [%v] is "+
				"invalid", logLevel)
		}

		logger.SetLogLevel(subsysID, logLevel)
	}

	return nil
}

// validLogLevel returns whether or not logLevel is a valid debug log level.
func validLogLevel(logLevel string) bool {
	_, ok := btclog.LevelFromString(logLevel)
	return ok
}
