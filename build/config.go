package build

import (
	"fmt"

	"github.com/btcsuite/btclog"
)

const (
	callSiteOff   = "off"
	callSiteShort = "short"
	callSiteLong  = "long"

	// Gzip is the name of the gzip log compressor.
	Gzip = "gzip"

	// Zstd is the name of the zstd log compressor.
	Zstd = "zstd"

	defaultLogCompressor = Gzip

	// DefaultMaxLogFiles is the default maximum number of log files to
	// keep.
	DefaultMaxLogFiles = 10

	// DefaultMaxLogFileSize is the default maximum log file size in MB.
	DefaultMaxLogFileSize = 20
)

// logCompressors maps the supported compressors to the file suffix of the
// rolled log files.
var logCompressors = map[string]string{
	Gzip: "gz",
	Zstd: "zst",
}

// SupportedLogCompressor returns whether or not the compressor is supported.
func SupportedLogCompressor(logCompressor string) bool {
	_, ok := logCompressors[logCompressor]
	return ok
}

// LogConfig holds logging configuration options.
//
//nolint:lll
type LogConfig struct {
	CallSite string            `long:"call-site" description:"Include the call-site of each log line." choice:"off" choice:"short" choice:"long"`
	File     *FileLoggerConfig `group:"file" namespace:"file" description:"The logger writing to the rotated log file."`
}

// Validate validates the LogConfig struct values.
func (c *LogConfig) Validate() error {
	switch c.CallSite {
	case callSiteOff, callSiteShort, callSiteLong:
	default:
		return fmt.Errorf("invalid call site option: %v", c.CallSite)
	}

	if !SupportedLogCompressor(c.File.Compressor) {
		return fmt.Errorf("invalid log compressor: %v",
			c.File.Compressor)
	}

	if c.File.MaxLogFiles < 0 {
		return fmt.Errorf("max log files must not be negative: %v",
			c.File.MaxLogFiles)
	}

	if c.File.MaxLogFileSize <= 0 {
		return fmt.Errorf("max log file size must be positive: %v",
			c.File.MaxLogFileSize)
	}

	return nil
}

// DefaultLogConfig returns the default logging config options.
func DefaultLogConfig() *LogConfig {
	return &LogConfig{
		CallSite: callSiteOff,
		File: &FileLoggerConfig{
			Compressor:     defaultLogCompressor,
			MaxLogFiles:    DefaultMaxLogFiles,
			MaxLogFileSize: DefaultMaxLogFileSize,
		},
	}
}

// BackendOptions returns the set of btclog.BackendOptions that the state of
// the config struct translates to.
func (c *LogConfig) BackendOptions() []btclog.BackendOption {
	switch c.CallSite {
	case callSiteShort:
		return []btclog.BackendOption{
			btclog.WithFlags(btclog.Lshortfile),
		}

	case callSiteLong:
		return []btclog.BackendOption{
			btclog.WithFlags(btclog.Llongfile),
		}
	}

	return nil
}

// FileLoggerConfig holds the options of the rotated log file.
//
//nolint:lll
type FileLoggerConfig struct {
	Disable        bool   `long:"disable" description:"Do not write a log file."`
	Compressor     string `long:"compressor" description:"Compression algorithm to use when rotating logs." choice:"gzip" choice:"zstd"`
	MaxLogFiles    int    `long:"max-files" description:"Maximum logfiles to keep (0 for no rotation)"`
	MaxLogFileSize int    `long:"max-file-size" description:"Maximum logfile size in MB"`
}
