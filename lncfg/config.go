package lncfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/jessevdk/go-flags"
	"github.com/lightningnetwork/lninvoice/build"
	"github.com/lightningnetwork/lninvoice/chainreg"
)

const (
	// DefaultConfigFilename is the default configuration file name
	// lninvoice tries to load.
	DefaultConfigFilename = "lninvoice.conf"

	// DefaultLogDirname is the name of the log directory below the
	// application directory.
	DefaultLogDirname = "logs"

	// DefaultLogFilename is the name of the rotated log file.
	DefaultLogFilename = "lninvoice.log"

	// DefaultDebugLevel is the log level of all subsystems unless
	// configured otherwise.
	DefaultDebugLevel = "info"

	// DefaultNetwork is the network invoices are encoded for and expected
	// on when decoding.
	DefaultNetwork = "mainnet"

	// NetworkAuto makes the decoder take the network from the invoice
	// prefix instead of enforcing one.
	NetworkAuto = "auto"
)

var (
	// DefaultAppDir is the default application directory holding the
	// config file and logs.
	DefaultAppDir = btcutil.AppDataDir("lninvoice", false)

	// DefaultConfigFile is the default full path of the config file.
	DefaultConfigFile = filepath.Join(DefaultAppDir, DefaultConfigFilename)

	// DefaultLogDir is the default directory of the rotated log file.
	DefaultLogDir = filepath.Join(DefaultAppDir, DefaultLogDirname)
)

// Config holds the options of the lninvoice command line tool. The same
// options can be given in the config file, command line flags override them.
//
//nolint:lll
type Config struct {
	LogDir     string `long:"logdir" description:"Directory to log output."`
	DebugLevel string `long:"debuglevel" description:"Logging level for all subsystems {trace, debug, info, warn, error, critical, off} -- You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set the log level for individual subsystems."`
	Network    string `long:"network" description:"The network invoices are encoded for and decoded on, or 'auto' to take it from the invoice when decoding."`

	Invoices *Invoices `group:"invoices" namespace:"invoices"`

	LogConfig *build.LogConfig `group:"logging" namespace:"logging"`
}

// DefaultConfig returns all default values for the Config struct.
func DefaultConfig() *Config {
	return &Config{
		LogDir:     DefaultLogDir,
		DebugLevel: DefaultDebugLevel,
		Network:    DefaultNetwork,
		Invoices:   DefaultInvoices(),
		LogConfig:  build.DefaultLogConfig(),
	}
}

// LoadConfig returns the default config overridden by the values of the
// given config file. A missing file is only an error if it is not the
// default config file.
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	if configFile == "" {
		configFile = DefaultConfigFile
	}
	configFile = CleanAndExpandPath(configFile)

	fileParser := flags.NewParser(cfg, flags.Default)
	err := flags.NewIniParser(fileParser).ParseFile(configFile)
	switch {
	case errors.Is(err, fs.ErrNotExist) &&
		configFile == CleanAndExpandPath(DefaultConfigFile):

		log.Debugf("No config file found at %v, using defaults",
			configFile)

	case err != nil:
		return nil, fmt.Errorf("unable to parse config file %v: %w",
			configFile, err)

	default:
		log.Debugf("Loaded config file %v", configFile)
	}

	return cfg, nil
}

// Validate checks the config and expands its paths. It must be called after
// all overrides are applied.
func (c *Config) Validate() error {
	c.LogDir = CleanAndExpandPath(c.LogDir)

	if c.Network != NetworkAuto {
		if _, err := chainreg.ByName(c.Network); err != nil {
			return fmt.Errorf("invalid network %q, expected %q or "+
				"one of %v", c.Network, NetworkAuto,
				chainreg.Names())
		}
	}

	return Validate(c.Invoices, c.LogConfig)
}

// NetParams returns the network the config selects, or nil if the network
// is taken from decoded invoices.
func (c *Config) NetParams() (*chainreg.NetParams, error) {
	if c.Network == NetworkAuto {
		return nil, nil
	}

	return chainreg.ByName(c.Network)
}

// LogFile returns the path of the rotated log file.
func (c *Config) LogFile() string {
	return filepath.Join(c.LogDir, DefaultLogFilename)
}

// Validator is a generic interface for validating sub configurations.
type Validator interface {
	// Validate returns an error if a particular configuration is invalid.
	Validate() error
}

// Validate runs the validators in order and returns the first error.
func Validate(validators ...Validator) error {
	for _, validator := range validators {
		if err := validator.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// CleanAndExpandPath expands environment variables and leading ~ in the
// passed path, cleans the result, and returns it.
// This function is taken from https://github.com/btcsuite/btcd
func CleanAndExpandPath(path string) string {
	if path == "" {
		return ""
	}

	// Expand initial ~ to OS specific home directory.
	if strings.HasPrefix(path, "~") {
		var homeDir string
		u, err := user.Current()
		if err == nil {
			homeDir = u.HomeDir
		} else {
			homeDir = os.Getenv("HOME")
		}

		path = strings.Replace(path, "~", homeDir, 1)
	}

	// NOTE: The os.ExpandEnv doesn't work with Windows-style %VARIABLE%,
	// but the variables can still be expanded via POSIX-style $VARIABLE.
	return filepath.Clean(os.ExpandEnv(path))
}
