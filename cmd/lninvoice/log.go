package main

import (
	"fmt"

	"github.com/btcsuite/btclog"
	"github.com/lightningnetwork/lninvoice/build"
	"github.com/lightningnetwork/lninvoice/chainreg"
	"github.com/lightningnetwork/lninvoice/feature"
	"github.com/lightningnetwork/lninvoice/lncfg"
	"github.com/lightningnetwork/lninvoice/zpay32"
)

// Subsystem defines the logging code of the command line tool.
const Subsystem = "LNIV"

// log is the logger of the command line tool. It is disabled until
// setupLoggers runs.
var log = btclog.Disabled

// setupLoggers creates the shared logging backend, hands a sub-logger to every
// package and applies the configured debug levels. The returned writer must
// be closed on exit.
func setupLoggers(cfg *lncfg.Config) (*build.RotatingLogWriter, error) {
	root := build.NewRotatingLogWriter(cfg.LogConfig.BackendOptions()...)

	addSubLogger(root, Subsystem, func(logger btclog.Logger) {
		log = logger
	})
	addSubLogger(root, zpay32.Subsystem, zpay32.UseLogger)
	addSubLogger(root, feature.Subsystem, feature.UseLogger)
	addSubLogger(root, chainreg.Subsystem, chainreg.UseLogger)
	addSubLogger(root, lncfg.Subsystem, lncfg.UseLogger)

	if !cfg.LogConfig.File.Disable {
		err := root.InitLogRotator(cfg.LogConfig.File, cfg.LogFile())
		if err != nil {
			return nil, fmt.Errorf("unable to init log rotator: %w",
				err)
		}
	}

	err := build.ParseAndSetDebugLevels(cfg.DebugLevel, root)
	if err != nil {
		_ = root.Close()
		return nil, err
	}

	return root, nil
}

// addSubLogger creates a sub-logger on the shared backend, hands it to the
// package and registers it so its level can be changed.
func addSubLogger(root *build.RotatingLogWriter, subsystem string,
	useLogger func(btclog.Logger)) {

	logger := build.NewSubLogger(subsystem, root.GenSubLogger)
	useLogger(logger)
	root.RegisterSubLogger(subsystem, logger)
}
