package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/lightningnetwork/lninvoice/build"
	"github.com/lightningnetwork/lninvoice/lncfg"
	"github.com/urfave/cli"
)

const (
	configKey    = "config"
	logWriterKey = "logwriter"
)

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "[lninvoice] %v\n", err)
	os.Exit(1)
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

// newApp builds the command tree. Commands write their output to the app's
// writer.
func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "lninvoice"
	app.Version = fmt.Sprintf("%s commit=%s build=%v", build.Version(),
		build.Commit, build.Deployment)
	app.Usage = "encode, decode and inspect BOLT-11 lightning invoices"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:      "configfile",
			Value:     lncfg.DefaultConfigFile,
			Usage:     "The path to the config file.",
			TakesFile: true,
		},
		cli.StringFlag{
			Name: "network, n",
			Usage: "The network invoices are encoded for and " +
				"decoded on, e.g. mainnet, testnet, " +
				"litecoin, or auto to take it from the " +
				"invoice.",
			Value: lncfg.DefaultNetwork,
		},
		cli.StringFlag{
			Name: "debuglevel",
			Usage: "Logging level for all subsystems, or " +
				"<subsystem>=<level> pairs.",
			Value: lncfg.DefaultDebugLevel,
		},
		cli.StringFlag{
			Name:      "logdir",
			Usage:     "The directory of the log file.",
			Value:     lncfg.DefaultLogDir,
			TakesFile: true,
		},
		cli.BoolFlag{
			Name:  "nologfile",
			Usage: "Only log to stderr.",
		},
	}
	app.Commands = []cli.Command{
		decodeInvoiceCommand,
		encodeInvoiceCommand,
		compareFeaturesCommand,
		shortenCommand,
		unshortenCommand,
	}
	app.Before = loadConfig
	app.After = func(ctx *cli.Context) error {
		if w, ok := ctx.App.Metadata[logWriterKey]; ok {
			return w.(*build.RotatingLogWriter).Close()
		}

		return nil
	}

	return app
}

// loadConfig reads the config file, applies the global flags on top of it
// and sets up logging.
func loadConfig(ctx *cli.Context) error {
	configFile := ""
	if ctx.GlobalIsSet("configfile") {
		configFile = ctx.GlobalString("configfile")
	}

	cfg, err := lncfg.LoadConfig(configFile)
	if err != nil {
		return err
	}

	if ctx.GlobalIsSet("network") {
		cfg.Network = ctx.GlobalString("network")
	}
	if ctx.GlobalIsSet("debuglevel") {
		cfg.DebugLevel = ctx.GlobalString("debuglevel")
	}
	if ctx.GlobalIsSet("logdir") {
		cfg.LogDir = ctx.GlobalString("logdir")
	}
	if ctx.GlobalBool("nologfile") {
		cfg.LogConfig.File.Disable = true
	}

	// The log config is checked first so the rest of the validation can
	// already log.
	if err := cfg.LogConfig.Validate(); err != nil {
		return err
	}
	cfg.LogDir = lncfg.CleanAndExpandPath(cfg.LogDir)

	logWriter, err := setupLoggers(cfg)
	if err != nil {
		return err
	}

	if ctx.App.Metadata == nil {
		ctx.App.Metadata = make(map[string]interface{})
	}
	ctx.App.Metadata[logWriterKey] = logWriter

	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx.App.Metadata[configKey] = cfg

	log.Debugf("Using network %v, config file %v", cfg.Network,
		ctx.GlobalString("configfile"))

	return nil
}

// getConfig returns the config loaded before the command ran.
func getConfig(ctx *cli.Context) *lncfg.Config {
	return ctx.App.Metadata[configKey].(*lncfg.Config)
}

// printJSON writes the indented JSON encoding of resp to w.
func printJSON(w io.Writer, resp interface{}) error {
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	var out bytes.Buffer
	if err := json.Indent(&out, b, "", "\t"); err != nil {
		return err
	}
	out.WriteString("\n")

	_, err = out.WriteTo(w)
	return err
}
