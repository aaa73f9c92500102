package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/danmuck/tuplectl/internal/client"
	"github.com/danmuck/tuplectl/internal/config"
	"github.com/danmuck/tuplectl/internal/logging"
	"github.com/danmuck/tuplectl/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	addr       string
	timeout    time.Duration
	logLevel   string
	metricsOut string
	asJSON     bool

	out    io.Writer
	errOut io.Writer

	cfg    config.Config
	logger zerolog.Logger
	client *client.Client
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "tuplectl",
		Short: "Talk to a LinuxTuples tuple-space server",
		Long: "tuplectl sends tuple-space commands to a LinuxTuples server.\n\n" +
			"Tuples and templates are JSON arrays: integers, floats, strings,\n" +
			"nested arrays, and null as the wildcard. Example: '[42, \"hi\", null]'.",
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.writeMetrics()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "path to config.toml")
	flags.StringVar(&a.addr, "addr", "", "server host:port (overrides config)")
	flags.DurationVar(&a.timeout, "timeout", 0, "deadline for the whole command, 0 waits forever")
	flags.StringVar(&a.logLevel, "log-level", "", "trace|debug|info|warn|error|off (overrides config)")
	flags.BoolVar(&a.asJSON, "json", false, "print tuples as JSON literals")
	flags.StringVar(&a.metricsOut, "metrics-out", "", "write client metrics in text format to this file on success")

	root.AddCommand(
		newPutCmd(a),
		newMatchCmd(a, "get", "Remove and print a tuple matching TEMPLATE, waiting for one", matchGet),
		newMatchCmd(a, "read", "Print a tuple matching TEMPLATE without removing it, waiting for one", matchRead),
		newMatchCmd(a, "get-nb", "Remove and print a tuple matching TEMPLATE if one exists", matchGetNB),
		newMatchCmd(a, "read-nb", "Print a tuple matching TEMPLATE if one exists", matchReadNB),
		newDumpCmd(a),
		newCountCmd(a),
		newReplaceCmd(a),
		newLogCmd(a),
		newConfigCmd(a),
	)
	return root
}

// setup resolves configuration, installs logging and builds the client.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if path := strings.TrimSpace(a.configPath); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("addr") {
		cfg.Address = strings.TrimSpace(a.addr)
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("tuplectl config: %w", err)
	}
	a.cfg = cfg

	level, _ := logging.ParseLevel(cfg.LogLevel)
	a.logger = logging.Install(logging.Config{Level: level, Timestamp: true, Out: a.errOut})
	observability.RegisterMetrics()

	cc := cfg.ClientConfig()
	cc.Logger = &a.logger
	c, err := client.New(cc)
	if err != nil {
		return err
	}
	a.client = c
	return nil
}

// context bounds one command by --timeout on top of the signal context.
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if a.timeout > 0 {
		return context.WithTimeout(ctx, a.timeout)
	}
	return context.WithCancel(ctx)
}

func (a *app) writeMetrics() error {
	if a.metricsOut == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.metricsOut, prometheus.DefaultGatherer); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
