package main

import (
	"fmt"
	"strings"

	"github.com/danmuck/tuplectl/internal/config"
	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.toml"

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Write or validate a config.toml",
		// No client is needed to manage config files.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a config template with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := a.configTarget(args)
			if err := config.WriteTemplate(path, force); err != nil {
				return err
			}
			_, err := fmt.Fprintf(a.out, "wrote config template to %s\n", path)
			return err
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	validateCmd := &cobra.Command{
		Use:   "validate [PATH]",
		Short: "Load and validate a config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			path := a.configTarget(args)
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(a.out, "validated %s: address=%s connect_timeout=%s io_timeout=%s log_level=%s\n",
				path, cfg.Address, cfg.ConnectTimeout, cfg.IOTimeout, cfg.LogLevel)
			return err
		},
	}

	cmd.AddCommand(initCmd, validateCmd)
	return cmd
}

// configTarget picks the positional path, then --config, then the default.
func (a *app) configTarget(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	if p := strings.TrimSpace(a.configPath); p != "" {
		return p
	}
	return defaultConfigPath
}
