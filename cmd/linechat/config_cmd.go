package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"linechat/internal/config"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
)

func newConfigCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize the config file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective config after env and -c overrides",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*g, nil)
			if err != nil {
				return err
			}
			return writeConfig(cmd.OutOrStdout(), cfg)
		},
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := g.cfgPath
			if path == "" {
				path = config.DefaultPath()
			}
			if !force {
				if _, err := os.Stat(path); err == nil {
					return fmt.Errorf("%s already exists (use --force to overwrite)", path)
				} else if !errors.Is(err, os.ErrNotExist) {
					return err
				}
			}
			cfg := config.ApplyKVOverrides(config.Default(), g.overrides)
			if err := config.Save(path, &cfg); err != nil {
				return fmt.Errorf("write config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", cfg.Source)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	cmd.AddCommand(show, initCmd)
	return cmd
}

func writeConfig(out io.Writer, cfg config.Config) error {
	if cfg.Source != "" {
		fmt.Fprintf(out, "# source: %s\n", cfg.Source)
	}
	cfg.Host.APIKey = redact(cfg.Host.APIKey)
	cfg.Host.AnthropicAPIKey = redact(cfg.Host.AnthropicAPIKey)
	enc := toml.NewEncoder(out)
	return enc.Encode(cfg)
}

func redact(secret string) string {
	if len(secret) <= 4 {
		if secret == "" {
			return ""
		}
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
