package main

import (
	"errors"
	"fmt"
	"os"

	"curiousqa/pkg/config"
	"curiousqa/pkg/ui"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultConfigPath = "curiousqa.yaml"

const configHeader = `# curiousqa configuration
#
# Most keys can also be set through a CURIOUSQA_* environment variable,
# for example CURIOUSQA_ADDR or CURIOUSQA_WRITE_BACK.
# Durations use Go syntax: 500ms, 1s, 2m.

`

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage curiousqa configuration files.

Configuration is resolved from, highest priority first:
  - Command line flags
  - Environment variables (CURIOUSQA_*, also read from .env)
  - Configuration file
  - Default values`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file holding the defaults",
	Long: `Write every option with its default value to curiousqa.yaml, or to the
path given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and report every invalid value
at once.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = defaultConfigPath
	}

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("configuration file already exists: %s", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal defaults: %w", err)
	}
	if err := os.WriteFile(path, append([]byte(configHeader), data...), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Fprintln(cmd.OutOrStdout(), "\nNext steps:")
	fmt.Fprintln(cmd.OutOrStdout(), "1. Edit the file to taste")
	fmt.Fprintln(cmd.OutOrStdout(), "2. Run 'curiousqa config validate'")
	fmt.Fprintln(cmd.OutOrStdout(), "3. Start the form with 'curiousqa serve'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHighlight("Current configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	source := configFile
	if source == "" {
		source = "(defaults and environment)"
	}
	ui.PrintInfo("Validating configuration", source)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	if cfg.Cache.Backend == "file" {
		if err := os.MkdirAll(cfg.Cache.Directory, 0755); err != nil {
			return fmt.Errorf("cannot create cache directory: %w", err)
		}
	}
	if cfg.Retry.MaxAttempts > 1 {
		ui.PrintWarning("Page fetches will be retried", fmt.Sprintf("up to %d attempts", cfg.Retry.MaxAttempts))
	}

	ui.PrintSuccess("Configuration is valid")

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "\nConfiguration summary:")
	fmt.Fprintf(out, "  Listen address: %s\n", cfg.Server.Addr)
	fmt.Fprintf(out, "  Upstream: %s (page delay %s)\n", cfg.CuriousCat.BaseURL, cfg.CuriousCat.PageDelay)
	fmt.Fprintf(out, "  Cache: %s, write-back %t\n", cfg.Cache.Backend, cfg.Cache.WriteBack)
	fmt.Fprintf(out, "  Rate limit: %d requests/minute (0 = off)\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Fprintf(out, "  Log level: %s\n", cfg.Logging.Level)
	return nil
}
