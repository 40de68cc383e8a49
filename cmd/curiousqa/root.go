package main

import (
	"fmt"
	"os"
	"runtime"

	"curiousqa/pkg/config"
	"curiousqa/pkg/logger"
	"curiousqa/pkg/ui"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool
)

var rootCmd = &cobra.Command{
	Use:   "curiousqa",
	Short: "Export a CuriousCat profile's questions and answers to a spreadsheet",
	Long: `curiousqa walks a CuriousCat profile page by page, merges the result with any
snapshot saved locally, and writes every question and answer to an .xlsx file.

Run 'curiousqa serve' for the web form, or 'curiousqa export <username>' to
write the spreadsheet straight to disk.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor {
			ui.SetColor(false)
		}
	},
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("Error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: ./curiousqa.yaml or ~/.config/curiousqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.SetVersionTemplate(`curiousqa {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// loadConfig resolves configuration from every source and initializes the
// global logger from it.
func loadConfig(flags map[string]interface{}) (*config.Config, error) {
	if flags == nil {
		flags = map[string]interface{}{}
	}
	if logLevel != "" {
		flags["log-level"] = logLevel
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Initialize(&cfg.Logging); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, nil
}

// changedFlags collects the named flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects.
func changedFlags(cmd *cobra.Command, names ...string) map[string]interface{} {
	out := map[string]interface{}{}
	fs := cmd.Flags()
	for _, name := range names {
		if !fs.Changed(name) {
			continue
		}
		switch fs.Lookup(name).Value.Type() {
		case "bool":
			v, _ := fs.GetBool(name)
			out[name] = v
		case "duration":
			v, _ := fs.GetDuration(name)
			out[name] = v
		default:
			out[name] = fs.Lookup(name).Value.String()
		}
	}
	return out
}
