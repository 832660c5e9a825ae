package cli

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/zhuj/datacollector/internal/config"
	"github.com/zhuj/datacollector/internal/logger"
	"github.com/zhuj/datacollector/internal/monitor"
	"github.com/zhuj/datacollector/internal/spool"
	"github.com/zhuj/datacollector/internal/ui"
)

var (
	cfgFile   string
	verbose   bool
	noColor   bool
	outputFmt string

	globalConfig *config.Config
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	globalConfig = nil

	rootCmd := &cobra.Command{
		Use:   "datacollector",
		Short: "Resumable log file ingestion",
		Long: `datacollector turns plain-text log files into structured records.

Each call reads a bounded batch of lines from a byte offset, parses them with a
regular expression, grok pattern or one of the built-in Apache formats, and
returns the offset to resume from. The offset is the only state: hand it back
to continue exactly where the previous batch stopped.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (json, csv, text)")

	// Add subcommands
	rootCmd.AddCommand(newProduceCommand())
	rootCmd.AddCommand(newFollowCommand())
	rootCmd.AddCommand(newBrowseCommand())
	rootCmd.AddCommand(newFormatsCommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "datacollector %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// GetGlobalConfig loads the configuration once, applying the global flags
func GetGlobalConfig() (*config.Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if outputFmt != "" {
		cfg.Output.Format = outputFmt
	}
	if noColor {
		cfg.Output.ColorMode = "never"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// Global helpers
func isVerbose() bool {
	return verbose || (globalConfig != nil && globalConfig.Output.Verbose)
}

func newLogger(component string) *logger.Logger {
	return logger.NewWithCallback(component, isVerbose)
}

// useColor resolves the color mode against the terminal stdout is attached to
func useColor(cfg *config.Config) bool {
	switch cfg.Output.ColorMode {
	case "always":
		return true
	case "never":
		return false
	}
	if noColor || ui.IsColorDisabled() {
		return false
	}
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// newSource builds the batch assembler described by cfg
func newSource(cfg *config.Config, collector monitor.Collector) (*spool.Source, error) {
	src, err := spool.NewSource(cfg.SpoolConfig(),
		spool.WithLogger(newLogger("spool")),
		spool.WithCollector(collector),
	)
	if err != nil {
		return nil, fmt.Errorf("invalid source configuration: %w", err)
	}
	return src, nil
}
