package cli

import (
	"github.com/spf13/cobra"

	"github.com/zhuj/datacollector/internal/config"
)

// sourceFlags override the source section of the config for one command
type sourceFlags struct {
	mode         string
	regex        string
	grok         string
	onParseError string
	maxLine      int
	emitPartial  bool
}

func (f *sourceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.mode, "mode", "m", "", "parsing mode (see 'datacollector formats')")
	cmd.Flags().StringVar(&f.regex, "regex", "", "regular expression for regex mode")
	cmd.Flags().StringVar(&f.grok, "grok", "", "pattern for grok mode")
	cmd.Flags().StringVar(&f.onParseError, "on-parse-error", "", "unparseable line policy (error, ignore, include)")
	cmd.Flags().IntVar(&f.maxLine, "max-line-length", 0, "truncate lines longer than this many bytes")
	cmd.Flags().BoolVar(&f.emitPartial, "emit-partial-line", false, "treat an unterminated last line as data")
}

// apply copies the flags the user set onto cfg and validates the result
func (f *sourceFlags) apply(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("mode") {
		cfg.Source.LogMode = f.mode
	}
	if flags.Changed("regex") {
		cfg.Source.Regex = f.regex
		if !flags.Changed("mode") {
			cfg.Source.LogMode = "regex"
		}
	}
	if flags.Changed("grok") {
		cfg.Source.GrokPattern = f.grok
		if !flags.Changed("mode") {
			cfg.Source.LogMode = "grok"
		}
	}
	if flags.Changed("on-parse-error") {
		cfg.Source.OnParseError = f.onParseError
	}
	if flags.Changed("max-line-length") {
		cfg.Source.MaxLineLength = f.maxLine
	}
	if flags.Changed("emit-partial-line") {
		cfg.Source.EmitPartialLine = f.emitPartial
	}
	return cfg.Validate()
}
