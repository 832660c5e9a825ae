package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zhuj/datacollector/internal/monitor"
	"github.com/zhuj/datacollector/internal/spool"
	"github.com/zhuj/datacollector/internal/ui"
)

type browseOptions struct {
	source   sourceFlags
	offset   string
	pageSize int
	theme    string
}

func newBrowseCommand() *cobra.Command {
	opts := &browseOptions{}

	cmd := &cobra.Command{
		Use:   "browse FILE",
		Short: "Page through a log file batch by batch",
		Long: `Open an interactive pager over a log file. Each page is one batch.

Keys:
  n, space   next batch
  r          read the current batch again from the offset it started at
  up/down    select a record
  q          quit`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBrowse(cmd, args[0], opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.offset, "offset", "0", "byte offset of the first batch")
	cmd.Flags().IntVarP(&opts.pageSize, "max", "n", 50, "lines per batch")
	cmd.Flags().StringVar(&opts.theme, "theme", "default", "color theme (default, high-contrast)")

	return cmd
}

func runBrowse(cmd *cobra.Command, filename string, opts *browseOptions) error {
	cfg, err := GetGlobalConfig()
	if err != nil {
		return err
	}
	if err := opts.source.apply(cmd, cfg); err != nil {
		return err
	}
	if err := validateFilePath(filename); err != nil {
		return err
	}
	if _, err := spool.ParseOffset(opts.offset); err != nil {
		return err
	}

	theme, ok := ui.ThemeByName(opts.theme)
	if !ok {
		return fmt.Errorf("unknown theme: %s", opts.theme)
	}

	src, err := newSource(cfg, monitor.Nop)
	if err != nil {
		return err
	}

	return ui.Run(src, filename, ui.BrowserOptions{
		Offset:   opts.offset,
		PageSize: opts.pageSize,
		Theme:    theme,
		Color:    useColor(cfg),
	})
}
