package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zhuj/datacollector/internal/formatter"
	"github.com/zhuj/datacollector/internal/logger"
	"github.com/zhuj/datacollector/internal/monitor"
	"github.com/zhuj/datacollector/internal/spool"
)

type produceOptions struct {
	source   sourceFlags
	offset   string
	max      int
	parallel int
	stats    bool
}

func newProduceCommand() *cobra.Command {
	opts := &produceOptions{}

	cmd := &cobra.Command{
		Use:   "produce FILE...",
		Short: "Read one batch of records from each file",
		Long: `Read up to --max lines from each file starting at --offset and print them
as records. The offset to resume from is printed to stderr, one line per file:

  next_offset <file> <offset>

An offset of -1 means the file was read to its end. Pass the printed offset
back with --offset to continue where the batch stopped.

Examples:
  datacollector produce access.log
  datacollector produce --offset 8192 --max 500 access.log
  datacollector produce -m combined_log_format -o csv a.log b.log --parallel 2`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduce(cmd, args, opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().StringVar(&opts.offset, "offset", "0", "byte offset to start reading from")
	cmd.Flags().IntVarP(&opts.max, "max", "n", 0, "maximum lines per batch (default: source.max_batch_size)")
	cmd.Flags().IntVarP(&opts.parallel, "parallel", "p", 4, "files read concurrently")
	cmd.Flags().BoolVar(&opts.stats, "stats", false, "print an ingest summary to stderr")

	return cmd
}

func runProduce(cmd *cobra.Command, args []string, opts *produceOptions) error {
	cfg, err := GetGlobalConfig()
	if err != nil {
		return err
	}
	if err := opts.source.apply(cmd, cfg); err != nil {
		return err
	}
	if _, err := spool.ParseOffset(opts.offset); err != nil {
		return err
	}

	f, err := formatter.New(cfg.Output.Format, useColor(cfg))
	if err != nil {
		return err
	}

	counters := monitor.NewCounters()
	src, err := newSource(cfg, counters)
	if err != nil {
		return err
	}

	batches, err := produceAll(cmd.Context(), src, args, opts.offset, opts.max, opts.parallel)
	if err != nil {
		return err
	}

	log := newLogger("produce")
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	for _, b := range batches {
		data, err := f.Format(b)
		if err != nil {
			return fmt.Errorf("failed to format %s: %w", b.File, err)
		}
		if _, err := out.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		fmt.Fprintf(errOut, "next_offset %s %s\n", b.File, b.Offset)
		log.InfoWithFields("batch done", []logger.Field{
			logger.File(b.File),
			logger.Offset(b.Offset),
			logger.Count(len(b.Records)),
			logger.F("batch", b.ID),
		})
	}

	if opts.stats {
		return writeReport(errOut, counters)
	}
	return nil
}

// produceAll reads one batch from each file, at most parallel at a time.
// Batches come back in the order of paths.
func produceAll(ctx context.Context, src *spool.Source, paths []string, offset string, max, parallel int) ([]*spool.Batch, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if parallel < 1 {
		parallel = 1
	}

	batches := make([]*spool.Batch, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := validateFilePath(path); err != nil {
				return err
			}
			b, err := src.Produce(path, offset, max)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			batches[i] = b
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return batches, nil
}

func writeReport(w io.Writer, counters *monitor.Counters) error {
	report, err := monitor.FormatReport(counters.Snapshot(), monitor.ReportFormatText)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, report)
	return err
}

func validateFilePath(path string) error {
	if path == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	info, err := os.Stat(cleanPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file does not exist: %s", cleanPath)
		}
		return fmt.Errorf("cannot access file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("path is a directory, not a file: %s", cleanPath)
	}

	return nil
}
