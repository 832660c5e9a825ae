package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/zhuj/datacollector/internal/checkpoint"
	"github.com/zhuj/datacollector/internal/formatter"
	"github.com/zhuj/datacollector/internal/logger"
	"github.com/zhuj/datacollector/internal/monitor"
	"github.com/zhuj/datacollector/internal/spool"
)

type followOptions struct {
	source       sourceFlags
	fromStart    bool
	noCheckpoint bool
	batchSize    int
}

func newFollowCommand() *cobra.Command {
	opts := &followOptions{}

	cmd := &cobra.Command{
		Use:   "follow FILE",
		Short: "Follow a log file and emit records as lines are appended",
		Long: `Read a log file to its end, then keep reading batches as new lines are
written to it. The offset reached is saved to the checkpoint file
(checkpoint.path) after every batch, so a restarted follow resumes where the
previous one stopped. A rotated or truncated file is read again from the start.

Press Ctrl+C to stop; an ingest summary is printed to stderr on exit.

Examples:
  datacollector follow /var/log/apache2/access.log
  datacollector follow --from-start -m combined_log_format access.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFollow(cmd, args[0], opts)
		},
	}

	opts.source.register(cmd)
	cmd.Flags().BoolVar(&opts.fromStart, "from-start", false, "ignore the saved offset and read from the beginning")
	cmd.Flags().BoolVar(&opts.noCheckpoint, "no-checkpoint", false, "do not load or save offsets")
	cmd.Flags().IntVarP(&opts.batchSize, "max", "n", 0, "maximum lines per batch (default: source.max_batch_size)")

	return cmd
}

func runFollow(cmd *cobra.Command, filename string, opts *followOptions) error {
	cfg, err := GetGlobalConfig()
	if err != nil {
		return err
	}
	if err := opts.source.apply(cmd, cfg); err != nil {
		return err
	}
	if err := validateWatchFilePath(filename); err != nil {
		return fmt.Errorf("invalid file path: %w", err)
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

	var store *checkpoint.Store
	if !opts.noCheckpoint {
		store, err = checkpoint.Open(cfg.CheckpointPath())
		if err != nil {
			return err
		}
	}

	fl, err := newFollower(src, store, filename, followerOptions{
		fromStart: opts.fromStart,
		batchSize: opts.batchSize,
		formatter: f,
		out:       cmd.OutOrStdout(),
		log:       newLogger("follow"),
	})
	if err != nil {
		return err
	}

	watcher, err := createWatcher(filename)
	if err != nil {
		return err
	}
	defer cleanupWatcher(watcher)

	runErr := fl.run(cmd.Context(), watcher, cfg.Follow.SettleInterval)

	if err := writeReport(cmd.ErrOrStderr(), counters); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

type followerOptions struct {
	fromStart bool
	batchSize int
	formatter formatter.Formatter
	out       io.Writer
	log       *logger.Logger
}

// follower keeps the resume offset of one file and pulls batches from it
type follower struct {
	src   *spool.Source
	store *checkpoint.Store
	path  string
	opts  followerOptions
	log   *logger.Logger

	offset string
}

func newFollower(src *spool.Source, store *checkpoint.Store, path string, opts followerOptions) (*follower, error) {
	log := opts.log
	if log == nil {
		log = logger.New("follow", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	fl := &follower{
		src:    src,
		store:  store,
		path:   abs,
		opts:   opts,
		log:    log,
		offset: "0",
	}

	if store != nil && !opts.fromStart {
		offset, err := store.Resume(fl.path)
		if err != nil {
			return nil, err
		}
		fl.offset = offset
	}
	fl.log.Info("following %s from offset %s", fl.path, fl.offset)
	return fl, nil
}

// Offset returns the offset the next batch will start at
func (fl *follower) Offset() string {
	return fl.offset
}

// drain pulls batches until the offset stops moving
func (fl *follower) drain() error {
	if fl.shrunk() {
		fl.log.Info("%s shrank below offset %s, reading from the start", fl.path, fl.offset)
		fl.offset = "0"
	}

	for {
		batch, err := fl.src.Produce(fl.path, fl.offset, fl.opts.batchSize)
		if err != nil {
			return err
		}

		if len(batch.Records) > 0 && fl.opts.formatter != nil {
			data, err := fl.opts.formatter.Format(batch)
			if err != nil {
				return fmt.Errorf("failed to format batch: %w", err)
			}
			if _, err := fl.opts.out.Write(data); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
		}

		next := spool.FormatOffset(batch.Position())
		moved := next != fl.offset
		fl.offset = next
		if moved {
			if err := fl.save(); err != nil {
				return err
			}
		}

		if batch.Done() || !moved {
			return nil
		}
	}
}

// shrunk reports whether the file is now smaller than the offset
func (fl *follower) shrunk() bool {
	n, err := spool.ParseOffset(fl.offset)
	if err != nil || n <= 0 {
		return false
	}
	info, err := os.Stat(fl.path)
	return err == nil && info.Size() < n
}

func (fl *follower) save() error {
	if fl.store == nil {
		return nil
	}
	if err := fl.store.Set(fl.path, fl.offset); err != nil {
		return fmt.Errorf("failed to record offset: %w", err)
	}
	if err := fl.store.Save(); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// handleEvent reports whether event should trigger a read. A file created
// under the watched name is a rotation and restarts at offset 0.
func (fl *follower) handleEvent(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != fl.path {
		return false
	}
	switch {
	case event.Has(fsnotify.Create):
		fl.log.Info("%s was recreated, reading from the start", fl.path)
		fl.offset = "0"
		return true
	case event.Has(fsnotify.Write):
		return true
	case event.Has(fsnotify.Remove):
		fl.log.Info("%s was removed, forgetting its offset", fl.path)
		fl.offset = "0"
		if fl.store != nil {
			fl.store.Delete(fl.path)
			if err := fl.store.Save(); err != nil {
				fl.log.WarnWithFields("failed to save checkpoint", []logger.Field{logger.File(fl.path), logger.Error(err)})
			}
		}
	case event.Has(fsnotify.Rename):
		fl.log.Info("%s was moved away, waiting for it to reappear", fl.path)
	}
	return false
}

// run drains what is already in the file, then reads again after each burst
// of writes has been quiet for settle
func (fl *follower) run(ctx context.Context, watcher *fsnotify.Watcher, settle time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signals)

	if err := fl.drain(); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case <-signals:
			fl.log.Info("received interrupt signal, stopping at offset %s", fl.offset)
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if !fl.handleEvent(event) {
				continue
			}
			if settle <= 0 {
				if err := fl.drain(); err != nil {
					return err
				}
				continue
			}
			pending = time.After(settle)

		case <-pending:
			pending = nil
			if err := fl.drain(); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			fl.log.WarnWithFields("watcher error", []logger.Field{logger.Error(err)})
		}
	}
}

// cleanupWatcher safely closes watcher with error logging
func cleanupWatcher(watcher *fsnotify.Watcher) {
	if err := watcher.Close(); err != nil && isVerbose() {
		fmt.Fprintf(os.Stderr, "Warning: failed to close watcher: %v\n", err)
	}
}

// createWatcher watches the directory holding filename so that rotation
// (remove and recreate) is seen as well as writes
func createWatcher(filename string) (*fsnotify.Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	abs, err := filepath.Abs(filename)
	if err != nil {
		cleanupWatcher(watcher)
		return nil, fmt.Errorf("failed to resolve %s: %w", filename, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		cleanupWatcher(watcher)
		return nil, fmt.Errorf("failed to watch file: %w", err)
	}

	return watcher, nil
}

// validateWatchFilePath validates that a file path is safe to watch
func validateWatchFilePath(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("empty file path")
	}

	cleanPath := filepath.Clean(path)

	if strings.Contains(cleanPath, "..") {
		return fmt.Errorf("path traversal not allowed")
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("cannot watch directory, must be a file")
	}

	return nil
}
