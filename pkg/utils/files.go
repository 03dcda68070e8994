package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

// FileFunc is applied to every file found by ApplyToAllFiles.
type FileFunc func(ctx context.Context, path string) error

// ApplyOptions configures ApplyToAllFiles.
type ApplyOptions struct {
	// MaxWorkers bounds concurrency; <= 0 means DefaultMaxWorkers.
	MaxWorkers int
	// Progress receives the progress bar; nil disables rendering.
	Progress io.Writer
	Logger   *slog.Logger
}

// ApplyToAllFiles walks folder recursively and calls fn for every regular
// file using a bounded worker pool. A failing file does not stop the others;
// all failures are joined into the returned error.
func ApplyToAllFiles(ctx context.Context, folder string, fn FileFunc, opts ApplyOptions) error {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultMaxWorkers
	}

	if _, err := os.Stat(folder); err != nil {
		return fmt.Errorf("folder not found: %s: %w", folder, err)
	}

	var paths []string
	err := filepath.WalkDir(folder, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to walk %s: %w", folder, err)
	}

	if len(paths) == 0 {
		log.Info("No files found", "folder", folder)
		return nil
	}

	progress := mpb.NewWithContext(ctx, mpb.WithOutput(opts.Progress), mpb.WithWidth(60))
	bar := progress.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name("Processing files "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)

	var (
		mu   sync.Mutex
		errs []error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, path := range paths {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() (err error) {
			defer bar.Increment()
			defer RecoverAsError(&err)
			if ferr := fn(gctx, path); ferr != nil {
				log.Error("Failed to process file", "path", path, "error", ferr)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", path, ferr))
				mu.Unlock()
			}
			return nil
		})
	}

	// only panics and cancellation surface through the group
	if err := g.Wait(); err != nil {
		errs = append(errs, err)
	}
	if !bar.Completed() {
		bar.Abort(false)
	}
	progress.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
