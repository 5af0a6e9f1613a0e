// Package fetch implements the download orchestration pipeline: a scheduler
// that admits assets under a bounded concurrency budget with proactive
// pacing, and workers that stream each asset to disk and hand archives off
// to extraction.
package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/itchgrab/itchgrab/internal/models"
)

// Source provides the byte stream for an asset. The itch.io client
// implements it; tests substitute doubles.
type Source interface {
	Open(ctx context.Context, asset models.AssetRef) (*models.Download, error)
}

// Defaults for Options fields left zero.
const (
	DefaultMaxConcurrent = 16
	DefaultPacing        = 500 * time.Millisecond
	DefaultEventInterval = 200 * time.Millisecond
)

// Options configures a download run.
type Options struct {
	// MaxConcurrent bounds simultaneously active workers (default 16).
	MaxConcurrent int

	// OutputDir is where downloads land. Created if missing.
	OutputDir string

	// Unzip extracts recognized archives after download.
	Unzip bool

	// Pacing is the deliberate delay inserted before each admission to
	// spread request issuance over time. The remote's rate limits are
	// undocumented, so this is a tunable rather than a constant.
	Pacing time.Duration

	// EventInterval bounds how often a worker emits progress events.
	EventInterval time.Duration

	// Events receives progress notifications. Sends never block: events
	// are dropped when the receiver lags. May be nil.
	Events chan<- models.ProgressEvent

	// Stats optionally collects transfer statistics.
	Stats *Collector
}

// outcome is the terminal report a worker sends back to the scheduler.
type outcome struct {
	asset models.AssetRef
	state models.TaskState
	bytes int64
	err   *models.TaskError
}

// Run executes the worklist and returns the aggregated summary. It returns
// only after every asset has reached a terminal state; per-asset failures
// never abort the run. On context cancellation it stops admitting, lets
// in-flight workers abort cleanly and returns a partial summary.
//
// The Run loop is the sole mutator of the summary: workers communicate
// exclusively through the outcome channel.
func Run(ctx context.Context, worklist models.Worklist, source Source, opts Options) (*models.RunSummary, error) {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.EventInterval <= 0 {
		opts.EventInterval = DefaultEventInterval
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, models.NewTaskError(models.ErrKindFilesystem,
			fmt.Errorf("create output directory: %w", err))
	}

	destNames := models.AssignDestNames(worklist)
	results := make(chan outcome)
	slots := make(chan struct{}, opts.MaxConcurrent)

	go func() {
		for _, asset := range worklist {
			if !admit(ctx, opts.Pacing, slots) {
				// Run cancelled before this asset started.
				results <- outcome{asset: asset, state: models.StateCancelled}
				continue
			}

			w := &worker{
				source:        source,
				asset:         asset,
				destBase:      destNames[asset.ID],
				outputDir:     opts.OutputDir,
				unzip:         opts.Unzip,
				events:        opts.Events,
				eventInterval: opts.EventInterval,
				stats:         opts.Stats,
			}
			go func() {
				defer func() { <-slots }()
				results <- w.run(ctx)
			}()
		}
	}()

	summary := &models.RunSummary{}
	fsFailures := 0

	for range worklist {
		o := <-results
		switch o.state {
		case models.StateDone:
			summary.Succeeded++
			summary.TotalBytes += o.bytes
			slog.Info("asset done", "id", o.asset.ID, "title", o.asset.Title, "bytes", o.bytes)
		case models.StateCancelled:
			summary.Cancelled++
			slog.Debug("asset cancelled", "id", o.asset.ID, "title", o.asset.Title)
		default:
			summary.Failed = append(summary.Failed, models.AssetFailure{
				AssetID: o.asset.ID,
				Title:   o.asset.Title,
				Err:     o.err,
			})
			if o.err != nil && o.err.Kind == models.ErrKindFilesystem {
				fsFailures++
			}
			slog.Warn("asset failed", "id", o.asset.ID, "title", o.asset.Title, "error", o.err)
		}
	}

	if fsFailures > 1 {
		slog.Error("repeated filesystem failures; check free space and permissions",
			"count", fsFailures, "output_dir", opts.OutputDir)
	}

	return summary, nil
}

// admit waits out the pacing delay and acquires a concurrency slot.
// Returns false once the run is cancelled.
func admit(ctx context.Context, pacing time.Duration, slots chan struct{}) bool {
	if ctx.Err() != nil {
		return false
	}

	if pacing > 0 {
		timer := time.NewTimer(pacing)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return false
		}
	}

	select {
	case slots <- struct{}{}:
		if ctx.Err() != nil {
			<-slots
			return false
		}
		return true
	case <-ctx.Done():
		return false
	}
}
