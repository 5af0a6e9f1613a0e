package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/itchgrab/itchgrab/internal/fetch"
	"github.com/itchgrab/itchgrab/internal/itchio"
	"github.com/itchgrab/itchgrab/internal/models"
)

var (
	dlAuthor string
	dlTitle  string
	dlOutput string
	dlMax    int
	dlUnzip  bool
	dlPacing int
)

var dlCmd = &cobra.Command{
	Use:   "dl",
	Short: "Download purchased assets",
	Long: `Download assets from your itch.io library to local disk.

Downloads run in parallel up to --max-concurrent, with a pacing delay
between request starts to stay polite to the API. A failed asset never
aborts the run; the exit code reports the overall result (0 all good,
1 some failed, 130 interrupted).

Examples:
  itchgrab dl --author kenney
  itchgrab dl --author kenney --output ./assets --unzip
  itchgrab dl --title "icon pack" --max-concurrent 4`,
	RunE: runDl,
}

func init() {
	dlCmd.Flags().StringVarP(&dlAuthor, "author", "a", "", "filter by author substring")
	dlCmd.Flags().StringVarP(&dlTitle, "title", "t", "", "filter by title substring")
	dlCmd.Flags().StringVarP(&dlOutput, "output", "o", "", "output directory (default current directory)")
	dlCmd.Flags().IntVarP(&dlMax, "max-concurrent", "c", 0, "maximum parallel downloads (default 16)")
	dlCmd.Flags().BoolVarP(&dlUnzip, "unzip", "u", false, "extract recognized archives after download")
	dlCmd.Flags().IntVar(&dlPacing, "pacing", 0, "delay in ms between download starts (default 500)")
}

func runDl(cmd *cobra.Command, args []string) error {
	key, err := resolveAPIKey()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := itchio.New(key, cfg.APIURL)
	catalog, err := client.FetchAssets(ctx)
	if err != nil {
		return fmt.Errorf("fetch library: %w", err)
	}

	worklist := models.FilterAssets(catalog, dlAuthor, dlTitle)
	if len(worklist) == 0 {
		fmt.Println("No assets matched.")
		return nil
	}
	slog.Info("starting downloads", "assets", len(worklist))

	opts := fetch.Options{
		MaxConcurrent: dlMax,
		OutputDir:     dlOutput,
		Unzip:         dlUnzip,
		Pacing:        time.Duration(dlPacing) * time.Millisecond,
		Stats:         fetch.NewCollector(),
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = cfg.MaxConcurrent
	}
	if opts.OutputDir == "" {
		opts.OutputDir = cfg.OutputDir
	}
	if dlPacing <= 0 {
		opts.Pacing = time.Duration(cfg.PacingMs) * time.Millisecond
	}
	if cfg.Unzip {
		opts.Unzip = true
	}

	events := make(chan models.ProgressEvent, 256)
	opts.Events = events

	type runResult struct {
		summary *models.RunSummary
		err     error
	}
	resultCh := make(chan runResult, 1)
	go func() {
		summary, rerr := fetch.Run(ctx, worklist, client, opts)
		close(events)
		resultCh <- runResult{summary, rerr}
	}()

	interactive := term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		if err := runProgressUI(events, stop, len(worklist)); err != nil {
			slog.Warn("progress display failed, continuing without it", "error", err)
			drainEvents(events)
		}
	} else {
		reportPlain(events, len(worklist))
	}

	res := <-resultCh
	if res.err != nil {
		return res.err
	}

	printSummary(os.Stdout, res.summary, interactive)
	logStats(opts.Stats)

	if code := res.summary.ExitCode(); code != models.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}

// reportPlain consumes worker events without a terminal UI, logging a
// progress line at a fixed cadence.
func reportPlain(events <-chan models.ProgressEvent, total int) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	finished := 0
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Phase.IsTerminal() {
				finished++
			}
		case <-ticker.C:
			slog.Info("progress", "finished", finished, "total", total)
		}
	}
}

func drainEvents(events <-chan models.ProgressEvent) {
	for range events {
	}
}

// printSummary writes the human-readable run report.
func printSummary(w io.Writer, s *models.RunSummary, styled bool) {
	render := func(st func() lipgloss.Style, text string) string {
		if styled {
			return st().Render(text)
		}
		return text
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, render(defaultTheme.completedStyle,
		fmt.Sprintf("✓ %d downloaded (%s)", s.Succeeded, humanBytes(s.TotalBytes))))

	if len(s.Failed) > 0 {
		fmt.Fprintln(w, render(defaultTheme.errorStyle,
			fmt.Sprintf("✗ %d failed:", len(s.Failed))))
		for _, f := range s.Failed {
			fmt.Fprintf(w, "  • %s (id %d): %s\n", f.Title, f.AssetID, f.Err)
		}
	}
	if s.Cancelled > 0 {
		fmt.Fprintln(w, render(defaultTheme.hintStyle,
			fmt.Sprintf("• %d cancelled", s.Cancelled)))
	}
}

// logStats records run statistics at debug level for the log file.
func logStats(c *fetch.Collector) {
	snap := c.Snapshot()
	if snap.Download == nil {
		return
	}
	slog.Debug("run statistics",
		"downloads", snap.Download.Count,
		"bytes", snap.Download.TotalBytes,
		"avg_ms", snap.Download.AvgTimeMs,
		"bytes_per_sec", snap.Download.BytesPerSec,
		"elapsed_s", snap.ElapsedSeconds,
	)
	if snap.Extract != nil {
		slog.Debug("extraction statistics",
			"archives", snap.Extract.Count,
			"avg_ms", snap.Extract.AvgTimeMs,
		)
	}
}
