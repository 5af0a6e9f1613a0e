package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/itchgrab/itchgrab/internal/archive"
	"github.com/itchgrab/itchgrab/internal/models"
)

const copyBufSize = 256 * 1024

// worker drives a single asset through its lifecycle: open the stream,
// write to a temp file, verify completeness, move into place and
// optionally extract.
type worker struct {
	source        Source
	asset         models.AssetRef
	destBase      string
	outputDir     string
	unzip         bool
	events        chan<- models.ProgressEvent
	eventInterval time.Duration
	stats         *Collector
}

func (w *worker) run(ctx context.Context) outcome {
	task := models.NewDownloadTask(w.asset)
	task.Attempts++
	w.emit(models.StateQueued, 0, -1, "")

	start := time.Now()
	dl, err := w.source.Open(ctx, w.asset)
	if err != nil {
		if canceled(ctx, err) {
			return w.settle(task, models.StateCancelled)
		}
		return w.fail(task, asTaskError(err))
	}
	defer dl.Body.Close()
	task.BytesTotal = dl.Size

	finalName := w.destBase + fileExt(dl.Filename)
	finalPath := filepath.Join(w.outputDir, finalName)
	tmpPath := filepath.Join(w.outputDir,
		fmt.Sprintf(".%s.%s.part", finalName, uuid.NewString()[:8]))

	task.State = models.StateDownloading
	if terr := w.download(ctx, dl, task, tmpPath); terr != nil {
		os.Remove(tmpPath)
		if canceled(ctx, terr) {
			return w.settle(task, models.StateCancelled)
		}
		return w.fail(task, asTaskError(terr))
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return w.fail(task, models.NewTaskError(models.ErrKindFilesystem,
			fmt.Errorf("move into place: %w", err)))
	}
	if w.stats != nil {
		w.stats.Record(OpDownload, time.Since(start), task.BytesDone)
	}

	if w.unzip {
		if _, ok := archive.Detect(finalName); ok {
			task.State = models.StateExtracting
			w.emit(models.StateExtracting, task.BytesDone, task.BytesTotal, "")
			extractStart := time.Now()
			destDir := filepath.Join(w.outputDir, w.destBase)
			if err := archive.Unpack(ctx, finalPath, destDir); err != nil {
				// The archive file itself is preserved for inspection.
				if canceled(ctx, err) {
					return w.settle(task, models.StateCancelled)
				}
				return w.fail(task, models.NewTaskError(models.ErrKindExtractionFailed,
					fmt.Errorf("extract %s: %w", finalName, err)))
			}
			if w.stats != nil {
				w.stats.Record(OpExtract, time.Since(extractStart), task.BytesDone)
			}
		}
	}

	w.emit(models.StateDone, task.BytesDone, task.BytesTotal, "")
	return w.settle(task, models.StateDone)
}

// settle moves the task to its terminal state and converts it into the
// outcome reported to the scheduler.
func (w *worker) settle(task *models.DownloadTask, state models.TaskState) outcome {
	task.State = state
	return outcome{asset: task.Asset, state: state, bytes: task.BytesDone}
}

// download streams the body into tmpPath, tracking progress on the task,
// and verifies the byte count against the advertised size when one is known.
func (w *worker) download(ctx context.Context, dl *models.Download, task *models.DownloadTask, tmpPath string) error {
	f, err := os.Create(tmpPath)
	if err != nil {
		return models.NewTaskError(models.ErrKindFilesystem,
			fmt.Errorf("create temp file: %w", err))
	}

	w.emit(models.StateDownloading, 0, dl.Size, "")

	buf := make([]byte, copyBufSize)
	lastEmit := time.Now()

	for {
		if ctx.Err() != nil {
			f.Close()
			return ctx.Err()
		}

		n, rerr := dl.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				return models.NewTaskError(models.ErrKindFilesystem,
					fmt.Errorf("write temp file: %w", werr))
			}
			task.BytesDone += int64(n)
			if time.Since(lastEmit) >= w.eventInterval {
				w.emit(models.StateDownloading, task.BytesDone, dl.Size, "")
				lastEmit = time.Now()
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			f.Close()
			if canceled(ctx, rerr) {
				return rerr
			}
			return models.NewTaskError(models.ErrKindNetwork,
				fmt.Errorf("read stream: %w", rerr))
		}
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return models.NewTaskError(models.ErrKindFilesystem,
			fmt.Errorf("sync temp file: %w", err))
	}
	if err := f.Close(); err != nil {
		return models.NewTaskError(models.ErrKindFilesystem,
			fmt.Errorf("close temp file: %w", err))
	}

	if dl.Size >= 0 && task.BytesDone != dl.Size {
		return models.NewTaskError(models.ErrKindIncompleteDownload,
			fmt.Errorf("got %d bytes, expected %d", task.BytesDone, dl.Size))
	}

	return nil
}

func (w *worker) fail(task *models.DownloadTask, err *models.TaskError) outcome {
	task.State = models.StateFailed
	task.LastError = err
	w.emit(models.StateFailed, task.BytesDone, task.BytesTotal, err.Error())
	return outcome{asset: w.asset, state: models.StateFailed, err: err}
}

// emit sends a progress event without ever blocking the worker. Events
// are best-effort: under receiver lag intermediate updates are dropped.
func (w *worker) emit(phase models.TaskState, done, total int64, msg string) {
	if w.events == nil {
		return
	}
	ev := models.ProgressEvent{
		AssetID:    w.asset.ID,
		Phase:      phase,
		BytesDone:  done,
		BytesTotal: total,
		Message:    msg,
	}
	select {
	case w.events <- ev:
	default:
	}
}

func canceled(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func asTaskError(err error) *models.TaskError {
	var te *models.TaskError
	if errors.As(err, &te) {
		return te
	}
	return models.NewTaskError(models.KindOf(err), err)
}

// fileExt returns the extension to carry over from the remote filename,
// keeping compound archive suffixes intact.
func fileExt(name string) string {
	lower := strings.ToLower(name)
	if strings.HasSuffix(lower, ".tar.gz") {
		return name[len(name)-len(".tar.gz"):]
	}
	return filepath.Ext(name)
}
