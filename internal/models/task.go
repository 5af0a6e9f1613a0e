package models

// TaskState represents the state of a single download task.
type TaskState string

const (
	// StateQueued means the task is admitted but has not started transferring.
	StateQueued TaskState = "Queued"

	// StateDownloading means bytes are being streamed to disk.
	StateDownloading TaskState = "Downloading"

	// StateExtracting means the downloaded archive is being unpacked.
	StateExtracting TaskState = "Extracting"

	// StateDone means the task finished successfully.
	StateDone TaskState = "Done"

	// StateFailed means the task failed; LastError carries the cause.
	StateFailed TaskState = "Failed"

	// StateCancelled means the run was interrupted before the task finished.
	StateCancelled TaskState = "Cancelled"
)

// String returns the string representation of the state.
func (s TaskState) String() string {
	return string(s)
}

// IsActive reports whether the task currently occupies a concurrency slot.
func (s TaskState) IsActive() bool {
	return s == StateDownloading || s == StateExtracting
}

// IsTerminal reports whether no further transitions can occur.
func (s TaskState) IsTerminal() bool {
	return s == StateDone || s == StateFailed || s == StateCancelled
}

// DownloadTask is the transient execution record for one asset. It is owned
// exclusively by the worker running it; the scheduler only ever sees the
// Outcome derived from it.
type DownloadTask struct {
	Asset      AssetRef
	State      TaskState
	BytesDone  int64
	BytesTotal int64 // -1 until (and unless) the server reports a length
	Attempts   int
	LastError  error
}

// NewDownloadTask creates a queued task for the given asset.
func NewDownloadTask(asset AssetRef) *DownloadTask {
	return &DownloadTask{
		Asset:      asset,
		State:      StateQueued,
		BytesTotal: -1,
	}
}

// ProgressEvent is a structured progress notification emitted by workers.
// Events are advisory and may be dropped by a slow consumer; terminal
// outcomes travel separately through the scheduler.
type ProgressEvent struct {
	AssetID    int64
	Phase      TaskState
	BytesDone  int64
	BytesTotal int64 // -1 if unknown
	Message    string
}
