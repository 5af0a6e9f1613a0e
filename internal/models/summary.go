package models

// AssetFailure records one asset's terminal failure for the run summary.
type AssetFailure struct {
	AssetID int64
	Title   string
	Err     *TaskError
}

// RunSummary aggregates the outcome of one download run. It is built
// incrementally by the scheduler, which is its sole mutator, and finalized
// once every task has reached a terminal state.
type RunSummary struct {
	Succeeded  int
	Cancelled  int
	Failed     []AssetFailure
	TotalBytes int64
}

// Total returns the number of assets that reached a terminal state.
func (s *RunSummary) Total() int {
	return s.Succeeded + s.Cancelled + len(s.Failed)
}

// Exit codes for the dl command.
const (
	ExitOK        = 0
	ExitFailed    = 1
	ExitCancelled = 130
)

// ExitCode maps the summary to a process exit code. Cancellation wins over
// per-asset failures so an interrupted run is distinguishable.
func (s *RunSummary) ExitCode() int {
	switch {
	case s.Cancelled > 0:
		return ExitCancelled
	case len(s.Failed) > 0:
		return ExitFailed
	default:
		return ExitOK
	}
}
