package models

import (
	"errors"
	"fmt"
	"testing"
)

func TestTaskStateTerminal(t *testing.T) {
	tests := []struct {
		state    TaskState
		terminal bool
		active   bool
	}{
		{StateQueued, false, false},
		{StateDownloading, false, true},
		{StateExtracting, false, true},
		{StateDone, true, false},
		{StateFailed, true, false},
		{StateCancelled, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.terminal {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.terminal)
			}
			if got := tt.state.IsActive(); got != tt.active {
				t.Errorf("IsActive() = %v, want %v", got, tt.active)
			}
		})
	}
}

func TestNewDownloadTask(t *testing.T) {
	task := NewDownloadTask(AssetRef{ID: 7, Title: "Celeste Classic"})
	if task.State != StateQueued {
		t.Errorf("new task state = %v, want %v", task.State, StateQueued)
	}
	if task.BytesTotal != -1 {
		t.Errorf("new task BytesTotal = %d, want -1 (unknown)", task.BytesTotal)
	}
}

func TestTaskErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	te := NewTaskError(ErrKindNetwork, fmt.Errorf("fetch asset: %w", cause))

	if !errors.Is(te, cause) {
		t.Error("TaskError should unwrap to its cause")
	}
	if KindOf(te) != ErrKindNetwork {
		t.Errorf("KindOf() = %v, want %v", KindOf(te), ErrKindNetwork)
	}
	if KindOf(fmt.Errorf("wrapped: %w", te)) != ErrKindNetwork {
		t.Error("KindOf should see through wrapping")
	}
	if KindOf(errors.New("plain")) != ErrKindNetwork {
		t.Error("plain errors default to network kind")
	}
}

func TestRunSummaryExitCode(t *testing.T) {
	tests := []struct {
		name    string
		summary RunSummary
		want    int
	}{
		{"clean run", RunSummary{Succeeded: 3}, ExitOK},
		{"failures", RunSummary{Succeeded: 2, Failed: []AssetFailure{{AssetID: 1}}}, ExitFailed},
		{"cancelled wins", RunSummary{Succeeded: 1, Cancelled: 2, Failed: []AssetFailure{{AssetID: 1}}}, ExitCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.summary.ExitCode(); got != tt.want {
				t.Errorf("ExitCode() = %d, want %d", got, tt.want)
			}
		})
	}
}
