package cli

import (
	"context"
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/itchgrab/itchgrab/internal/models"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// assetEventMsg carries one worker progress update.
type assetEventMsg models.ProgressEvent

// runDoneMsg signals that the event stream is exhausted.
type runDoneMsg struct{}

// downloadModel is the bubbletea model for a download run.
type downloadModel struct {
	events <-chan models.ProgressEvent
	cancel context.CancelFunc

	total     int
	done      int
	failed    int
	cancelled int
	active    map[int64]string
	bytes     map[int64]int64

	progress  progress.Model
	theme     Theme
	stopping  bool
	exhausted bool
}

// newDownloadModel creates a new download progress model.
func newDownloadModel(events <-chan models.ProgressEvent, cancel context.CancelFunc, total int) downloadModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return downloadModel{
		events:   events,
		cancel:   cancel,
		total:    total,
		active:   make(map[int64]string),
		bytes:    make(map[int64]int64),
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start consuming events).
func (m downloadModel) Init() tea.Cmd {
	return tea.Batch(
		m.waitForEvent(),
		m.progress.Init(),
	)
}

// waitForEvent blocks on the next worker event.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m downloadModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return runDoneMsg{}
		}
		return assetEventMsg(ev)
	}
}

// Update handles messages and returns the updated model.
func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// Stop admitting new downloads; in-flight workers abort and
			// the event stream closes once everything has settled.
			m.stopping = true
			m.cancel()
			return m, nil
		}

	case assetEventMsg:
		m.apply(models.ProgressEvent(msg))
		return m, m.waitForEvent()

	case runDoneMsg:
		m.exhausted = true
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// apply folds one worker event into the display state.
func (m *downloadModel) apply(ev models.ProgressEvent) {
	if ev.BytesDone > 0 {
		m.bytes[ev.AssetID] = ev.BytesDone
	}

	switch ev.Phase {
	case models.StateDownloading, models.StateExtracting:
		m.active[ev.AssetID] = ev.Phase.String()
	case models.StateDone:
		m.done++
		delete(m.active, ev.AssetID)
	case models.StateFailed:
		m.failed++
		delete(m.active, ev.AssetID)
	case models.StateCancelled:
		m.cancelled++
		delete(m.active, ev.AssetID)
	}
}

// View renders the progress display.
func (m downloadModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m downloadModel) renderContent() string {
	if m.exhausted {
		return ""
	}

	finished := m.done + m.failed + m.cancelled
	var pct float64
	if m.total > 0 {
		pct = float64(finished) / float64(m.total)
	}

	label := "downloading"
	if m.stopping {
		label = "stopping"
	}
	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", label))

	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d assets, %s", finished, m.total, humanBytes(m.totalBytes()))

	hint := m.theme.hintStyle().Render("Press Ctrl+C to stop after in-flight downloads")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

func (m downloadModel) totalBytes() int64 {
	var sum int64
	for _, b := range m.bytes {
		sum += b
	}
	return sum
}

// runProgressUI drives the interactive progress display until the event
// stream closes. Pressing Ctrl+C cancels the run but keeps the UI up so
// the final counts stay visible.
func runProgressUI(events <-chan models.ProgressEvent, cancel context.CancelFunc, total int) error {
	model := newDownloadModel(events, cancel, total)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("progress UI error: %w", err)
	}
	return nil
}

// humanBytes formats a byte count for display.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
