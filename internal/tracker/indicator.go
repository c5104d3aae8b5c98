package tracker

import (
	"errors"
	"sync"

	"github.com/charmbracelet/lipgloss"

	cerrors "github.com/zuhrulumam/mortchart/internal/errors"
)

// IndicatorState is the visible state of the loading message
type IndicatorState int

const (
	StateLoading IndicatorState = iota
	StateHidden
	StateFailed
	StateEmpty
)

func (s IndicatorState) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateHidden:
		return "hidden"
	case StateFailed:
		return "failed"
	case StateEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Messages shown by the indicator
const (
	MsgLoading      = "Loading data..."
	MsgNoRows       = "No data found in the CSV file."
	MsgNoValidRows  = "No valid data to display after processing the CSV."
	MsgLoadFailure  = "Error loading data. Check the log for details."
	ColorFailed     = "red"
	ColorEmpty      = "orange"
	colorLoadingHex = "#888888"
)

var (
	loadingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorLoadingHex)).Italic(true)
	failedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	emptyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// Indicator is the status line shown while data loads and when it fails.
// It is safe for concurrent use.
type Indicator struct {
	mu      sync.RWMutex
	state   IndicatorState
	message string
}

// NewIndicator returns an indicator in the loading state
func NewIndicator() *Indicator {
	return &Indicator{state: StateLoading, message: MsgLoading}
}

// Begin shows the loading message
func (in *Indicator) Begin() {
	in.set(StateLoading, MsgLoading)
}

// Finish hides the indicator when err is nil, otherwise shows the
// message for err's failure class.
func (in *Indicator) Finish(err error) {
	switch cerrors.KindOf(err) {
	case cerrors.KindNone:
		in.set(StateHidden, "")
	case cerrors.KindEmptyDataset:
		var empty *cerrors.EmptyDatasetError
		if errors.As(err, &empty) && empty.NoRows() {
			in.set(StateEmpty, MsgNoRows)
			return
		}
		in.set(StateEmpty, MsgNoValidRows)
	default:
		in.set(StateFailed, MsgLoadFailure)
	}
}

func (in *Indicator) set(state IndicatorState, message string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.state = state
	in.message = message
}

func (in *Indicator) State() IndicatorState {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.state
}

func (in *Indicator) Message() string {
	in.mu.RLock()
	defer in.mu.RUnlock()
	return in.message
}

// Visible reports whether the message should be displayed
func (in *Indicator) Visible() bool {
	return in.State() != StateHidden
}

// Color returns the CSS color for the current state, empty when default
func (in *Indicator) Color() string {
	switch in.State() {
	case StateFailed:
		return ColorFailed
	case StateEmpty:
		return ColorEmpty
	default:
		return ""
	}
}

// View renders the message for a terminal; hidden renders as ""
func (in *Indicator) View() string {
	in.mu.RLock()
	state, message := in.state, in.message
	in.mu.RUnlock()

	switch state {
	case StateLoading:
		return loadingStyle.Render(message)
	case StateFailed:
		return failedStyle.Render(message)
	case StateEmpty:
		return emptyStyle.Render(message)
	default:
		return ""
	}
}
