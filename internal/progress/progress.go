// Package progress is annd build's live status display: a bubbletea
// program showing a phase spinner, a bubbles/progress bar tracking
// iterations against --max-iters, and the running accepted-push count.
// Adapted from internal/tui's interactive search screen into a one-way
// progress readout: internal/tui reaches for bubbles/textinput for its
// search box, this reaches for bubbles/progress for its completion bar —
// same component family, different member. Palette and the
// padBetween/clamp layout helpers are reused near-verbatim; the
// textinput/results-list machinery search needed is gone since there's
// nothing here to type into.
package progress

import (
	"fmt"
	"strings"
	"time"

	bprogress "github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/screenager/annd/internal/nndescent"
)

var (
	colorAccent = lipgloss.Color("#7C6AF7")
	colorDim    = lipgloss.Color("#555555")
	colorMuted  = lipgloss.Color("#888888")
	colorText   = lipgloss.Color("#DDDDDD")
	colorGreen  = lipgloss.Color("#5AF078")
	colorErr    = lipgloss.Color("#FF6B6B")

	sTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorText)
	sAccent = lipgloss.NewStyle().Foreground(colorAccent)
	sDim    = lipgloss.NewStyle().Foreground(colorDim)
	sMuted  = lipgloss.NewStyle().Foreground(colorMuted)
	sGreen  = lipgloss.NewStyle().Foreground(colorGreen)
	sErr    = lipgloss.NewStyle().Foreground(colorErr)
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type spinTickMsg struct{}

func spinTick() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(time.Time) tea.Msg { return spinTickMsg{} })
}

type iterationMsg struct {
	iteration int
	accepted  int64
	elapsed   time.Duration
}

type doneMsg struct {
	graph *nndescent.Graph
}

type errMsg struct {
	err error
}

// Model is the bubbletea model driving the build-progress screen.
type Model struct {
	n, k, maxIters int
	frame          int
	iter           int
	accept         int64
	elapsed        time.Duration
	done           bool
	err            error
	graph          *nndescent.Graph
	bar            bprogress.Model
}

// New returns a Model for a dataset of n points, neighbourhood size k, and
// a build capped at maxIters iterations — the denominator the progress bar
// fills against, since NN-Descent has no other fixed notion of "total work".
func New(n, k, maxIters int) *Model {
	if maxIters <= 0 {
		maxIters = 1
	}
	return &Model{n: n, k: k, maxIters: maxIters, bar: bprogress.New(bprogress.WithDefaultGradient())}
}

func (m *Model) Init() tea.Cmd {
	return spinTick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}
	case spinTickMsg:
		if m.done {
			return m, nil
		}
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, spinTick()
	case iterationMsg:
		m.iter = msg.iteration
		m.accept = msg.accepted
		m.elapsed = msg.elapsed
		return m, nil
	case doneMsg:
		m.done = true
		m.graph = msg.graph
		return m, tea.Quit
	case errMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) View() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n\n", sTitle.Render("annd build"), sMuted.Render(fmt.Sprintf("%d points, k=%d", m.n, m.k)))

	if m.err != nil {
		fmt.Fprintf(&b, "%s %s\n", sErr.Render("✗"), sErr.Render(m.err.Error()))
		return b.String()
	}

	if m.done {
		fmt.Fprintf(&b, "%s %s\n", sGreen.Render("✓"), sGreen.Render("build complete"))
	} else {
		frame := spinnerFrames[m.frame]
		fmt.Fprintf(&b, "%s %s\n", sAccent.Render(frame), sAccent.Render("refining graph…"))
	}

	frac := float64(m.iter) / float64(m.maxIters)
	if frac > 1 {
		frac = 1
	}
	fmt.Fprintf(&b, "%s\n", m.bar.ViewAs(frac))

	fmt.Fprintf(&b, "%s\n", padBetween(
		fmt.Sprintf("iteration %d/%d", m.iter, m.maxIters),
		fmt.Sprintf("accepted %d  (%s)", m.accept, m.elapsed.Round(time.Millisecond)),
		48,
	))
	fmt.Fprintln(&b)
	fmt.Fprintln(&b, sDim.Render("ctrl+c / q to cancel"))
	return b.String()
}

// Run drives a build in the background, feeding every completed iteration
// and the terminal outcome into the bubbletea program as it runs in the
// foreground. build is handed a ProgressFunc wired to this model.
func Run(n, k, maxIters int, build func(nndescent.ProgressFunc) (*nndescent.Graph, error)) (*nndescent.Graph, error) {
	m := New(n, k, maxIters)
	p := tea.NewProgram(m)

	go func() {
		g, err := build(func(iteration int, accepted int64, elapsed time.Duration) {
			p.Send(iterationMsg{iteration: iteration, accepted: accepted, elapsed: elapsed})
		})
		if err != nil {
			p.Send(errMsg{err: err})
			return
		}
		p.Send(doneMsg{graph: g})
	}()

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress: running UI: %w", err)
	}
	fm := finalModel.(*Model)
	if fm.err != nil {
		return nil, fm.err
	}
	return fm.graph, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// padBetween pads left and right strings to fill width, per
// internal/tui.go's layout helper.
func padBetween(left, right string, width int) string {
	lv := visibleLen(left)
	rv := visibleLen(right)
	gap := clamp(width-lv-rv-2, 1, width)
	return left + strings.Repeat(" ", gap) + right
}

func visibleLen(s string) int {
	n := 0
	inEsc := false
	for _, c := range s {
		if c == '\x1b' {
			inEsc = true
		}
		if inEsc {
			if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
				inEsc = false
			}
			continue
		}
		n++
	}
	return n
}
