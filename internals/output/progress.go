package output

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/portablemc/portablemc/internals/installer"
)

var checkMark = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).SetString("✓")

type progressMsg installer.DownloadProgressEvent

type doneMsg struct{}

// downloadUI runs a bubbletea program rendering the download bar, fed by
// the renderer from the installation goroutine.
type downloadUI struct {
	prog *tea.Program
	done chan struct{}
}

// newDownloadUI returns nil when the output cannot host an interactive
// bar, the caller then falls back to plain task lines.
func newDownloadUI(out Output, start installer.DownloadStartEvent, interrupt func()) *downloadUI {

	h, ok := out.(*Human)
	if !ok || h.chalk == nil {
		return nil
	}
	f, ok := h.w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return nil
	}

	// Seal any pending task line before the program takes the terminal.
	h.Finish()

	m := newDownloadModel(start, interrupt)
	p := tea.NewProgram(m, tea.WithOutput(f))
	ui := &downloadUI{prog: p, done: make(chan struct{})}

	go func() {
		defer close(ui.done)
		p.Run()
	}()

	// Wait for the event loop, Send is not safe before it starts.
	select {
	case <-m.started:
	case <-ui.done:
	}
	return ui
}

func (ui *downloadUI) update(e installer.DownloadProgressEvent) {
	ui.prog.Send(progressMsg(e))
}

// finish seals the bar with its final frame and waits for the terminal
// to be restored.
func (ui *downloadUI) finish() {
	ui.prog.Send(doneMsg{})
	<-ui.done
}

// quit drops the bar as is, used when installation fails mid download.
func (ui *downloadUI) quit() {
	ui.prog.Quit()
	<-ui.done
}

type downloadModel struct {
	spin      spinner.Model
	prog      progress.Model
	width     int
	current   installer.DownloadProgressEvent
	done      bool
	interrupt func()
	started   chan struct{}
}

func newDownloadModel(start installer.DownloadStartEvent, interrupt func()) downloadModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)
	s := spinner.New()
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	return downloadModel{
		spin: s,
		prog: p,
		current: installer.DownloadProgressEvent{
			TotalCount: start.EntriesCount,
			TotalSize:  start.Size,
		},
		interrupt: interrupt,
		started:   make(chan struct{}),
	}
}

func (m downloadModel) Init() tea.Cmd {
	close(m.started)
	return spinner.Tick
}

func (m downloadModel) percent() float64 {
	if m.current.TotalSize > 0 {
		return float64(m.current.Size) / float64(m.current.TotalSize)
	}
	if m.current.TotalCount > 0 {
		return float64(m.current.Count) / float64(m.current.TotalCount)
	}
	return 0
}

func (m downloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			if m.interrupt != nil {
				m.interrupt()
			}
			return m, tea.Quit
		}
	case progressMsg:
		m.current = installer.DownloadProgressEvent(msg)
		return m, m.prog.SetPercent(m.percent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		newModel, cmd := m.prog.Update(msg)
		if newModel, ok := newModel.(progress.Model); ok {
			m.prog = newModel
		}
		return m, cmd
	}
	return m, nil
}

func (m downloadModel) View() string {
	if m.done {
		return fmt.Sprintf("%s Downloaded %d files (%s)\n", checkMark,
			m.current.TotalCount, humanize.IBytes(uint64(m.current.TotalSize)))
	}

	w := lipgloss.Width(strconv.Itoa(m.current.TotalCount))
	counts := fmt.Sprintf(" %*d/%*d", w, m.current.Count, w, m.current.TotalCount)
	stats := fmt.Sprintf(" %9s @ %s/s",
		humanize.IBytes(uint64(m.current.Size)),
		humanize.IBytes(uint64(m.current.Speed)))

	spin := m.spin.View() + " "
	prog := m.prog.View()

	cellsRemaining := max(0, m.width-lipgloss.Width(spin+prog+counts+stats))
	gap := strings.Repeat(" ", cellsRemaining)

	return spin + gap + prog + counts + stats
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
