package output

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/jwalton/gchalk"
	"golang.org/x/term"
)

// Human renders task lines in place on a terminal, rewriting the current
// line until Finish seals it. A nil chalk builder renders without color.
type Human struct {
	w     io.Writer
	chalk *gchalk.Builder

	// Width forces the terminal width instead of probing the writer,
	// only useful for tests.
	Width int

	width     int
	widthTime time.Time
	lastLen   int
	active    bool
}

func NewHuman(w io.Writer, color bool) *Human {
	h := &Human{w: w}
	if color {
		h.chalk = gchalk.New(gchalk.ForceLevel(gchalk.LevelBasic))
	}
	return h
}

// termWidth probes the terminal width at most once per second, pipes and
// plain writers count as 80 columns.
func (h *Human) termWidth() int {
	if h.Width > 0 {
		return h.Width
	}
	if time.Since(h.widthTime) > time.Second {
		h.widthTime = time.Now()
		h.width = 80
		if f, ok := h.w.(*os.File); ok {
			if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
				h.width = w
			}
		}
	}
	return h.width
}

func (h *Human) paintState(state string) string {
	if h.chalk == nil {
		return state
	}
	switch strings.TrimSpace(state) {
	case StateOK:
		return h.chalk.BrightGreen(state)
	case StateFailed:
		return h.chalk.Red(state)
	case StateWarn, StateHalt:
		return h.chalk.Yellow(state)
	case StateInfo:
		return h.chalk.Blue(state)
	}
	return state
}

func (h *Human) Task(state, key string, args ...Arg) {
	// Not even a truncated message fits on such a terminal.
	termWidth := h.termWidth()
	if termWidth < 20 {
		return
	}

	var b strings.Builder
	if state == "" {
		// Keep the state column blank but aligned.
		b.WriteString("\r         ")
	} else {
		b.WriteString("\r[")
		b.WriteString(h.paintState(center(state, 6)))
		b.WriteString("] ")
	}

	if key == "" {
		// State swap, the message of the previous update stays.
		fmt.Fprint(h.w, b.String())
		h.lastLen = 0
		h.active = true
		return
	}

	msg := Lang(key, args...)
	runes := []rune(msg)
	if len(runes)+9 > termWidth {
		msg = string(runes[:termWidth-12]) + "..."
	}
	msgLen := utf8.RuneCountInString(msg)

	b.WriteString(msg)
	if h.active && h.lastLen > msgLen {
		b.WriteString(strings.Repeat(" ", h.lastLen-msgLen))
	}
	fmt.Fprint(h.w, b.String())

	h.lastLen = msgLen
	h.active = true
}

func (h *Human) Finish() {
	if h.active {
		fmt.Fprintln(h.w)
		h.lastLen = 0
		h.active = false
	}
}

// Print forwards text as is, most of it being the game output. Lines
// telling a problem get colored to stand out of the stream.
func (h *Human) Print(text string) {
	if h.chalk != nil {
		switch {
		case strings.Contains(text, "ERROR"):
			text = h.chalk.Red(text)
		case strings.Contains(text, "WARN"):
			text = h.chalk.Yellow(text)
		case strings.Contains(text, "SEVERE"), strings.Contains(text, "FATAL"):
			text = h.chalk.Red(text)
		}
	}
	fmt.Fprint(h.w, text)
}

func (h *Human) Table() Table {
	return &humanTable{h: h}
}

func center(s string, width int) string {
	pad := width - len(s)
	if pad <= 0 {
		return s
	}
	left := pad / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", pad-left)
}

// humanTable renders rows in a bordered grid. Columns wider than the
// terminal shrink proportionally and their cells wrap on as many lines
// as needed.
type humanTable struct {
	h       *Human
	rows    [][]string
	lengths []int
}

func (t *humanTable) Add(cells ...string) {
	for i, cell := range cells {
		length := utf8.RuneCountInString(cell)
		if i < len(t.lengths) {
			if length > t.lengths[i] {
				t.lengths[i] = length
			}
		} else {
			t.lengths = append(t.lengths, length)
		}
	}
	t.rows = append(t.rows, cells)
}

func (t *humanTable) Separator() {
	t.rows = append(t.rows, nil)
}

func (t *humanTable) Print() {
	count := len(t.lengths)
	if count == 0 {
		return
	}
	lengths := append([]int(nil), t.lengths...)

	// Shrink columns proportionally to their share of the overflow.
	total := 1
	for _, l := range lengths {
		total += l + 3
	}
	maxLength := t.h.termWidth() - 1
	if total > maxLength {
		overflow := total - maxLength
		totalCols := 0
		for _, l := range lengths {
			totalCols += l
		}
		for i, l := range lengths {
			ratio := float64(l) / float64(maxLength)
			cellOverflow := int(float64(l) / float64(totalCols) * ratio * float64(overflow))
			overflow -= cellOverflow
			lengths[i] = l - cellOverflow
			if i == count-1 {
				lengths[i] -= overflow
			}
		}
		for i, l := range lengths {
			if l < 1 {
				lengths[i] = 1
			}
		}
	}

	border := lipgloss.NormalBorder()
	rules := make([]string, count)
	for i, l := range lengths {
		rules[i] = strings.Repeat(border.Top, l)
	}
	edge := func(left, middle, right string) string {
		return left + border.Top + strings.Join(rules, border.Top+middle+border.Top) + border.Top + right
	}

	fmt.Fprintln(t.h.w, edge(border.TopLeft, border.MiddleTop, border.TopRight))

	cells := make([]string, count)
	for _, row := range t.rows {

		if row == nil {
			fmt.Fprintln(t.h.w, edge(border.MiddleLeft, border.Middle, border.MiddleRight))
			continue
		}

		remain := make([][]rune, count)
		for i := range remain {
			if i < len(row) {
				remain[i] = []rune(row[i])
			}
		}

		for more := true; more; {
			more = false
			for i, r := range remain {
				l := lengths[i]
				if len(r) > l {
					cells[i] = pad(string(r[:l]), l)
					rest := r[l:]
					if l > 1 {
						// Continuation lines are indented by one space.
						rest = append([]rune{' '}, rest...)
					}
					remain[i] = rest
					more = true
				} else {
					cells[i] = pad(string(r), l)
					remain[i] = nil
				}
			}
			fmt.Fprintln(t.h.w, border.Left+" "+strings.Join(cells, " "+border.Left+" ")+" "+border.Left)
		}
	}

	fmt.Fprintln(t.h.w, edge(border.BottomLeft, border.MiddleBottom, border.BottomRight))
}

func pad(s string, width int) string {
	if missing := width - utf8.RuneCountInString(s); missing > 0 {
		return s + strings.Repeat(" ", missing)
	}
	return s
}
