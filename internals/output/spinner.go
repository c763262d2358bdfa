package output

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/mattn/go-isatty"
)

// MaybeSpinner animates a wait on outputs backed by a lively terminal and
// falls back to a pending task line everywhere else. Callers keep emitting
// regular task lines once the wait is over.
type MaybeSpinner struct {
	out  Output
	spin *spinner.Spinner
	key  string
	args []Arg
}

func NewMaybeSpinner(out Output, key string, args ...Arg) *MaybeSpinner {
	m := &MaybeSpinner{out: out, key: key, args: args}
	if h, ok := out.(*Human); ok && h.chalk != nil {
		if f, ok := h.w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			m.spin = spinner.New(spinner.CharSets[9], 300*time.Millisecond, spinner.WithWriter(f))
			m.spin.Prefix = " "
			m.spin.Suffix = " " + Lang(key, args...)
		}
	}
	return m
}

func (m *MaybeSpinner) Start() {
	if m.spin != nil {
		m.spin.Start()
		return
	}
	m.out.Task(StatePending, m.key, m.args...)
}

// Update swaps the awaited message in place.
func (m *MaybeSpinner) Update(key string, args ...Arg) {
	m.key, m.args = key, args
	if m.spin != nil {
		m.spin.Suffix = " " + Lang(key, args...)
		return
	}
	m.out.Task(StatePending, key, args...)
}

// Stop clears the spinner line. The fallback task line stays pending, the
// caller is expected to seal it with a final state.
func (m *MaybeSpinner) Stop() {
	if m.spin != nil {
		m.spin.Stop()
	}
}
