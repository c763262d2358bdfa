// Package output renders the launcher progress and results, either as
// lines meant for humans or as a stable line protocol meant for wrapping
// tools. Installation events are consumed here and turned into task
// updates, the machine form keeps the raw events.
package output

import (
	"os"
)

// Kind selects an output implementation.
type Kind string

const (
	KindHuman      Kind = "human"
	KindHumanColor Kind = "human-color"
	KindMachine    Kind = "machine"
)

// Task states. Pending tasks are rewritten in place until a final state
// ends them.
const (
	StatePending = ".."
	StateOK      = "OK"
	StateFailed  = "FAILED"
	StateWarn    = "WARN"
	StateInfo    = "INFO"
	StateHalt    = "HALT"
)

// Arg is one named argument of a message. Arguments keep their order so
// machine lines are stable.
type Arg struct {
	Key   string
	Value string
}

// Output is where commands render their progress and results.
type Output interface {
	// Task updates the current task line with a state, a message key
	// resolved through the lang catalog and its arguments. An empty
	// state blanks the state column, an empty key keeps the message
	// already on the line.
	Task(state string, key string, args ...Arg)
	// Finish ends the current task line.
	Finish()
	// Print forwards raw text, commonly the game output. No newline is
	// added.
	Print(text string)
	// Table returns a builder collecting rows to print in the output's
	// format.
	Table() Table
}

// Table collects rows and separators and prints them at once.
type Table interface {
	Add(cells ...string)
	Separator()
	Print()
}

// New returns the output writing to standard output for the given kind,
// defaulting to the plain human form.
func New(kind Kind) Output {
	switch kind {
	case KindMachine:
		return NewMachine(os.Stdout)
	case KindHumanColor:
		return NewHuman(os.Stdout, true)
	default:
		return NewHuman(os.Stdout, false)
	}
}
