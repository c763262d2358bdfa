package output

import (
	"bytes"
	"strings"
	"testing"
)

func newTestHuman(buf *bytes.Buffer) *Human {
	h := NewHuman(buf, false)
	h.Width = 80
	return h
}

func TestHumanTask(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	h.Task(StatePending, "start.version.loading", Arg{"version", "1.20.4"})
	h.Task(StateOK, "start.version.loaded", Arg{"version", "1.20.4"})
	h.Finish()

	// The second message is four runes shorter, the line is padded so no
	// leftover of the first message shows.
	want := "\r[  ..  ] Loading version 1.20.4..." +
		"\r[  OK  ] Loaded version 1.20.4    \n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestHumanTaskStateSwap(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	h.Task(StatePending, "echo", Arg{"echo", "hello"})
	h.Task(StateOK, "")
	h.Finish()

	want := "\r[  ..  ] hello\r[  OK  ] \n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestHumanTaskBlankState(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	h.Task("", "echo", Arg{"echo", "updated"})

	want := "\r         updated"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestHumanTaskTruncated(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, false)
	h.Width = 30

	h.Task(StatePending, "echo", Arg{"echo", strings.Repeat("a", 40)})

	want := "\r[  ..  ] " + strings.Repeat("a", 18) + "..."
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestHumanTaskNarrowTerminal(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, false)
	h.Width = 19

	h.Task(StatePending, "echo", Arg{"echo", "hidden"})
	h.Finish()

	if buf.Len() != 0 {
		t.Fatalf("expected no output on a too narrow terminal, got %q", buf.String())
	}
}

func TestHumanFinishIdle(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	h.Finish()
	if buf.Len() != 0 {
		t.Fatalf("finish without a task should print nothing, got %q", buf.String())
	}
}

func TestHumanColorState(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, true)
	h.Width = 80

	h.Task(StateOK, "start.jar.found")
	h.Finish()

	got := buf.String()
	if !strings.Contains(got, "\x1b[92m") {
		t.Fatalf("OK state should be bright green, got %q", got)
	}
	if !strings.Contains(got, "  OK  ") {
		t.Fatalf("state should stay centered when colored, got %q", got)
	}
}

func TestHumanPrint(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	h.Print("[12:00:00] [Render thread/INFO]: Backend library: LWJGL\n")
	if got := buf.String(); got != "[12:00:00] [Render thread/INFO]: Backend library: LWJGL\n" {
		t.Fatalf("plain print must forward text as is, got %q", got)
	}
}

func TestHumanPrintHighlight(t *testing.T) {
	cases := []struct {
		name string
		text string
		code string
	}{
		{"error", "[12:00:00] [main/ERROR]: boom\n", "\x1b[31m"},
		{"warn", "[12:00:00] [main/WARN]: watch out\n", "\x1b[33m"},
		{"severe", "[12:00:00] SEVERE something\n", "\x1b[31m"},
		{"fatal", "[12:00:00] FATAL something\n", "\x1b[31m"},
		{"error wins over warn", "ERROR then WARN\n", "\x1b[31m"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			var buf bytes.Buffer
			h := NewHuman(&buf, true)
			h.Width = 80

			h.Print(c.text)
			if got := buf.String(); !strings.HasPrefix(got, c.code) {
				t.Fatalf("got %q, want prefix %q", got, c.code)
			}
		})
	}
}

func TestHumanTable(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	table := h.Table()
	table.Add("Type", "Identifier")
	table.Separator()
	table.Add("release", "1.20.4")
	table.Print()

	want := "" +
		"┌─────────┬────────────┐\n" +
		"│ Type    │ Identifier │\n" +
		"├─────────┼────────────┤\n" +
		"│ release │ 1.20.4     │\n" +
		"└─────────┴────────────┘\n"
	if buf.String() != want {
		t.Fatalf("got:\n%swant:\n%s", buf.String(), want)
	}
}

func TestHumanTableShrinkAndWrap(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, false)
	h.Width = 20

	table := h.Table()
	table.Add("abcdefghijklmnopqrstuvwxyz0123")
	table.Print()

	// The column shrinks to fit the terminal and the cell wraps over
	// three lines, continuations indented by one space.
	want := "" +
		"┌─────────────────┐\n" +
		"│ abcdefghijklmno │\n" +
		"│  pqrstuvwxyz012 │\n" +
		"│  3              │\n" +
		"└─────────────────┘\n"
	if buf.String() != want {
		t.Fatalf("got:\n%swant:\n%s", buf.String(), want)
	}
}

func TestHumanTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	h := newTestHuman(&buf)

	h.Table().Print()
	if buf.Len() != 0 {
		t.Fatalf("empty table should print nothing, got %q", buf.String())
	}
}
