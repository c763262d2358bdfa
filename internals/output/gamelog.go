package output

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"
)

// GameWriter forwards the game process output to an Output, line by line.
// Vanilla logs its events in a log4j XML layout, those blocks are decoded
// and reprinted as single readable lines, anything else passes through
// untouched. The zero value is not usable, see NewGameWriter.
//
// The same writer can back both stdout and stderr of the game process,
// os/exec serializes writes when both point to the same value.
type GameWriter struct {
	out   Output
	buf   []byte
	block []string
	xml   bool
}

func NewGameWriter(out Output) *GameWriter {
	return &GameWriter{out: out}
}

// gameLogEvent mirrors one log4j:Event element. The timestamp attribute
// counts milliseconds since the unix epoch.
type gameLogEvent struct {
	Timestamp int64  `xml:"timestamp,attr"`
	Logger    string `xml:"logger,attr"`
	Level     string `xml:"level,attr"`
	Thread    string `xml:"thread,attr"`
	Message   string `xml:"Message"`
	Throwable string `xml:"Throwable"`
}

func (w *GameWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		at := bytes.IndexByte(w.buf, '\n')
		if at < 0 {
			return len(p), nil
		}
		line := string(w.buf[:at+1])
		w.buf = w.buf[at+1:]
		w.line(line)
	}
}

// Close flushes a final line the game did not terminate and any XML block
// left open when the process died.
func (w *GameWriter) Close() error {
	if len(w.buf) > 0 {
		w.line(string(w.buf))
		w.buf = nil
	}
	w.flushBlock()
	return nil
}

// line routes one raw line, switching to XML decoding when the stream
// shows a log4j tag, like the game does once its logging is configured.
func (w *GameWriter) line(line string) {
	if !w.xml && strings.HasPrefix(strings.TrimLeft(line, " \t"), "<log4j:") {
		w.xml = true
	}
	if !w.xml {
		w.out.Print(line)
		return
	}

	// Lines between two events are not part of any block, mods commonly
	// write plain text to stdout next to the XML layout.
	if len(w.block) == 0 && !strings.HasPrefix(strings.TrimLeft(line, " \t"), "<log4j:") {
		w.out.Print(line)
		return
	}

	w.block = append(w.block, line)
	if strings.Contains(line, "</log4j:Event>") {
		w.endBlock()
	}
}

// endBlock decodes the accumulated event block. A block that does not
// decode is replayed verbatim and the writer goes back to raw mode.
func (w *GameWriter) endBlock() {
	var doc struct {
		Events []gameLogEvent `xml:"Event"`
	}
	src := "<root xmlns:log4j=\"log4j\">" + strings.Join(w.block, "") + "</root>"
	if err := xml.Unmarshal([]byte(src), &doc); err != nil {
		w.flushBlock()
		w.xml = false
		return
	}
	w.block = w.block[:0]

	for _, event := range doc.Events {
		stamp := time.UnixMilli(event.Timestamp).Format("15:04:05")
		w.out.Print("[" + stamp + "] [" + event.Thread + "] [" + event.Level + "] " + event.Message + "\n")
		if event.Throwable != "" {
			w.out.Print(strings.TrimRight(event.Throwable, " \t\r\n") + "\n")
		}
	}
}

func (w *GameWriter) flushBlock() {
	for _, line := range w.block {
		w.out.Print(line)
	}
	w.block = nil
}
