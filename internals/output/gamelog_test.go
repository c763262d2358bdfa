package output

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestGameWriterRaw(t *testing.T) {
	var buf bytes.Buffer
	w := NewGameWriter(newTestHuman(&buf))

	io.WriteString(w, "Starting net.minecraft.client\n")
	io.WriteString(w, "partial")
	io.WriteString(w, " line\n")
	w.Close()

	want := "Starting net.minecraft.client\npartial line\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestGameWriterXmlEvent(t *testing.T) {
	var buf bytes.Buffer
	w := NewGameWriter(newTestHuman(&buf))

	io.WriteString(w, "<log4j:Event logger=\"main\" timestamp=\"1710025200000\" level=\"INFO\" thread=\"Render thread\">\n")
	io.WriteString(w, "<log4j:Message><![CDATA[Loading textures]]></log4j:Message>\n")
	io.WriteString(w, "</log4j:Event>\n")
	w.Close()

	wantStamp := time.UnixMilli(1710025200000).Format("15:04:05")
	want := "[" + wantStamp + "] [Render thread] [INFO] Loading textures\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestGameWriterXmlThrowable(t *testing.T) {
	var buf bytes.Buffer
	w := NewGameWriter(newTestHuman(&buf))

	io.WriteString(w, "<log4j:Event logger=\"main\" timestamp=\"0\" level=\"ERROR\" thread=\"main\">\n"+
		"<log4j:Message><![CDATA[Crash]]></log4j:Message>\n"+
		"<log4j:Throwable><![CDATA[java.lang.IllegalStateException\n\tat net.minecraft.main\n]]></log4j:Throwable>\n"+
		"</log4j:Event>\n")
	w.Close()

	wantStamp := time.UnixMilli(0).Format("15:04:05")
	want := "[" + wantStamp + "] [main] [ERROR] Crash\n" +
		"java.lang.IllegalStateException\n\tat net.minecraft.main\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestGameWriterXmlInterleaved(t *testing.T) {
	var buf bytes.Buffer
	w := NewGameWriter(newTestHuman(&buf))

	io.WriteString(w, "<log4j:Event logger=\"main\" timestamp=\"0\" level=\"INFO\" thread=\"main\">\n"+
		"<log4j:Message><![CDATA[Ready]]></log4j:Message>\n"+
		"</log4j:Event>\n")
	io.WriteString(w, "[mod] plain println between events\n")
	w.Close()

	wantStamp := time.UnixMilli(0).Format("15:04:05")
	want := "[" + wantStamp + "] [main] [INFO] Ready\n" +
		"[mod] plain println between events\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestGameWriterXmlMalformed(t *testing.T) {
	var buf bytes.Buffer
	w := NewGameWriter(newTestHuman(&buf))

	// The closing tag never matches, decoding fails and the block is
	// replayed as it came, then the stream goes on raw.
	io.WriteString(w, "<log4j:Event logger=\"main\" level=\"INFO\">broken</log4j:Event\x00>\n")
	io.WriteString(w, "</log4j:Event>\n")
	io.WriteString(w, "back to raw\n")
	w.Close()

	want := "<log4j:Event logger=\"main\" level=\"INFO\">broken</log4j:Event\x00>\n" +
		"</log4j:Event>\nback to raw\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}

func TestGameWriterCloseFlushesOpenBlock(t *testing.T) {
	var buf bytes.Buffer
	w := NewGameWriter(newTestHuman(&buf))

	io.WriteString(w, "<log4j:Event logger=\"main\" timestamp=\"0\" level=\"INFO\" thread=\"main\">\n")
	io.WriteString(w, "<log4j:Message><![CDATA[the game died here")
	w.Close()

	want := "<log4j:Event logger=\"main\" timestamp=\"0\" level=\"INFO\" thread=\"main\">\n" +
		"<log4j:Message><![CDATA[the game died here"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}
}
