package output

import (
	"bytes"
	"strings"
	"testing"

	"github.com/portablemc/portablemc/internals/fabric"
	"github.com/portablemc/portablemc/internals/forge"
	"github.com/portablemc/portablemc/internals/installer"
)

func installSequence() []installer.Event {
	return []installer.Event{
		installer.VersionLoadingEvent{Version: "1.20.4"},
		installer.VersionLoadedEvent{Version: "1.20.4"},
		installer.JarFoundEvent{Version: "1.20.4"},
		installer.JvmLoadingEvent{MajorVersion: 17},
		installer.JvmLoadedEvent{Path: "/opt/jvm/bin/java", Version: "17.0.8", Kind: installer.JvmKindMojang, Compatible: true},
		installer.DownloadStartEvent{ThreadsCount: 4, EntriesCount: 12, Size: 4096},
		installer.DownloadProgressEvent{Count: 1, TotalCount: 12, Size: 1024, TotalSize: 4096, Speed: 512, Name: "client.jar"},
		installer.DownloadCompleteEvent{},
	}
}

func TestRendererHuman(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, false)
	h.Width = 120

	r := NewRenderer(h, 0)
	for _, event := range installSequence() {
		r.Handle(event)
	}
	r.Stop()

	// Each carriage return starts a rewrite of the task line, sealed
	// lines end with a newline.
	want := []string{
		"",
		"[  ..  ] Loading version 1.20.4...",
		"[  OK  ] Loaded version 1.20.4    \n",
		"[  OK  ] Checked version jar\n",
		"[  ..  ] Loading java...",
		"[  OK  ] Loaded Mojang java 17.0.8\n",
		"[  ..  ] Download starting...",
		"[  ..  ] Download:  1/12   1.0 KiB @ 512 B/s",
		"[  OK  ] \n",
	}
	got := strings.Split(buf.String(), "\r")
	if len(got) != len(want) {
		t.Fatalf("got %d chunks, want %d:\n%q", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chunk %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRendererMachine(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(NewMachine(&buf), 0)
	for _, event := range installSequence() {
		r.Handle(event)
	}
	r.Stop()

	want := "version_loading:version=1.20.4\n" +
		"version_loaded:version=1.20.4,fetched=false\n" +
		"jar_found:version=1.20.4\n" +
		"jvm_loading:major_version=17\n" +
		"jvm_loaded:path=/opt/jvm/bin/java,version=17.0.8,kind=mojang,compatible=true\n" +
		"download_start:threads_count=4,entries_count=12,size=4096\n" +
		"download_progress:count=1,total_count=12,size=1024,total_size=4096,speed=512,name=client.jar\n" +
		"download_complete:\n"
	if buf.String() != want {
		t.Fatalf("got:\n%swant:\n%s", buf.String(), want)
	}
}

func TestRendererVerbose(t *testing.T) {
	events := []installer.Event{
		installer.FeaturesEvent{Features: []string{"is_demo_user"}},
		installer.HierarchyLoadedEvent{Versions: []string{"fabric-1.20.4", "1.20.4"}},
		installer.LibraryExcludedEvent{Spec: "org.lwjgl:lwjgl-glfw:3.3.2:natives"},
		installer.FixAppliedEvent{Fix: installer.FixLegacyProxy, Value: "betacraft.uk:11702"},
	}

	var quiet bytes.Buffer
	h := NewHuman(&quiet, false)
	h.Width = 120
	r := NewRenderer(h, 0)
	for _, event := range events {
		r.Handle(event)
	}
	if quiet.Len() != 0 {
		t.Fatalf("verbose only events leaked at verbosity 0: %q", quiet.String())
	}

	var loud bytes.Buffer
	h = NewHuman(&loud, false)
	h.Width = 120
	r = NewRenderer(h, 1)
	for _, event := range events {
		r.Handle(event)
	}
	got := loud.String()
	for _, part := range []string{
		"[ INFO ] Features: [is_demo_user]",
		"[ INFO ] Version hierarchy: fabric-1.20.4 -> 1.20.4",
		"[ INFO ] Excluded library org.lwjgl:lwjgl-glfw:3.3.2:natives",
		"[ INFO ] Using legacy proxy for online resources: betacraft.uk:11702",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("missing %q in:\n%q", part, got)
		}
	}
}

func TestRendererWarnings(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, false)
	h.Width = 120

	r := NewRenderer(h, 0)
	r.Handle(installer.LibraryFilterUnusedEvent{Filter: "lwjgl-glfw::natives"})
	r.Handle(installer.JvmWarningEvent{
		Reason:  installer.JvmWarnVersionRejected,
		Path:    "/usr/bin/java",
		Version: "1.8.0_392",
	})

	got := buf.String()
	for _, part := range []string{
		"[ WARN ] Unused library filter lwjgl-glfw::natives",
		"[ WARN ] Rejected java 1.8.0_392 at /usr/bin/java",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("missing %q in:\n%q", part, got)
		}
	}
}

func TestRendererLoaders(t *testing.T) {
	var buf bytes.Buffer
	h := NewHuman(&buf, false)
	h.Width = 120

	r := NewRenderer(h, 0)
	r.Handle(fabric.FabricResolvingEvent{Api: "fabric", GameVersion: "1.20.4"})
	r.Handle(fabric.FabricResolvedEvent{Api: "fabric", GameVersion: "1.20.4", LoaderVersion: "0.15.6"})
	r.Handle(forge.ForgeResolvingEvent{Api: "forge", Version: "1.20.1-recommended"})
	r.Handle(forge.ForgeResolvedEvent{Api: "forge", Version: "1.20.1-47.2.20"})
	r.Handle(forge.ForgeFetchInstallerEvent{Version: "1.20.1-47.2.20"})
	r.Handle(forge.ForgeProcessorEvent{Name: "jarsplitter", Task: "splitting client jar"})
	r.Handle(forge.ForgeInstalledEvent{Version: "1.20.1-47.2.20"})

	got := buf.String()
	for _, part := range []string{
		"[  ..  ] Resolving fabric loader for 1.20.4...",
		"[  OK  ] Resolved fabric loader 0.15.6 for 1.20.4",
		"[  ..  ] Resolving forge alias 1.20.1-recommended...",
		"[  OK  ] Resolved forge 1.20.1-47.2.20",
		"[  ..  ] Fetching installer 1.20.1-47.2.20...",
		"[  ..  ] Forge post processing: splitting client jar...",
		"[  OK  ] Installed forge 1.20.1-47.2.20",
	} {
		if !strings.Contains(got, part) {
			t.Errorf("missing %q in:\n%q", part, got)
		}
	}
}
