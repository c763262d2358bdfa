package output

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/portablemc/portablemc/internals/fabric"
	"github.com/portablemc/portablemc/internals/forge"
	"github.com/portablemc/portablemc/internals/installer"
)

// Renderer turns installation events into output. Machine outputs get one
// tagged record per event, human outputs get task lines updated in place,
// with an interactive progress bar for downloads when the terminal allows.
type Renderer struct {
	out     Output
	verbose int
	ui      *downloadUI

	// Interrupt is called when the user interrupts the download bar, it
	// should cancel the installation context.
	Interrupt func()
}

func NewRenderer(out Output, verbose int) *Renderer {
	return &Renderer{out: out, verbose: verbose}
}

// Stop releases the terminal if a download bar is still showing, it must
// be called once installation returns, on error paths included.
func (r *Renderer) Stop() {
	if r.ui != nil {
		r.ui.quit()
		r.ui = nil
	}
}

// Handle implements installer.Handler.
func (r *Renderer) Handle(event installer.Event) {

	if m, ok := r.out.(*Machine); ok {
		m.Event(event)
		return
	}

	switch e := event.(type) {
	case installer.HierarchyLoadedEvent:
		if r.verbose >= 1 {
			r.info("start.hierarchy.loaded", Arg{"versions", strings.Join(e.Versions, " -> ")})
		}
	case installer.VersionLoadingEvent:
		r.pending("start.version.loading", Arg{"version", e.Version})
	case installer.VersionInvalidatedEvent:
		r.pending("start.version.invalidated", Arg{"version", e.Version})
	case installer.VersionFetchingEvent:
		r.pending("start.version.fetching", Arg{"version", e.Version})
	case installer.VersionLoadedEvent:
		key := "start.version.loaded"
		if e.Fetched {
			key = "start.version.loaded.fetched"
		}
		r.finish(key, Arg{"version", e.Version})
	case installer.FeaturesEvent:
		if r.verbose >= 1 && len(e.Features) > 0 {
			r.info("start.features", Arg{"features", strings.Join(e.Features, ", ")})
		}
	case installer.JarFoundEvent:
		r.finish("start.jar.found")
	case installer.AssetsResolvingEvent:
		r.pending("start.assets.resolving", Arg{"index_version", e.IndexVersion})
	case installer.AssetsResolvedEvent:
		r.finish("start.assets.resolved",
			Arg{"index_version", e.IndexVersion}, Arg{"count", strconv.Itoa(e.Count)})
	case installer.LibrariesResolvingEvent:
		r.pending("start.libraries.resolving")
	case installer.LibrariesResolvedEvent:
		r.finish("start.libraries.resolved",
			Arg{"class_libs_count", strconv.Itoa(e.ClassLibsCount)},
			Arg{"native_libs_count", strconv.Itoa(e.NativeLibsCount)})
	case installer.LibraryExcludedEvent:
		if r.verbose >= 1 {
			r.info("start.libraries.excluded", Arg{"spec", e.Spec})
		}
	case installer.LibraryFilterUnusedEvent:
		r.warn("start.libraries.unused_filter", Arg{"filter", e.Filter})
	case installer.LoggerFoundEvent:
		r.finish("start.logger.found", Arg{"version", e.Version})
	case installer.JvmLoadingEvent:
		r.pending("start.jvm.loading")
	case installer.JvmLoadedEvent:
		r.finish("start.jvm.loaded."+e.Kind, Arg{"version", e.Version})
	case installer.JvmWarningEvent:
		r.warn("start.jvm.warning."+e.Reason,
			Arg{"path", e.Path}, Arg{"version", e.Version})
	case installer.FixAppliedEvent:
		if r.verbose >= 1 {
			r.info("start.fix."+e.Fix, Arg{"value", e.Value})
		}
	case installer.DownloadStartEvent:
		r.downloadStart(e)
	case installer.DownloadProgressEvent:
		r.downloadProgress(e)
	case installer.DownloadCompleteEvent:
		r.downloadComplete()
	case fabric.FabricResolvingEvent:
		r.pending("start.fabric.resolving",
			Arg{"api", e.Api}, Arg{"game_version", e.GameVersion})
	case fabric.FabricResolvedEvent:
		r.finish("start.fabric.resolved",
			Arg{"api", e.Api},
			Arg{"loader_version", e.LoaderVersion},
			Arg{"game_version", e.GameVersion})
	case forge.ForgeResolvingEvent:
		r.pending("start.forge.resolving",
			Arg{"api", e.Api}, Arg{"version", e.Version})
	case forge.ForgeResolvedEvent:
		r.finish("start.forge.resolved",
			Arg{"api", e.Api}, Arg{"version", e.Version})
	case forge.ForgeFetchInstallerEvent:
		r.pending("start.forge.fetch_installer", Arg{"version", e.Version})
	case forge.ForgeProcessorEvent:
		r.pending("start.forge.post_processing", Arg{"task", e.Task})
	case forge.ForgeInstalledEvent:
		r.finish("start.forge.installed", Arg{"version", e.Version})
	}
}

func (r *Renderer) pending(key string, args ...Arg) {
	r.out.Task(StatePending, key, args...)
}

func (r *Renderer) finish(key string, args ...Arg) {
	r.out.Task(StateOK, key, args...)
	r.out.Finish()
}

func (r *Renderer) info(key string, args ...Arg) {
	r.out.Task(StateInfo, key, args...)
	r.out.Finish()
}

func (r *Renderer) warn(key string, args ...Arg) {
	r.out.Task(StateWarn, key, args...)
	r.out.Finish()
}

func (r *Renderer) downloadStart(e installer.DownloadStartEvent) {
	if r.verbose >= 1 {
		r.info("download.threads_count", Arg{"count", strconv.Itoa(e.ThreadsCount)})
	}
	if ui := newDownloadUI(r.out, e, r.Interrupt); ui != nil {
		r.ui = ui
		return
	}
	r.out.Task(StatePending, "download.start")
}

func (r *Renderer) downloadProgress(e installer.DownloadProgressEvent) {
	if r.ui != nil {
		r.ui.update(e)
		return
	}
	totalCount := strconv.Itoa(e.TotalCount)
	r.out.Task(StatePending, "download.progress",
		Arg{"count", fmt.Sprintf("%*d", len(totalCount), e.Count)},
		Arg{"total_count", totalCount},
		Arg{"size", fmt.Sprintf("%9s", humanize.IBytes(uint64(e.Size)))},
		Arg{"speed", humanize.IBytes(uint64(e.Speed)) + "/s"})
}

func (r *Renderer) downloadComplete() {
	if r.ui != nil {
		r.ui.finish()
		r.ui = nil
		return
	}
	// Turn the last progress line into a green one, keeping the counts.
	r.out.Task(StateOK, "")
	r.out.Finish()
}
