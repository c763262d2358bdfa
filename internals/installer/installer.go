package installer

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/mojang"
)

// Installer installs a version of the game into a Context, downloading
// whatever is missing, and produces a Game ready to spawn. Fields other
// than Context and Version are optional.
//
// The phases run sequentially: features, version hierarchy, client jar,
// assets, libraries, logger, JVM, then a single parallel download batch,
// mirrors and links, and finally argument assembly.
type Installer struct {
	// Context is the directory layout to install into.
	Context Context
	// Version is the version id to install. The release and snapshot
	// aliases are resolved through the Manifest.
	Version string

	// Manifest resolves aliases, locates versions that are not installed
	// and validates installed metadata files. When nil, only installed
	// versions can be resolved and no validation happens.
	Manifest *mojang.Client
	// Client performs the metadata requests of the installation, defaults
	// to http.DefaultClient. The download batch uses it too.
	Client *http.Client
	// Handler receives events as the installation progresses.
	Handler Handler

	// Session provides the player identity for the argument placeholders.
	// Nil runs an anonymous offline session.
	Session Session

	// Demo enables the demo mode of the game.
	Demo bool
	// Resolution sets the initial size of the game window.
	Resolution *Resolution
	// QuickPlay makes the game join a world, server or realm on launch.
	QuickPlay *QuickPlay
	// Features enables additional feature flags during rule evaluation.
	Features map[string]bool

	// StrictChecks re-hashes present files that declare a sha1 instead of
	// trusting their size.
	StrictChecks bool

	// JvmPolicy tells how the JVM is provided. The zero value searches the
	// system first and falls back to Mojang distributions.
	JvmPolicy JvmPolicy

	// LauncherName and LauncherVersion fill the corresponding argument
	// placeholders.
	LauncherName    string
	LauncherVersion string

	// Fixes enables workarounds for known bugs of legacy versions. Nil
	// enables every fix except the LWJGL version rewrite.
	Fixes *Fixes

	DisableMultiplayer bool
	DisableChat        bool

	// ExcludeLibs drops matching libraries before download.
	ExcludeLibs []LibraryFilter
	// IncludeBins installs additional files into the run bin directory.
	IncludeBins []string

	// FetchVersion overrides how a missing version metadata is obtained,
	// it must write the metadata file at dst. Loader installers use it to
	// synthesize their root version and call DefaultFetchVersion for the
	// rest of the hierarchy. The default fetches from the Manifest.
	FetchVersion func(ctx context.Context, version string, dst string) error
	// ValidateVersion overrides the check deciding whether an installed
	// version metadata file is still good. Returning false triggers
	// FetchVersion again. Hooks call DefaultValidateVersion for versions
	// they do not handle. The default compares the sha1 advertised by the
	// Manifest, and accepts the file when offline.
	ValidateVersion func(ctx context.Context, version string, file string) bool
}

// New returns an installer with the defaults used by the command line: a
// version manifest cached in the work directory.
func New(ctx Context, version string) *Installer {
	manifest := mojang.New()
	manifest.CacheFile = filepath.Join(ctx.WorkDir, "portablemc_version_manifest.json")
	return &Installer{
		Context:  ctx,
		Version:  version,
		Manifest: manifest,
	}
}

// Resolution is an initial game window size.
type Resolution struct {
	Width  int
	Height int
}

// Fixes toggles the workarounds applied to legacy versions, see
// DefaultFixes for the default set.
type Fixes struct {
	// LegacyProxy routes the game through a proxy re-implementing old
	// online services, fixing skins and sounds.
	LegacyProxy bool
	// LegacyMergeSort restores the JVM sort behavior old alpha and beta
	// versions crash without.
	LegacyMergeSort bool
	// LegacyResolution synthesizes --width/--height for versions without
	// the resolution feature.
	LegacyResolution bool
	// LegacyQuickPlay synthesizes --server/--port for versions without the
	// quick play feature.
	LegacyQuickPlay bool
	// AuthLib swaps authlib 2.1.28 for 2.2.30, fixing multiplayer on
	// 1.16.4 and 1.16.5.
	AuthLib bool
	// Lwjgl rewrites every LWJGL library to this version, useful on
	// platforms Mojang ships no natives for. Empty disables the rewrite,
	// 3.2.3 and 3.3.* are supported.
	Lwjgl string
}

// DefaultFixes returns the fixes enabled by default.
func DefaultFixes() *Fixes {
	return &Fixes{
		LegacyProxy:      true,
		LegacyMergeSort:  true,
		LegacyResolution: true,
		LegacyQuickPlay:  true,
		AuthLib:          true,
	}
}

// Names of the fixes as reported by FixAppliedEvent and Game.Fixes.
const (
	FixLegacyProxy      = "legacy_proxy"
	FixLegacyMergeSort  = "legacy_merge_sort"
	FixLegacyResolution = "legacy_resolution"
	FixLegacyQuickPlay  = "legacy_quick_play"
	FixAuthLib          = "auth_lib"
	FixLwjgl            = "lwjgl"
)

// QuickPlay configures the world, server or realm the game joins right
// after launch. Versions without quick play support can still join a
// server through the LegacyQuickPlay fix.
type QuickPlay struct {
	feature     string
	placeholder string
	value       string

	// multiplayer only, used by the legacy fix
	host string
	port int
}

// QuickPlayPath replays a quick play json file from the game directory.
func QuickPlayPath(path string) *QuickPlay {
	return &QuickPlay{feature: "has_quick_plays_support", placeholder: "quickPlayPath", value: path}
}

// QuickPlaySingleplayer loads the given world on launch.
func QuickPlaySingleplayer(levelName string) *QuickPlay {
	return &QuickPlay{feature: "is_quick_play_singleplayer", placeholder: "quickPlaySingleplayer", value: levelName}
}

// QuickPlayMultiplayer joins the given server on launch. Port 0 defaults
// to 25565.
func QuickPlayMultiplayer(host string, port int) *QuickPlay {
	if port == 0 {
		port = 25565
	}
	return &QuickPlay{
		feature:     "is_quick_play_multiplayer",
		placeholder: "quickPlayMultiplayer",
		value:       fmt.Sprintf("%s:%d", host, port),
		host:        host,
		port:        port,
	}
}

// QuickPlayRealms joins the given realm on launch.
func QuickPlayRealms(realm string) *QuickPlay {
	return &QuickPlay{feature: "is_quick_play_realms", placeholder: "quickPlayRealms", value: realm}
}

// Install resolves, verifies and downloads everything required to run the
// version and returns the Game to spawn. Files already present and valid
// are never downloaded again, so repeating an install is cheap and works
// offline.
func (i *Installer) Install(ctx context.Context) (*Game, error) {
	features := i.resolveFeatures()

	hierarchy, err := i.resolveHierarchy(ctx)
	if err != nil {
		return nil, err
	}
	flat := hierarchy.Flatten()

	dl := downloadmgr.New()
	dl.Client = i.client()

	jarPath, err := i.resolveJar(hierarchy, flat, dl)
	if err != nil {
		return nil, err
	}

	assets, err := i.resolveAssets(ctx, flat, dl)
	if err != nil {
		return nil, err
	}

	libs, err := i.resolveLibraries(flat, features, dl)
	if err != nil {
		return nil, err
	}

	logger, err := i.resolveLogger(flat, dl)
	if err != nil {
		return nil, err
	}

	jvm, err := i.resolveJvm(ctx, flat, dl)
	if err != nil {
		return nil, err
	}

	if err := i.Download(ctx, dl); err != nil {
		return nil, err
	}

	if err := assets.finalize(); err != nil {
		return nil, err
	}
	if err := jvm.finalize(); err != nil {
		return nil, err
	}

	return i.assemble(hierarchy, flat, features, jarPath, assets, libs, logger, jvm)
}

func (i *Installer) client() *http.Client {
	if i.Client != nil {
		return i.Client
	}
	return http.DefaultClient
}

func (i *Installer) fixes() *Fixes {
	if i.Fixes != nil {
		return i.Fixes
	}
	return DefaultFixes()
}

func (i *Installer) resolveFeatures() map[string]bool {
	features := map[string]bool{
		"is_demo_user":          i.Demo,
		"has_custom_resolution": i.Resolution != nil,
	}
	if i.QuickPlay != nil {
		features[i.QuickPlay.feature] = true
	}
	for name, enabled := range i.Features {
		features[name] = enabled
	}

	enabled := make([]string, 0, len(features))
	for name, on := range features {
		if on {
			enabled = append(enabled, name)
		}
	}
	sort.Strings(enabled)
	i.Handler.Handle(FeaturesEvent{Features: enabled})

	return features
}

// Download runs the accumulated batch, bridging manager progress into
// events. The queue is cleared on success so later batches start empty.
// Loader installers reuse it for batches of their own.
func (i *Installer) Download(ctx context.Context, dl *downloadmgr.DownloadManager) error {
	if dl.Count() == 0 {
		return nil
	}

	i.Handler.Handle(DownloadStartEvent{
		ThreadsCount: dl.EffectiveThreads(),
		EntriesCount: dl.Count(),
		Size:         dl.Size(),
	})

	dl.OnProgress = func(p downloadmgr.Progress) {
		i.Handler.Handle(DownloadProgressEvent{
			Count:      p.Count,
			TotalCount: p.TotalCount,
			Size:       p.Size,
			TotalSize:  p.TotalSize,
			Speed:      p.Speed,
			Name:       p.Name,
		})
	}

	if err := dl.Start(ctx); err != nil {
		return err
	}

	dl.Clear()
	i.Handler.Handle(DownloadCompleteEvent{})
	return nil
}
