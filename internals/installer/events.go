package installer

// Event is a notification emitted while an installation progresses. The
// concrete type tells the phase, consumers type switch on it the same way
// bubbletea programs switch on messages. Loader packages building on this
// one emit their own event types through the same handler.
type Event interface{}

// Handler receives events as installation progresses. Handlers are called
// synchronously between steps and must return quickly.
type Handler func(event Event)

// Handle forwards the event to the handler, tolerating a nil handler so
// callers never have to check.
func (h Handler) Handle(event Event) {
	if h != nil {
		h(event)
	}
}

// FeaturesEvent reports the feature flags enabled for rule evaluation,
// sorted alphabetically.
type FeaturesEvent struct {
	Features []string
}

// HierarchyLoadingEvent reports that the version hierarchy is being resolved,
// starting from the requested root version.
type HierarchyLoadingEvent struct {
	RootVersion string
}

// HierarchyLoadedEvent reports the fully resolved hierarchy, root version
// first.
type HierarchyLoadedEvent struct {
	Versions []string
}

// VersionLoadingEvent reports that a version metadata file is being read.
type VersionLoadingEvent struct {
	Version string
}

// VersionInvalidatedEvent reports that an on-disk version metadata file
// failed validation and will be fetched again.
type VersionInvalidatedEvent struct {
	Version string
}

// VersionFetchingEvent reports that a version metadata file is being fetched.
type VersionFetchingEvent struct {
	Version string
}

// VersionLoadedEvent reports that a version metadata file is loaded, Fetched
// tells if it had to be fetched instead of being read from the local file.
type VersionLoadedEvent struct {
	Version string
	Fetched bool
}

// JarFoundEvent reports that the client jar of the root version is resolved.
type JarFoundEvent struct {
	Version string
}

// AssetsResolvingEvent reports that the assets index is being resolved.
type AssetsResolvingEvent struct {
	IndexVersion string
}

// AssetsResolvedEvent reports the assets index version and the number of
// objects it references.
type AssetsResolvedEvent struct {
	IndexVersion string
	Count        int
}

// LibrariesResolvingEvent reports that libraries are being resolved from the
// version hierarchy.
type LibrariesResolvingEvent struct{}

// LibrariesResolvedEvent reports the number of class path and native
// libraries retained after rule evaluation and filtering.
type LibrariesResolvedEvent struct {
	ClassLibsCount  int
	NativeLibsCount int
}

// LibraryExcludedEvent reports a library dropped by an exclusion filter.
type LibraryExcludedEvent struct {
	Spec string
}

// LibraryFilterUnusedEvent reports an exclusion filter that matched no
// library, usually a typo.
type LibraryFilterUnusedEvent struct {
	Filter string
}

// LoggerFoundEvent reports the log4j configuration in use.
type LoggerFoundEvent struct {
	Version string
}

// JvmLoadingEvent reports that a JVM suitable for the version is being
// resolved.
type JvmLoadingEvent struct {
	MajorVersion int
}

// Kinds of resolved JVM reported by JvmLoadedEvent.
const (
	JvmKindMojang = "mojang"
	JvmKindSystem = "system"
	JvmKindCustom = "custom"
)

// JvmLoadedEvent reports the JVM executable selected to run the game.
// Version may be empty when probing was not possible, in which case
// Compatible is also false for a custom JVM.
type JvmLoadedEvent struct {
	Path       string
	Version    string
	Kind       string
	Compatible bool
}

// Reasons of JvmWarningEvent.
const (
	JvmWarnVersionRejected     = "version_rejected"
	JvmWarnUnsupportedLibc     = "unsupported_libc"
	JvmWarnUnsupportedPlatform = "unsupported_platform"
	JvmWarnDistributionMissing = "distribution_missing"
)

// JvmWarningEvent reports a non fatal condition met while resolving a JVM,
// such as a system candidate with the wrong major version.
type JvmWarningEvent struct {
	Reason  string
	Path    string
	Version string
}

// DownloadStartEvent reports that a download batch is starting.
type DownloadStartEvent struct {
	ThreadsCount int
	EntriesCount int
	Size         int64
}

// DownloadProgressEvent reports batch progress at a bounded rate.
type DownloadProgressEvent struct {
	Count      int
	TotalCount int
	Size       int64
	TotalSize  int64
	Speed      float64
	Name       string
}

// DownloadCompleteEvent reports that a download batch fully succeeded.
type DownloadCompleteEvent struct{}

// FixAppliedEvent reports a legacy fix that modified the install, with a
// short value describing what was done.
type FixAppliedEvent struct {
	Fix   string
	Value string
}
