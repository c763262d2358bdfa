package minecraft

// VersionDescriptor is the version.json metadata record of one version.
// Descriptors form an inheritance chain through InheritsFrom, which
// loaders like Fabric and Forge use to extend a vanilla version.
type VersionDescriptor struct {
	ID           string `json:"id"`
	InheritsFrom string `json:"inheritsFrom,omitempty"`
	// Type is release, snapshot, old_alpha or old_beta
	Type       string          `json:"type,omitempty"`
	MainClass  string          `json:"mainClass,omitempty"`
	Assets     string          `json:"assets,omitempty"`
	AssetIndex *AssetIndexRef  `json:"assetIndex,omitempty"`
	Downloads  ClientDownloads `json:"downloads,omitempty"`
	// JavaVersion tells which official JVM distribution the version wants
	JavaVersion *JavaVersionRef `json:"javaVersion,omitempty"`
	Logging     *Logging        `json:"logging,omitempty"`
	Libraries   []Library       `json:"libraries,omitempty"`
	// Arguments is the modern form, MinecraftArguments the legacy single
	// string used before 1.13. A descriptor defines one or the other.
	Arguments          Arguments `json:"arguments,omitempty"`
	MinecraftArguments string    `json:"minecraftArguments,omitempty"`
}

// AssetIndexRef points to the asset index of a version.
type AssetIndexRef struct {
	ID        string `json:"id"`
	Sha1      string `json:"sha1,omitempty"`
	Size      int64  `json:"size,omitempty"`
	TotalSize int64  `json:"totalSize,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ClientDownloads lists the main JAR downloads of a version.
type ClientDownloads struct {
	Client *DownloadInfo `json:"client,omitempty"`
	Server *DownloadInfo `json:"server,omitempty"`
}

// JavaVersionRef names the JVM component a version runs on.
type JavaVersionRef struct {
	Component    string `json:"component,omitempty"`
	MajorVersion int    `json:"majorVersion,omitempty"`
}

// Logging configures the log4j output of the client.
type Logging struct {
	Client *LoggingClient `json:"client,omitempty"`
}

// LoggingClient is the client side logging configuration.
type LoggingClient struct {
	// Argument is a JVM argument template with a ${path} placeholder
	Argument string            `json:"argument"`
	File     LoggingConfigFile `json:"file"`
	Type     string            `json:"type,omitempty"`
}

// LoggingConfigFile points to the downloadable log4j configuration.
type LoggingConfigFile struct {
	ID   string `json:"id"`
	Sha1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url"`
}

// Hierarchy is a version inheritance chain, the requested version first
// and its deepest ancestor last.
type Hierarchy []*VersionDescriptor

// Root returns the requested version of the chain.
func (h Hierarchy) Root() *VersionDescriptor {
	return h[0]
}

// Ancestor returns the deepest parent of the chain, the vanilla version
// a loader version was built on. Legacy fixes key off its id.
func (h Hierarchy) Ancestor() *VersionDescriptor {
	return h[len(h)-1]
}

// Flatten merges the chain into a single effective descriptor. Scalar
// fields are taken from the youngest version defining them, argument and
// library lists are concatenated ancestor first. Libraries sharing a
// coordinate key keep their first position but the youngest version wins.
// The result is a fresh value, no lists are shared with the chain.
func (h Hierarchy) Flatten() *VersionDescriptor {
	flat := &VersionDescriptor{}

	libs := make([]Library, 0)
	for i := len(h) - 1; i >= 0; i-- {
		version := h[i]

		if version.ID != "" {
			flat.ID = version.ID
		}
		if version.Type != "" {
			flat.Type = version.Type
		}
		if version.MainClass != "" {
			flat.MainClass = version.MainClass
		}
		if version.Assets != "" {
			flat.Assets = version.Assets
		}
		if version.AssetIndex != nil {
			flat.AssetIndex = version.AssetIndex
		}
		if version.Downloads.Client != nil {
			flat.Downloads.Client = version.Downloads.Client
		}
		if version.Downloads.Server != nil {
			flat.Downloads.Server = version.Downloads.Server
		}
		if version.JavaVersion != nil {
			flat.JavaVersion = version.JavaVersion
		}
		if version.Logging != nil {
			flat.Logging = version.Logging
		}
		if version.MinecraftArguments != "" {
			flat.MinecraftArguments = version.MinecraftArguments
		}

		flat.Arguments.Game = append(flat.Arguments.Game, version.Arguments.Game...)
		flat.Arguments.JVM = append(flat.Arguments.JVM, version.Arguments.JVM...)
		libs = append(libs, version.Libraries...)
	}

	flat.Libraries = dedupLibraries(libs)
	return flat
}

type libraryKey struct {
	key    string
	native bool
}

// dedupLibraries collapses libraries with the same coordinate key, the
// last version encountered replacing earlier ones in place. Native
// archives never collapse into plain artifacts of the same library, both
// are needed.
func dedupLibraries(libs []Library) []Library {
	out := make([]Library, 0, len(libs))
	seen := make(map[libraryKey]int, len(libs))

	for _, lib := range libs {
		key := libraryKey{lib.Name.Key(), lib.Native()}
		if at, ok := seen[key]; ok {
			out[at] = lib
			continue
		}
		seen[key] = len(out)
		out = append(out, lib)
	}
	return out
}
