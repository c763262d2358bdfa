package forge

// ForgeResolvingEvent reports that the loader version is being resolved.
// The version may still be empty, an alias or a bare game version at this
// point.
type ForgeResolvingEvent struct {
	Api     string
	Version string
}

// ForgeResolvedEvent reports the full game-loader version the
// installation will use.
type ForgeResolvedEvent struct {
	Api     string
	Version string
}

// ForgeFetchInstallerEvent reports an attempt to download the installer
// under one version candidate. Legacy versions may probe several.
type ForgeFetchInstallerEvent struct {
	Version string
}

// ForgeProcessorEvent reports a processor about to run.
type ForgeProcessorEvent struct {
	Name string
	Task string
}

// ForgeInstalledEvent reports that the installer pipeline finished and
// the version metadata has been written.
type ForgeInstalledEvent struct {
	Version string
}
