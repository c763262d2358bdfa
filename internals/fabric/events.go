package fabric

// FabricResolvingEvent reports that the game and loader versions are
// being resolved against the meta server. Versions may still be empty or
// aliases at this point.
type FabricResolvingEvent struct {
	Api           string
	GameVersion   string
	LoaderVersion string
}

// FabricResolvedEvent reports the concrete versions the installation
// will use.
type FabricResolvedEvent struct {
	Api           string
	GameVersion   string
	LoaderVersion string
}
