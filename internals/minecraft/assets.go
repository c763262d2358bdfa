package minecraft

// ResourcesURL is the Mojang CDN all asset objects are fetched from.
const ResourcesURL = "https://resources.download.minecraft.net/"

// AssetIndex maps logical asset paths like `minecraft/sounds/ambient/cave/cave1.ogg`
// to content addressed objects.
type AssetIndex struct {
	Objects map[string]AssetObject `json:"objects"`
	// Virtual indexes additionally mirror every object under
	// assets/virtual/<id>/ with its logical path (1.6 era)
	Virtual bool `json:"virtual,omitempty"`
	// MapToResources indexes mirror objects under the resources/
	// directory inside the game dir instead (pre 1.6)
	MapToResources bool `json:"map_to_resources,omitempty"`
}

// AssetObject is one minecraft asset
type AssetObject struct {
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// UnixPath returns the object path inside assets/objects,
// example: fe/fe32f3b8…
func (a *AssetObject) UnixPath() string {
	return a.Hash[:2] + "/" + a.Hash
}

// DownloadURL returns the download url for this asset
func (a *AssetObject) DownloadURL() string {
	return ResourcesURL + a.UnixPath()
}
