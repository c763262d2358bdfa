package minecraft

import "strings"

// LibrariesURL is the Mojang maven repository.
const LibrariesURL = "https://libraries.minecraft.net/"

// Library is one entry of the libraries list in version metadata.
type Library struct {
	Name      Specifier         `json:"name"`
	Downloads *LibraryDownloads `json:"downloads,omitempty"`
	// URL is a maven repository to derive the download from,
	// used by Fabric-like metadata instead of explicit downloads.
	URL     string            `json:"url,omitempty"`
	Rules   Rules             `json:"rules,omitempty"`
	Natives map[string]string `json:"natives,omitempty"`
	Extract *LibraryExtract   `json:"extract,omitempty"`
}

// LibraryDownloads points to the artifacts of a library.
type LibraryDownloads struct {
	Artifact *DownloadInfo `json:"artifact,omitempty"`
	// Classifiers hold additional artifacts, keyed by classifier.
	// Only used by old metadata together with the natives mapping.
	Classifiers map[string]*DownloadInfo `json:"classifiers,omitempty"`
}

// LibraryExtract configures native extraction.
type LibraryExtract struct {
	Exclude []string `json:"exclude,omitempty"`
}

// DownloadInfo describes a single downloadable file. It is the shape used
// for library artifacts, client JARs, asset indexes and logging configs.
type DownloadInfo struct {
	// Path relative to the libraries directory, may be empty
	Path string `json:"path,omitempty"`
	Sha1 string `json:"sha1,omitempty"`
	Size int64  `json:"size,omitempty"`
	URL  string `json:"url"`
}

// Native reports whether this library is a native archive to extract
// into the bin directory instead of a classpath entry.
func (l *Library) Native() bool {
	return len(l.Natives) != 0
}

// NativeClassifier returns the classifier for the platform, with the
// `${arch}` placeholder substituted. Returns false when the library has
// no native for this platform.
func (l *Library) NativeClassifier(plat Platform) (string, bool) {
	classifier, ok := l.Natives[plat.OS]
	if !ok {
		return "", false
	}
	return strings.ReplaceAll(classifier, "${arch}", plat.ArchBits()), true
}

// ArchBits returns the pointer size of the arch as a string, used for
// the `${arch}` placeholder in native classifiers.
func (p Platform) ArchBits() string {
	switch p.Arch {
	case "x86", "arm32":
		return "32"
	default:
		return "64"
	}
}
