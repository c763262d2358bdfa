package minecraft

// JvmManifestURL lists every JVM build Mojang distributes, for every
// platform and component.
const JvmManifestURL = "https://piston-meta.mojang.com/v1/products/java-runtime/2ec0cc96c44e5a76b9c8b7c39df7210883d12871/all.json"

// JvmManifest is the all.json index of official JVM builds, keyed by
// platform name (see Platform.JvmOS) and then by component name.
type JvmManifest map[string]map[string][]JvmBuild

// JvmBuild is one distributed JVM build.
type JvmBuild struct {
	// Manifest points to the files manifest of this build
	Manifest DownloadInfo    `json:"manifest"`
	Version  JvmBuildVersion `json:"version"`
}

// JvmBuildVersion names a JVM build.
type JvmBuildVersion struct {
	Name     string `json:"name"`
	Released string `json:"released,omitempty"`
}

// JvmFiles is the files manifest of one JVM build. Paths are relative
// slash separated and may describe files, directories or links.
type JvmFiles struct {
	Files map[string]JvmFile `json:"files"`
}

// JvmFile is one entry of a JVM files manifest.
type JvmFile struct {
	// Type is file, directory or link
	Type       string `json:"type"`
	Executable bool   `json:"executable,omitempty"`
	// Target is the link target for type link
	Target string `json:"target,omitempty"`
	// Downloads holds the raw and sometimes lzma variants for type file
	Downloads map[string]DownloadInfo `json:"downloads,omitempty"`
}

// Raw returns the plain download of a file entry.
func (f JvmFile) Raw() (DownloadInfo, bool) {
	dl, ok := f.Downloads["raw"]
	return dl, ok
}

// JvmOS returns the platform name used by the JVM manifest, or an empty
// string when Mojang does not distribute JVMs for this platform.
func (p Platform) JvmOS() string {
	switch p.OS {
	case "osx":
		switch p.Arch {
		case "x86_64":
			return "mac-os"
		case "arm64":
			return "mac-os-arm64"
		}
	case "linux":
		switch p.Arch {
		case "x86":
			return "linux-i386"
		case "x86_64":
			return "linux"
		}
	case "windows":
		switch p.Arch {
		case "x86":
			return "windows-x86"
		case "x86_64":
			return "windows-x64"
		case "arm64":
			return "windows-arm64"
		}
	}
	return ""
}
