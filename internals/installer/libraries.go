package installer

import (
	"fmt"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
)

// libraries carries the resolved library sets and the fixes applied while
// resolving them.
type libraries struct {
	// classPath holds the jar paths in resolution order, without the
	// client jar.
	classPath []string
	// natives holds the archives to extract into the bin directory
	natives []nativeLib
	// fixes applied during resolution, by fix name
	fixes map[string]string
}

// nativeLib is a native archive with its extraction exclusions.
type nativeLib struct {
	path    string
	exclude []string
}

// resolvedLibrary is a library that passed rule evaluation, with whatever
// download source it carries.
type resolvedLibrary struct {
	spec    minecraft.Specifier
	native  bool
	exclude []string
	// info is the explicit download entry, url the one derived from a
	// repository. Both may be empty for locally provided libraries.
	info *minecraft.DownloadInfo
	url  string
}

// resolveLibraries evaluates the flattened library list against the current
// platform, applies fixes and exclusion filters, and schedules every
// missing artifact.
func (i *Installer) resolveLibraries(flat *minecraft.VersionDescriptor, features map[string]bool, dl *downloadmgr.DownloadManager) (*libraries, error) {
	i.Handler.Handle(LibrariesResolvingEvent{})

	plat := minecraft.CurrentPlatform()
	fixes := i.fixes()

	libs := make([]resolvedLibrary, 0, len(flat.Libraries))
	for _, lib := range flat.Libraries {
		if !lib.Rules.Allows(plat, features, nil) {
			continue
		}

		resolved := resolvedLibrary{spec: lib.Name, native: lib.Native()}

		if resolved.native {
			classifier, ok := lib.NativeClassifier(plat)
			if !ok {
				// No native variant for this platform.
				continue
			}
			resolved.spec.Classifier = classifier
			if lib.Extract != nil {
				resolved.exclude = lib.Extract.Exclude
			}
			if lib.Downloads != nil {
				resolved.info = lib.Downloads.Classifiers[classifier]
			}
		} else if lib.Downloads != nil {
			resolved.info = lib.Downloads.Artifact
		}

		if resolved.info != nil && resolved.info.URL == "" {
			resolved.info = nil
		}
		if resolved.info == nil && lib.URL != "" {
			repo := lib.URL
			if !strings.HasSuffix(repo, "/") {
				repo += "/"
			}
			resolved.url = repo + resolved.spec.Path()
		}

		libs = append(libs, resolved)
	}

	result := &libraries{fixes: map[string]string{}}

	if fixes.AuthLib {
		applyAuthLibFix(libs, result.fixes)
	}
	if fixes.Lwjgl != "" {
		var err error
		libs, err = applyLwjglFix(libs, fixes.Lwjgl, plat, result.fixes)
		if err != nil {
			return nil, err
		}
	}
	libs = i.applyExcludeFilters(libs)

	for fix, value := range result.fixes {
		i.Handler.Handle(FixAppliedEvent{Fix: fix, Value: value})
	}

	for _, lib := range libs {
		file := i.Context.LibraryFile(lib.spec)

		switch {
		case lib.info != nil:
			dl.AddMissing(downloadmgr.Entry{
				URL:  lib.info.URL,
				Dst:  file,
				Size: lib.info.Size,
				Sha1: lib.info.Sha1,
				Name: lib.spec.String(),
			}, i.StrictChecks)
		case lib.url != "":
			dl.AddMissing(downloadmgr.Entry{
				URL:  lib.url,
				Dst:  file,
				Name: lib.spec.String(),
			}, i.StrictChecks)
		default:
			// No download source, the library must already be installed.
			if info, err := os.Stat(file); err != nil || !info.Mode().IsRegular() {
				return nil, &LibraryNotFoundError{Spec: lib.spec}
			}
		}

		if lib.native {
			result.natives = append(result.natives, nativeLib{path: file, exclude: lib.exclude})
		} else {
			result.classPath = append(result.classPath, file)
		}
	}

	i.Handler.Handle(LibrariesResolvedEvent{
		ClassLibsCount:  len(result.classPath),
		NativeLibsCount: len(result.natives),
	})
	return result, nil
}

// applyExcludeFilters drops libraries matching any configured filter and
// reports filters that matched nothing.
func (i *Installer) applyExcludeFilters(libs []resolvedLibrary) []resolvedLibrary {
	if len(i.ExcludeLibs) == 0 {
		return libs
	}

	used := make([]bool, len(i.ExcludeLibs))
	kept := libs[:0]
	for _, lib := range libs {
		excluded := false
		for at, filter := range i.ExcludeLibs {
			if filter.Matches(lib.spec) {
				used[at] = true
				excluded = true
				break
			}
		}
		if excluded {
			i.Handler.Handle(LibraryExcludedEvent{Spec: lib.spec.String()})
			continue
		}
		kept = append(kept, lib)
	}

	for at, filter := range i.ExcludeLibs {
		if !used[at] {
			i.Handler.Handle(LibraryFilterUnusedEvent{Filter: filter.String()})
		}
	}
	return kept
}

// Versions 1.16.4 and 1.16.5 use authlib 2.1.28 which disables the
// multiplayer button and in-game chat, switching to 2.2.30 fixes it.
func applyAuthLibFix(libs []resolvedLibrary, applied map[string]string) {
	for at := range libs {
		lib := &libs[at]
		if lib.spec.Group != "com.mojang" || lib.spec.Artifact != "authlib" ||
			lib.spec.Version != "2.1.28" || lib.spec.Classifier != "" {
			continue
		}
		lib.spec.Version = "2.2.30"
		if lib.info != nil {
			lib.info = &minecraft.DownloadInfo{
				URL:  minecraft.LibrariesURL + "com/mojang/authlib/2.2.30/authlib-2.2.30.jar",
				Sha1: "d6e677199aa6b19c4a9a2e725034149eb3e746f8",
				Size: 87497,
			}
		}
		applied[FixAuthLib] = "2.2.30"
	}
}

var lwjglFixVersions = mustConstraint("3.2.3 || 3.3.x")

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// applyLwjglFix rewrites every LWJGL library to the given version with the
// natives suited to the current platform. Useful on architectures Mojang
// ships no natives for, like linux arm.
func applyLwjglFix(libs []resolvedLibrary, version string, plat minecraft.Platform, applied map[string]string) ([]resolvedLibrary, error) {
	parsed, err := semver.NewVersion(version)
	if err != nil || !lwjglFixVersions.Check(parsed) {
		return nil, &LwjglFixNotFoundError{Version: version}
	}

	nativesMap := map[string]map[string]string{
		"windows": {"x86_64": "natives-windows", "x86": "natives-windows-x86"},
		"linux":   {"x86_64": "natives-linux", "x86": "natives-linux", "arm64": "natives-linux-arm64", "arm32": "natives-linux-arm32"},
		"osx":     {"x86_64": "natives-macos"},
	}
	if version != "3.2.3" {
		nativesMap["windows"]["arm64"] = "natives-windows-arm64"
		nativesMap["osx"]["arm64"] = "natives-macos-arm64"
	}

	natives := nativesMap[plat.OS][plat.Arch]
	if natives == "" {
		return nil, &LwjglFixNotFoundError{Version: version}
	}

	kept := libs[:0]
	for _, lib := range libs {
		if lib.spec.Group != "org.lwjgl" {
			kept = append(kept, lib)
		}
	}

	for _, artifact := range []string{"lwjgl", "lwjgl-jemalloc", "lwjgl-openal", "lwjgl-opengl", "lwjgl-glfw", "lwjgl-stb", "lwjgl-tinyfd"} {
		for _, classifier := range []string{"", natives} {
			spec := minecraft.NewSpecifier("org.lwjgl", artifact, version)
			spec.Classifier = classifier
			kept = append(kept, resolvedLibrary{
				spec: spec,
				url:  "https://repo1.maven.org/maven2/" + spec.Path(),
			})
		}
	}

	applied[FixLwjgl] = version
	return kept, nil
}

// LwjglFixNotFoundError is returned when the LWJGL rewrite cannot serve the
// requested version on the current platform.
type LwjglFixNotFoundError struct {
	Version string
}

func (e *LwjglFixNotFoundError) Error() string {
	return fmt.Sprintf("no lwjgl fix for version %s", e.Version)
}

// LibraryFilter excludes libraries by coordinate. The zero value matches
// nothing, see ParseLibraryFilter for the accepted form.
type LibraryFilter struct {
	Group    string
	Artifact string
	// Version must match exactly when set
	Version string
	// Classifier is a prefix match when set
	Classifier string
}

// ParseLibraryFilter parses a group:artifact[:[version][:classifier]]
// filter. Version and classifier are optional, an empty version with a
// classifier is written like "org.lwjgl:lwjgl-glfw::natives".
func ParseLibraryFilter(s string) (LibraryFilter, error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 4 || parts[0] == "" || parts[1] == "" {
		return LibraryFilter{}, fmt.Errorf("invalid library filter: %q", s)
	}

	filter := LibraryFilter{Group: parts[0], Artifact: parts[1]}
	if len(parts) >= 3 {
		filter.Version = parts[2]
	}
	if len(parts) == 4 {
		filter.Classifier = parts[3]
	}
	return filter, nil
}

// Matches reports whether the given specifier is excluded by this filter.
func (f LibraryFilter) Matches(spec minecraft.Specifier) bool {
	return f.Group == spec.Group &&
		f.Artifact == spec.Artifact &&
		(f.Version == "" || f.Version == spec.Version) &&
		(f.Classifier == "" || strings.HasPrefix(spec.Classifier, f.Classifier))
}

func (f LibraryFilter) String() string {
	s := f.Group + ":" + f.Artifact
	if f.Version != "" || f.Classifier != "" {
		s += ":" + f.Version
	}
	if f.Classifier != "" {
		s += ":" + f.Classifier
	}
	return s
}
