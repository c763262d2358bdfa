package installer

import (
	"fmt"
	"strings"

	"github.com/portablemc/portablemc/internals/minecraft"
)

// VersionNotFoundError is returned when a version is neither installed nor
// known to any metadata source.
type VersionNotFoundError struct {
	Version string
}

func (e *VersionNotFoundError) Error() string {
	return fmt.Sprintf("version not found: %s", e.Version)
}

// HierarchyLoopError is returned when the inheritance chain of a version
// loops on itself or exceeds the supported depth.
type HierarchyLoopError struct {
	Versions []string
}

func (e *HierarchyLoopError) Error() string {
	return fmt.Sprintf("version hierarchy loops or is too deep: %s", strings.Join(e.Versions, " -> "))
}

// MalformedDescriptorError is returned when a version metadata file exists
// but cannot be interpreted.
type MalformedDescriptorError struct {
	Version string
	Reason  string
}

func (e *MalformedDescriptorError) Error() string {
	return fmt.Sprintf("malformed version metadata for %s: %s", e.Version, e.Reason)
}

// JarNotFoundError is returned when the version provides no client download
// and no jar file is already installed.
type JarNotFoundError struct {
	Version string
}

func (e *JarNotFoundError) Error() string {
	return fmt.Sprintf("client jar not found for version %s", e.Version)
}

// AssetsNotFoundError is returned when an assets index is neither installed
// nor downloadable.
type AssetsNotFoundError struct {
	IndexVersion string
}

func (e *AssetsNotFoundError) Error() string {
	return fmt.Sprintf("assets index not found: %s", e.IndexVersion)
}

// LibraryNotFoundError is returned when a library is neither installed nor
// carries any URL to download it from.
type LibraryNotFoundError struct {
	Spec minecraft.Specifier
}

func (e *LibraryNotFoundError) Error() string {
	return fmt.Sprintf("library not found: %s", e.Spec)
}

// MainClassNotFoundError is returned when the flattened metadata has no main
// class to start.
type MainClassNotFoundError struct {
	Version string
}

func (e *MainClassNotFoundError) Error() string {
	return fmt.Sprintf("no main class in version %s", e.Version)
}

// JvmNotFoundError is returned when no JVM matching the version requirement
// could be provided by the configured policy.
type JvmNotFoundError struct {
	MajorVersion int
}

func (e *JvmNotFoundError) Error() string {
	if e.MajorVersion == 0 {
		return "no suitable jvm found"
	}
	return fmt.Sprintf("no suitable jvm found for major version %d", e.MajorVersion)
}
