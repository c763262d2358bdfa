package forge

import "fmt"

// LatestNotFoundError is returned when no loader build can be found for a
// game version, neither promoted nor listed by the repository.
type LatestNotFoundError struct {
	Api         string
	GameVersion string
}

func (e *LatestNotFoundError) Error() string {
	return fmt.Sprintf("%s: no loader version found for game version %s", e.Api, e.GameVersion)
}

// InstallerNotFoundError is returned when the repository distributes no
// installer for a version, legacy locations included.
type InstallerNotFoundError struct {
	Version string
}

func (e *InstallerNotFoundError) Error() string {
	return fmt.Sprintf("installer not found for version %s", e.Version)
}

// MavenMetadataMalformedError is returned when the repository listing
// cannot be interpreted.
type MavenMetadataMalformedError struct {
	URL string
}

func (e *MavenMetadataMalformedError) Error() string {
	return fmt.Sprintf("malformed maven metadata: %s", e.URL)
}

// InstallProfileNotFoundError is returned when the installer carries no
// install profile.
type InstallProfileNotFoundError struct {
	Version string
}

func (e *InstallProfileNotFoundError) Error() string {
	return fmt.Sprintf("install profile not found in installer of version %s", e.Version)
}

// InstallProfileIncoherentError is returned when the install profile
// exists but misses or contradicts what the installation needs.
type InstallProfileIncoherentError struct {
	Reason string
}

func (e *InstallProfileIncoherentError) Error() string {
	return fmt.Sprintf("incoherent install profile: %s", e.Reason)
}

// InstallerFileNotFoundError is returned when a file the install profile
// points at is missing from the installer archive.
type InstallerFileNotFoundError struct {
	Entry string
}

func (e *InstallerFileNotFoundError) Error() string {
	return fmt.Sprintf("file not found in installer: %s", e.Entry)
}

// ProcessorNotFoundError is returned when a processor jar, its main class
// or one of its classpath entries cannot be located.
type ProcessorNotFoundError struct {
	Name string
}

func (e *ProcessorNotFoundError) Error() string {
	return fmt.Sprintf("processor not found: %s", e.Name)
}

// ProcessorFailedError is returned when a processor exits with a non zero
// status. Its output is kept for diagnostics.
type ProcessorFailedError struct {
	Name   string
	Status int
	Stdout string
	Stderr string
}

func (e *ProcessorFailedError) Error() string {
	return fmt.Sprintf("processor %s failed with status %d", e.Name, e.Status)
}

// ProcessorCorruptedError is returned when a file a processor declares as
// output does not match the expected checksum afterwards.
type ProcessorCorruptedError struct {
	Name         string
	File         string
	ExpectedSha1 string
}

func (e *ProcessorCorruptedError) Error() string {
	return fmt.Sprintf("processor %s produced a corrupted file: %s", e.Name, e.File)
}
