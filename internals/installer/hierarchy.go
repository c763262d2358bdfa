package installer

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
	"github.com/portablemc/portablemc/internals/mojang"
)

// Keeps a broken inheritsFrom chain from loading forever.
const maxHierarchyDepth = 10

// resolveHierarchy loads the requested version and all of its parents,
// fetching the ones that are missing or invalid.
func (i *Installer) resolveHierarchy(ctx context.Context) (minecraft.Hierarchy, error) {
	version := i.Version
	if version == "" {
		version = "release"
	}
	if i.Manifest != nil {
		resolved, _, err := i.Manifest.FilterLatest(ctx, version)
		if err != nil {
			return nil, err
		}
		version = resolved
	}

	i.Handler.Handle(HierarchyLoadingEvent{RootVersion: version})

	var hierarchy minecraft.Hierarchy
	seen := make(map[string]bool)

	for version != "" {
		if len(hierarchy) >= maxHierarchyDepth || seen[version] {
			return nil, &HierarchyLoopError{Versions: append(hierarchyIDs(hierarchy), version)}
		}
		seen[version] = true

		descriptor, err := i.loadVersion(ctx, version)
		if err != nil {
			return nil, err
		}

		hierarchy = append(hierarchy, descriptor)
		version = descriptor.InheritsFrom
	}

	i.Handler.Handle(HierarchyLoadedEvent{Versions: hierarchyIDs(hierarchy)})
	return hierarchy, nil
}

// loadVersion reads one version metadata file, fetching it when missing,
// stale or unreadable.
func (i *Installer) loadVersion(ctx context.Context, version string) (*minecraft.VersionDescriptor, error) {
	file := i.Context.VersionFile(version)

	i.Handler.Handle(VersionLoadingEvent{Version: version})

	fetched := false
	if !i.validateVersion(ctx, version, file) {
		i.Handler.Handle(VersionFetchingEvent{Version: version})
		if err := i.fetchVersion(ctx, version, file); err != nil {
			return nil, err
		}
		fetched = true
	}

	descriptor, err := readDescriptor(version, file)
	if err != nil && !fetched {
		// The installed file cannot be interpreted, replace it.
		i.Handler.Handle(VersionInvalidatedEvent{Version: version})
		i.Handler.Handle(VersionFetchingEvent{Version: version})
		if ferr := i.fetchVersion(ctx, version, file); ferr != nil {
			return nil, ferr
		}
		fetched = true
		descriptor, err = readDescriptor(version, file)
	}
	if err != nil {
		return nil, err
	}

	// The directory name is authoritative for the version id.
	descriptor.ID = version

	i.Handler.Handle(VersionLoadedEvent{Version: version, Fetched: fetched})
	return descriptor, nil
}

func (i *Installer) validateVersion(ctx context.Context, version string, file string) bool {
	if i.ValidateVersion != nil {
		return i.ValidateVersion(ctx, version, file)
	}
	return i.DefaultValidateVersion(ctx, version, file)
}

func (i *Installer) fetchVersion(ctx context.Context, version string, dst string) error {
	if i.FetchVersion != nil {
		return i.FetchVersion(ctx, version, dst)
	}
	return i.DefaultFetchVersion(ctx, version, dst)
}

// DefaultValidateVersion tells whether the installed metadata file can be
// used as is. Without a manifest, or offline, any readable file is accepted.
// ValidateVersion hooks call this for the versions they do not handle.
func (i *Installer) DefaultValidateVersion(ctx context.Context, version string, file string) bool {
	info, err := os.Stat(file)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	if i.Manifest == nil {
		return true
	}

	manifestVersion, err := i.Manifest.Version(ctx, version)
	if err != nil {
		// Unknown to the manifest or offline, trust the installed file.
		return true
	}
	if manifestVersion.Sha1 == "" {
		return true
	}
	return downloadmgr.CheckSha1(file, manifestVersion.Sha1) == nil
}

// DefaultFetchVersion writes the metadata file of a version from the
// manifest, erroring with VersionNotFoundError when no source knows it.
// FetchVersion hooks call this for the versions they do not handle.
func (i *Installer) DefaultFetchVersion(ctx context.Context, version string, dst string) error {
	if i.Manifest == nil {
		return &VersionNotFoundError{Version: version}
	}

	manifestVersion, err := i.Manifest.Version(ctx, version)
	if errors.Is(err, mojang.ErrorNotFound) {
		return &VersionNotFoundError{Version: version}
	}
	if err != nil {
		return err
	}
	return fetchFile(ctx, i.client(), manifestVersion.URL, dst)
}

func readDescriptor(version string, file string) (*minecraft.VersionDescriptor, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	var descriptor minecraft.VersionDescriptor
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return nil, &MalformedDescriptorError{Version: version, Reason: err.Error()}
	}
	return &descriptor, nil
}

func hierarchyIDs(hierarchy minecraft.Hierarchy) []string {
	out := make([]string, 0, len(hierarchy))
	for _, version := range hierarchy {
		out = append(out, version.ID)
	}
	return out
}
