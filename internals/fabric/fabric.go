// Package fabric installs Fabric-family mod loaders (Fabric, Quilt,
// LegacyFabric, Babric) by synthesizing a version that inherits from the
// Mojang version it runs on, then delegating the actual installation.
package fabric

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/portablemc/portablemc/internals/installer"
	"github.com/portablemc/portablemc/internals/ownhttp"
)

// Installer resolves a loader version against a meta server of the
// Fabric family and installs it on top of the Mojang version it targets.
type Installer struct {
	// Mojang performs the underlying installation. Its Version,
	// FetchVersion and ValidateVersion fields are overwritten, everything
	// else (handler, session, fixes) applies as usual.
	Mojang *installer.Installer
	// Api is the meta server of the loader family.
	Api Api
	// GameVersion is the game version to install the loader for. Empty or
	// release picks the latest stable game version the meta server
	// supports, snapshot the latest one regardless of stability.
	GameVersion string
	// LoaderVersion is the loader version. Empty picks the first version
	// advertised for the game version, preferring stable ones.
	LoaderVersion string
	// Prefix overrides the first part of the synthesized version id,
	// defaults to the api name.
	Prefix string
}

// New returns a loader installer for the given meta api, built on the
// same defaults as installer.New.
func New(api Api, ctx installer.Context, gameVersion string, loaderVersion string) *Installer {
	return &Installer{
		Mojang:        installer.New(ctx, ""),
		Api:           api,
		GameVersion:   gameVersion,
		LoaderVersion: loaderVersion,
	}
}

// Install resolves the game and loader versions, installs the synthesized
// loader version when missing and runs the underlying installation. Both
// resolutions stay offline when the versions are given explicitly.
func (i *Installer) Install(ctx context.Context) (*installer.Game, error) {
	game := i.GameVersion
	loader := i.LoaderVersion

	i.Mojang.Handler.Handle(FabricResolvingEvent{
		Api:           i.Api.Name,
		GameVersion:   game,
		LoaderVersion: loader,
	})

	switch game {
	case "", "release":
		versions, err := i.Api.GameVersions(ctx, i.Mojang.Client)
		if err != nil {
			return nil, err
		}
		game = ""
		for _, version := range versions {
			if version.Stable {
				game = version.Version
				break
			}
		}
		if game == "" {
			return nil, &LatestNotFoundError{Api: i.Api.Name, Channel: "release"}
		}
	case "snapshot":
		versions, err := i.Api.GameVersions(ctx, i.Mojang.Client)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, &LatestNotFoundError{Api: i.Api.Name, Channel: "snapshot"}
		}
		game = versions[0].Version
	}

	if loader == "" {
		versions, err := i.Api.GameLoaderVersions(ctx, i.Mojang.Client, game)
		if err != nil {
			return nil, err
		}
		if len(versions) == 0 {
			return nil, &GameVersionNotFoundError{Api: i.Api.Name, GameVersion: game}
		}
		loader = versions[0].Version
		for _, version := range versions {
			if version.IsStable() {
				loader = version.Version
				break
			}
		}
	}

	i.Mojang.Handler.Handle(FabricResolvedEvent{
		Api:           i.Api.Name,
		GameVersion:   game,
		LoaderVersion: loader,
	})

	prefix := i.Prefix
	if prefix == "" {
		prefix = i.Api.Name
	}
	id := prefix + "-" + game + "-" + loader

	// The synthesized version has no checksum any manifest could vouch
	// for, a readable file is enough. Parents go through the defaults.
	i.Mojang.Version = id
	i.Mojang.ValidateVersion = func(ctx context.Context, version string, file string) bool {
		if version != id {
			return i.Mojang.DefaultValidateVersion(ctx, version, file)
		}
		info, err := os.Stat(file)
		return err == nil && info.Mode().IsRegular()
	}
	i.Mojang.FetchVersion = func(ctx context.Context, version string, dst string) error {
		if version != id {
			return i.Mojang.DefaultFetchVersion(ctx, version, dst)
		}
		return i.fetchProfile(ctx, version, game, loader, dst)
	}

	return i.Mojang.Install(ctx)
}

// fetchProfile writes the version metadata the meta server synthesizes,
// forcing its id to match the directory it lives in.
func (i *Installer) fetchProfile(ctx context.Context, id string, game string, loader string, dst string) error {
	data, err := i.Api.Profile(ctx, i.Mojang.Client, game, loader)

	var status *ownhttp.StatusError
	if errors.As(err, &status) && (status.Status == http.StatusNotFound || status.Status == http.StatusBadRequest) {
		// The profile endpoint rejects unknown game versions and unknown
		// loader versions the same way, the loader list tells them apart.
		versions, lerr := i.Api.GameLoaderVersions(ctx, i.Mojang.Client, game)
		if lerr == nil && len(versions) == 0 {
			return &GameVersionNotFoundError{Api: i.Api.Name, GameVersion: game}
		}
		return &LoaderVersionNotFoundError{Api: i.Api.Name, GameVersion: game, LoaderVersion: loader}
	}
	if err != nil {
		return err
	}

	var descriptor map[string]any
	if err := json.Unmarshal(data, &descriptor); err != nil {
		return err
	}
	descriptor["id"] = id

	out, err := json.Marshal(descriptor)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, out, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}
