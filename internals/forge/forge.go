// Package forge installs the Forge and NeoForge mod loaders by running
// the processor pipeline their installer describes, then delegating the
// rest to the Mojang installer.
package forge

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/portablemc/portablemc/internals/installer"
)

// Installer resolves a loader version against a repository of the Forge
// family and installs it on top of the game version it targets.
type Installer struct {
	// Mojang performs the underlying installation. Its Version,
	// FetchVersion and ValidateVersion fields are overwritten, everything
	// else (handler, session, fixes) applies as usual.
	Mojang *installer.Installer
	// Api is the repository distributing the loader.
	Api Api
	// Version is what to install. Either a full "<game>-<loader>"
	// version, a bare game version picking its promoted or latest loader
	// build, or empty, release or snapshot to resolve the game version
	// through the Mojang manifest first.
	Version string
	// Prefix overrides the first part of the synthesized version id,
	// defaults to the api name.
	Prefix string
}

// New returns a loader installer for the given repository, built on the
// same defaults as installer.New.
func New(api Api, ctx installer.Context, version string) *Installer {
	return &Installer{
		Mojang:  installer.New(ctx, ""),
		Api:     api,
		Version: version,
	}
}

// Install resolves the full loader version, installs it when missing and
// runs the underlying installation. Explicitly given full versions are
// resolved offline.
func (i *Installer) Install(ctx context.Context) (*installer.Game, error) {
	i.Mojang.Handler.Handle(ForgeResolvingEvent{Api: i.Api.Name, Version: i.Version})

	version, err := i.resolve(ctx)
	if err != nil {
		return nil, err
	}

	i.Mojang.Handler.Handle(ForgeResolvedEvent{Api: i.Api.Name, Version: version})

	prefix := i.Prefix
	if prefix == "" {
		prefix = i.Api.Name
	}
	id := prefix + "-" + version

	// The synthesized version cannot be validated against any manifest, a
	// readable file is enough. Parents go through the defaults.
	i.Mojang.Version = id
	i.Mojang.ValidateVersion = func(ctx context.Context, version string, file string) bool {
		if version != id {
			return i.Mojang.DefaultValidateVersion(ctx, version, file)
		}
		info, err := os.Stat(file)
		return err == nil && info.Mode().IsRegular()
	}
	i.Mojang.FetchVersion = func(ctx context.Context, v string, dst string) error {
		if v != id {
			return i.Mojang.DefaultFetchVersion(ctx, v, dst)
		}
		return i.fetchRoot(ctx, id, version, dst)
	}

	return i.Mojang.Install(ctx)
}

// resolve turns the configured version into a full "<game>-<loader>"
// version, asking the repository when the loader part is not given.
func (i *Installer) resolve(ctx context.Context) (string, error) {
	version := i.Version
	if version == "" {
		version = "release"
	}

	// The release and snapshot aliases name a game version first.
	if i.Mojang.Manifest != nil {
		resolved, _, err := i.Mojang.Manifest.FilterLatest(ctx, version)
		if err != nil {
			return "", err
		}
		version = resolved
	}

	if i.Api.LatestURL == "" {
		return i.resolvePromoted(ctx, version)
	}

	// NeoForge has no promotions, its repository answers directly.
	if strings.Contains(version, "-") {
		return version, nil
	}
	return i.Api.Latest(ctx, i.Mojang.Client, version)
}

// resolvePromoted resolves a bare game version or a "-recommended" or
// "-latest" alias through the promotions. A bare game version prefers the
// recommended build and falls back to the latest one, and when neither is
// promoted the repository listing decides.
func (i *Installer) resolvePromoted(ctx context.Context, version string) (string, error) {
	alias := strings.HasSuffix(version, "-recommended") || strings.HasSuffix(version, "-latest")
	if !alias && strings.Contains(version, "-") {
		return version, nil
	}

	promos, err := i.Api.Promotions(ctx, i.Mojang.Client)
	if err != nil {
		return "", err
	}

	if alias {
		game := version[:strings.LastIndex(version, "-")]
		loader := promos[version]
		if loader == "" {
			return "", &LatestNotFoundError{Api: i.Api.Name, GameVersion: game}
		}
		return game + "-" + loader, nil
	}

	game := version
	loader := promos[game+"-recommended"]
	if loader == "" {
		loader = promos[game+"-latest"]
	}
	if loader == "" {
		// Not promoted yet, the repository listing decides.
		return i.Api.LatestFromMetadata(ctx, i.Mojang.Client, game)
	}
	return game + "-" + loader, nil
}

// fetchRoot installs the loader: download the installer, run its profile
// and write the version metadata at dst, only when everything succeeded.
func (i *Installer) fetchRoot(ctx context.Context, id string, version string, dst string) error {
	game := version
	if dash := strings.IndexByte(version, '-'); dash != -1 {
		game = version[:dash]
	}

	// Scratch space for the installer jar and whatever it extracts.
	tmpDir := i.Mojang.Context.GenBinDir()
	if err := os.MkdirAll(tmpDir, os.ModePerm); err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	jarPath := filepath.Join(tmpDir, "installer.jar")
	err := i.Api.FetchInstaller(ctx, i.Mojang.Client, version, game, jarPath, func(candidate string) {
		i.Mojang.Handler.Handle(ForgeFetchInstallerEvent{Version: candidate})
	})
	if err != nil {
		return err
	}

	jar := jarFile{jarPath}
	profile, err := readProfile(jar, version)
	if err != nil {
		return err
	}

	if profile.Json != "" {
		err = i.installModern(ctx, jar, profile, id, game, tmpDir, dst)
	} else {
		err = i.installLegacy(jar, profile, id, dst)
	}
	if err != nil {
		return err
	}

	i.Mojang.Handler.Handle(ForgeInstalledEvent{Version: id})
	return nil
}
