package installer

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/google/uuid"
	homedir "github.com/mitchellh/go-homedir"

	"github.com/portablemc/portablemc/internals/minecraft"
)

// Context describes the directory layout used to install and run the game.
type Context struct {
	// MainDir is the directory containing everything required to run
	// minecraft. This includes the versions, libraries, assets, jvm and
	// bin folders.
	MainDir string
	// WorkDir is the directory the game process runs in. It holds saves,
	// resource packs, logs and other user files. Defaults to MainDir.
	WorkDir string
}

// NewContext returns a context rooted at the given main directory. An empty
// workDir defaults to mainDir.
func NewContext(mainDir, workDir string) Context {
	if workDir == "" {
		workDir = mainDir
	}
	return Context{MainDir: mainDir, WorkDir: workDir}
}

// DefaultMainDir returns the standard minecraft directory of the current
// platform.
func DefaultMainDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		appdata := os.Getenv("APPDATA")
		if appdata == "" {
			home, err := homedir.Dir()
			if err != nil {
				return "", err
			}
			appdata = filepath.Join(home, "AppData", "Roaming")
		}
		return filepath.Join(appdata, ".minecraft"), nil
	case "darwin":
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "Application Support", "minecraft"), nil
	default:
		home, err := homedir.Dir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".minecraft"), nil
	}
}

// VersionsDir returns the path to the versions directory.
func (c Context) VersionsDir() string {
	return filepath.Join(c.MainDir, "versions")
}

// VersionDir returns the directory holding the metadata and jar of a version.
func (c Context) VersionDir(version string) string {
	return filepath.Join(c.MainDir, "versions", version)
}

// VersionFile returns the path of the metadata file of a version.
func (c Context) VersionFile(version string) string {
	return filepath.Join(c.MainDir, "versions", version, version+".json")
}

// VersionJar returns the path of the client jar of a version.
func (c Context) VersionJar(version string) string {
	return filepath.Join(c.MainDir, "versions", version, version+".jar")
}

// ListVersions returns the installed version ids, the directories under
// versions/ that hold a metadata file. The list is sorted by name.
func (c Context) ListVersions() []string {
	entries, err := os.ReadDir(c.VersionsDir())
	if err != nil {
		return nil
	}
	var versions []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if _, err := os.Stat(c.VersionFile(name)); err == nil {
			versions = append(versions, name)
		}
	}
	return versions
}

// AssetsDir returns the path to the assets directory.
func (c Context) AssetsDir() string {
	return filepath.Join(c.MainDir, "assets")
}

// LibrariesDir returns the path to the libraries directory.
func (c Context) LibrariesDir() string {
	return filepath.Join(c.MainDir, "libraries")
}

// LibraryFile returns the path of a library given its specifier.
func (c Context) LibraryFile(spec minecraft.Specifier) string {
	return filepath.Join(c.MainDir, "libraries", filepath.FromSlash(spec.Path()))
}

// JvmDir returns the path to the directory holding Mojang JVM distributions.
func (c Context) JvmDir() string {
	return filepath.Join(c.MainDir, "jvm")
}

// BinDir returns the path to the directory holding ephemeral run directories.
func (c Context) BinDir() string {
	return filepath.Join(c.MainDir, "bin")
}

// GenBinDir returns a unique directory path to extract native libraries into
// for a single run. The directory is not created.
func (c Context) GenBinDir() string {
	return filepath.Join(c.MainDir, "bin", uuid.NewString())
}
