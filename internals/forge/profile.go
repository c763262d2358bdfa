package forge

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	archiver "github.com/mholt/archiver/v3"
	"github.com/pkg/errors"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
)

// installProfile is the install_profile.json of an installer. Modern
// installers, 1.12.2-14.23.5.2851 and later, reference a separate
// metadata entry and describe a processor pipeline building the patched
// client. Older installers embed the metadata under versionInfo and only
// need their universal jar extracted.
type installProfile struct {
	Minecraft  string                 `json:"minecraft"`
	Json       string                 `json:"json"`
	Path       *minecraft.Specifier   `json:"path"`
	Libraries  []minecraft.Library    `json:"libraries"`
	Data       map[string]profileData `json:"data"`
	Processors []processor            `json:"processors"`

	Install     *legacyInstall `json:"install"`
	VersionInfo map[string]any `json:"versionInfo"`
}

// Each data entry carries one value per side, only the client one
// matters here.
type profileData struct {
	Client string `json:"client"`
	Server string `json:"server"`
}

type processor struct {
	Sides     []string              `json:"sides"`
	Jar       minecraft.Specifier   `json:"jar"`
	Classpath []minecraft.Specifier `json:"classpath"`
	Args      []string              `json:"args"`
	Outputs   map[string]string     `json:"outputs"`
}

type legacyInstall struct {
	Path      minecraft.Specifier `json:"path"`
	FilePath  string              `json:"filePath"`
	Minecraft string              `json:"minecraft"`
}

// jarFile reads entries out of a jar on disk, addressed by their full
// archive path.
type jarFile struct {
	path string
}

// entry returns the content of an entry and whether it exists at all.
func (j jarFile) entry(name string) ([]byte, bool, error) {
	var data []byte
	found := false
	// Jars are zips, but the extension based dispatch of archiver.Walk
	// only accepts ".zip", so the zip walker is addressed directly.
	err := archiver.NewZip().Walk(j.path, func(f archiver.File) error {
		header, ok := f.Header.(zip.FileHeader)
		if !ok || header.Name != name {
			return nil
		}
		var err error
		if data, err = io.ReadAll(f); err != nil {
			return err
		}
		found = true
		return archiver.ErrStopWalk
	})
	if err != nil {
		return nil, false, errors.Wrapf(err, "reading %s from %s", name, j.path)
	}
	return data, found, nil
}

// extract writes an entry to dst, creating parent directories.
func (j jarFile) extract(name string, dst string) error {
	data, found, err := j.entry(name)
	if err != nil {
		return err
	}
	if !found {
		return &InstallerFileNotFoundError{Entry: name}
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0644)
}

// mainClass scans the jar manifest for the class to start a processor
// with, -jar cannot be combined with -cp. Empty when the jar declares
// none.
func (j jarFile) mainClass() (string, error) {
	data, found, err := j.entry("META-INF/MANIFEST.MF")
	if err != nil {
		return "", err
	}
	if !found {
		return "", nil
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "Main-Class: ") {
			return strings.TrimSpace(line[len("Main-Class: "):]), nil
		}
	}
	return "", nil
}

// readProfile loads the install profile out of an installer.
func readProfile(jar jarFile, version string) (*installProfile, error) {
	data, found, err := jar.entry("install_profile.json")
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &InstallProfileNotFoundError{Version: version}
	}
	var profile installProfile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, &InstallProfileIncoherentError{Reason: err.Error()}
	}
	return &profile, nil
}

// installModern runs the full pipeline of a modern installer: install the
// plain game version first for a JVM and the client jar, gather the
// profile libraries, resolve the data variables and run every client side
// processor, verifying their declared outputs. The version metadata is
// only written once everything succeeded, so a failed installation is
// retried from scratch.
func (i *Installer) installModern(ctx context.Context, jar jarFile, profile *installProfile, id string, game string, tmpDir string, dst string) error {
	if profile.Minecraft != "" && profile.Minecraft != game {
		return &InstallProfileIncoherentError{Reason: "installer is for game version " + profile.Minecraft + ", not " + game}
	}

	metadataEntry := strings.TrimPrefix(profile.Json, "/")
	metadataRaw, found, err := jar.entry(metadataEntry)
	if err != nil {
		return err
	}
	if !found {
		return &InstallerFileNotFoundError{Entry: metadataEntry}
	}
	var metadata map[string]any
	if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
		return &InstallProfileIncoherentError{Reason: err.Error()}
	}

	// The processors patch the plain client jar with a JVM, so the game
	// version is fully installed first, on its own.
	vanilla := *i.Mojang
	vanilla.Version = game
	vanilla.FetchVersion = nil
	vanilla.ValidateVersion = nil
	vanillaGame, err := vanilla.Install(ctx)
	if err != nil {
		return err
	}

	// Installers up to 1.16.5 embed their own forge jar.
	if profile.Path != nil {
		dst := i.Mojang.Context.LibraryFile(*profile.Path)
		if err := jar.extract("maven/"+profile.Path.Path(), dst); err != nil {
			return err
		}
	}

	libraries, err := i.installLibraries(ctx, jar, profile)
	if err != nil {
		return err
	}

	data, err := i.installData(jar, profile, game, tmpDir)
	if err != nil {
		return err
	}

	for _, proc := range profile.Processors {
		if len(proc.Sides) != 0 && !sideMatches(proc.Sides, "client") {
			continue
		}
		if err := i.runProcessor(ctx, proc, libraries, data, vanillaGame.JvmPath); err != nil {
			return err
		}
	}

	return writeDescriptor(dst, metadata, id)
}

// installLibraries schedules or extracts the build time libraries of the
// profile and maps each name to its file.
func (i *Installer) installLibraries(ctx context.Context, jar jarFile, profile *installProfile) (map[string]string, error) {
	libraries := make(map[string]string, len(profile.Libraries))

	dl := downloadmgr.New()
	dl.Client = i.Mojang.Client
	for _, lib := range profile.Libraries {
		file := i.Mojang.Context.LibraryFile(lib.Name)
		libraries[lib.Name.String()] = file

		var artifact *minecraft.DownloadInfo
		if lib.Downloads != nil {
			artifact = lib.Downloads.Artifact
		}
		if artifact != nil && artifact.URL != "" {
			dl.AddMissing(downloadmgr.Entry{
				URL:  artifact.URL,
				Dst:  file,
				Size: artifact.Size,
				Sha1: artifact.Sha1,
				Name: lib.Name.String(),
			}, true)
			continue
		}
		// No download, the library is embedded in the installer.
		if err := jar.extract("maven/"+lib.Name.Path(), file); err != nil {
			return nil, err
		}
	}

	if err := i.Mojang.Download(ctx, dl); err != nil {
		return nil, err
	}
	return libraries, nil
}

// installData resolves the client side data variables of the profile,
// extracting the ones referring to installer files into the temporary
// directory.
func (i *Installer) installData(jar jarFile, profile *installProfile, game string, tmpDir string) (map[string]string, error) {
	data := make(map[string]string, len(profile.Data)+5)
	for key, entry := range profile.Data {
		value := entry.Client
		if strings.HasPrefix(value, "/") {
			name := strings.TrimPrefix(value, "/")
			extracted := filepath.Join(tmpDir, filepath.FromSlash(name))
			if err := jar.extract(name, extracted); err != nil {
				return nil, err
			}
			value = absPath(extracted)
		}
		data[key] = value
	}

	data["SIDE"] = "client"
	data["MINECRAFT_JAR"] = absPath(i.Mojang.Context.VersionJar(game))
	data["MINECRAFT_VERSION"] = game
	data["INSTALLER"] = absPath(jar.path)
	data["LIBRARY_DIR"] = absPath(i.Mojang.Context.LibrariesDir())
	return data, nil
}

// runProcessor starts one processor on the JVM installed for the game and
// verifies the outputs it declares.
func (i *Installer) runProcessor(ctx context.Context, proc processor, libraries map[string]string, data map[string]string, jvmPath string) error {
	name := proc.Jar.String()

	jarPath, ok := libraries[name]
	if !ok {
		return &ProcessorNotFoundError{Name: name}
	}
	mainClass, err := jarFile{jarPath}.mainClass()
	if err != nil || mainClass == "" {
		return &ProcessorNotFoundError{Name: name}
	}

	classpath := make([]string, 0, len(proc.Classpath)+1)
	classpath = append(classpath, absPath(jarPath))
	for _, dep := range proc.Classpath {
		depPath, ok := libraries[dep.String()]
		if !ok {
			return &ProcessorNotFoundError{Name: dep.String()}
		}
		classpath = append(classpath, absPath(depPath))
	}

	i.Mojang.Handler.Handle(ForgeProcessorEvent{Name: name, Task: taskName(proc)})

	args := make([]string, 0, len(proc.Args)+3)
	args = append(args, "-cp", strings.Join(classpath, string(os.PathListSeparator)), mainClass)
	for _, arg := range proc.Args {
		resolved, err := i.resolveArg(arg, data)
		if err != nil {
			return err
		}
		args = append(args, resolved)
	}

	cmd := exec.CommandContext(ctx, jvmPath, args...)
	cmd.Dir = i.Mojang.Context.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if exit, ok := err.(*exec.ExitError); ok {
			return &ProcessorFailedError{
				Name:   name,
				Status: exit.ExitCode(),
				Stdout: stdout.String(),
				Stderr: stderr.String(),
			}
		}
		return errors.Wrapf(err, "spawning processor %s", name)
	}

	for file, sha1 := range proc.Outputs {
		fileResolved, err := i.resolveArg(file, data)
		if err != nil {
			return err
		}
		sha1Resolved, err := i.resolveArg(sha1, data)
		if err != nil {
			return err
		}
		if err := downloadmgr.CheckSha1(fileResolved, sha1Resolved); err != nil {
			return &ProcessorCorruptedError{Name: name, File: fileResolved, ExpectedSha1: sha1Resolved}
		}
	}
	return nil
}

// taskName guesses what a processor does, modern installers pass it
// explicitly.
func taskName(proc processor) string {
	if len(proc.Args) >= 2 && proc.Args[0] == "--task" {
		return strings.ToLower(proc.Args[1])
	}
	return proc.Jar.Artifact
}

func sideMatches(sides []string, side string) bool {
	for _, s := range sides {
		if s == side {
			return true
		}
	}
	return false
}

// resolveArg expands the {NAME} data references of a processor argument,
// then the [group:artifact:version] and 'literal' forms.
func (i *Installer) resolveArg(arg string, data map[string]string) (string, error) {
	arg = expandVariables(arg, data)
	if len(arg) >= 2 && arg[0] == '[' && arg[len(arg)-1] == ']' {
		spec, err := minecraft.ParseSpecifier(arg[1 : len(arg)-1])
		if err != nil {
			return "", &InstallProfileIncoherentError{Reason: "bad library reference " + arg}
		}
		return absPath(i.Mojang.Context.LibraryFile(spec)), nil
	}
	if len(arg) >= 2 && arg[0] == '\'' && arg[len(arg)-1] == '\'' {
		return arg[1 : len(arg)-1], nil
	}
	return arg, nil
}

// expandVariables substitutes every {NAME} occurrence naming a known
// variable, unknown references stay verbatim.
func expandVariables(s string, vars map[string]string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	var b strings.Builder
	for {
		open := strings.IndexByte(s, '{')
		if open == -1 {
			break
		}
		length := strings.IndexByte(s[open:], '}')
		if length == -1 {
			break
		}
		if value, ok := vars[s[open+1:open+length]]; ok {
			b.WriteString(s[:open])
			b.WriteString(value)
		} else {
			b.WriteString(s[:open+length+1])
		}
		s = s[open+length+1:]
	}
	b.WriteString(s)
	return b.String()
}

// installLegacy rewrites the embedded version metadata of an old
// installer and extracts its universal jar into the libraries.
func (i *Installer) installLegacy(jar jarFile, profile *installProfile, id string, dst string) error {
	if profile.Install == nil || profile.VersionInfo == nil {
		return &InstallProfileIncoherentError{Reason: "missing install or versionInfo"}
	}
	metadata := profile.VersionInfo

	// Old metadata uses non standard library keys, and relies on
	// libraries the parent versions no longer install.
	if libs, ok := metadata["libraries"].([]any); ok {
		for _, entry := range libs {
			lib, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			delete(lib, "serverreq")
			delete(lib, "clientreq")
			delete(lib, "checksums")
			if url, _ := lib["url"].(string); url == "" {
				lib["url"] = minecraft.LibrariesURL
			}
		}
	}

	// Installers up to 1.6.4 do not declare their parent.
	if _, ok := metadata["inheritsFrom"]; !ok {
		metadata["inheritsFrom"] = profile.Install.Minecraft
	}

	file := i.Mojang.Context.LibraryFile(profile.Install.Path)
	if err := jar.extract(profile.Install.FilePath, file); err != nil {
		return err
	}

	return writeDescriptor(dst, metadata, id)
}

// writeDescriptor forces the version id to match the directory the file
// lives in and writes it atomically.
func writeDescriptor(dst string, descriptor map[string]any, id string) error {
	descriptor["id"] = id
	data, err := json.Marshal(descriptor)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, dst)
}

// absPath returns the absolute form, processors run from the work
// directory so relative paths would resolve against it.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
