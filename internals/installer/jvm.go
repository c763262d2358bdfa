package installer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/minecraft"
)

// Kinds of JvmPolicy.
const (
	// JvmPolicyStatic uses the executable at JvmPolicy.Path.
	JvmPolicyStatic = "static"
	// JvmPolicySystem searches the PATH and well known install locations.
	JvmPolicySystem = "system"
	// JvmPolicyMojang installs the official distribution of the component
	// the version asks for.
	JvmPolicyMojang = "mojang"
	// JvmPolicySystemThenMojang tries the system first, the default.
	JvmPolicySystemThenMojang = "system-then-mojang"
	// JvmPolicyMojangThenSystem tries the official distribution first.
	JvmPolicyMojangThenSystem = "mojang-then-system"
)

// JvmPolicy tells the installer how to provide the JVM running the game.
type JvmPolicy struct {
	// Kind is one of the JvmPolicy* constants, empty means
	// system-then-mojang.
	Kind string
	// Path is the java executable of the static policy.
	Path string
	// Strict rejects a static executable whose version cannot be probed or
	// does not match the required major version. Without it the executable
	// is used anyway and reported incompatible.
	Strict bool
}

const jvmProbeTimeout = time.Second

// componentForMajor maps well known major versions to their distribution
// component when the descriptor names none.
var componentForMajor = map[int]string{
	8:  "jre-legacy",
	16: "java-runtime-alpha",
	17: "java-runtime-gamma",
	21: "java-runtime-delta",
}

// jvmInfo carries the resolved JVM between the download batch and the
// finalize step creating links and marking executables.
type jvmInfo struct {
	path       string
	version    string
	kind       string
	compatible bool

	executables []string
	// links maps link files to their targets, relative to the directory
	// the link resides in
	links map[string]string
}

// storedJvmManifest is the build manifest cached next to the distribution
// directory. The build version is injected so later launches know it
// without refetching the index.
type storedJvmManifest struct {
	Version string                       `json:"version,omitempty"`
	Files   map[string]minecraft.JvmFile `json:"files"`
}

// resolveJvm finds the JVM to run the version on, following the policy.
// The official distributions only schedule their missing files here, the
// links are created by finalize once the batch completed.
func (i *Installer) resolveJvm(ctx context.Context, flat *minecraft.VersionDescriptor, dl *downloadmgr.DownloadManager) (*jvmInfo, error) {
	major := 8
	component := ""
	if flat.JavaVersion != nil {
		if flat.JavaVersion.MajorVersion != 0 {
			major = flat.JavaVersion.MajorVersion
		}
		component = flat.JavaVersion.Component
	}
	if component == "" {
		component = componentForMajor[major]
	}

	i.Handler.Handle(JvmLoadingEvent{MajorVersion: major})

	var jvm *jvmInfo
	var err error

	switch i.JvmPolicy.Kind {
	case JvmPolicyStatic:
		jvm = i.loadStaticJvm(ctx, major)
	case JvmPolicySystem:
		jvm = i.loadSystemJvm(ctx, major)
	case JvmPolicyMojang:
		jvm, err = i.loadMojangJvm(ctx, component, dl)
	case JvmPolicyMojangThenSystem:
		jvm, err = i.loadMojangJvm(ctx, component, dl)
		if jvm == nil && err == nil {
			jvm = i.loadSystemJvm(ctx, major)
		}
	default:
		jvm = i.loadSystemJvm(ctx, major)
		if jvm == nil {
			jvm, err = i.loadMojangJvm(ctx, component, dl)
		}
	}
	if err != nil {
		return nil, err
	}
	if jvm == nil {
		return nil, &JvmNotFoundError{MajorVersion: major}
	}

	i.Handler.Handle(JvmLoadedEvent{
		Path:       jvm.path,
		Version:    jvm.version,
		Kind:       jvm.kind,
		Compatible: jvm.compatible,
	})
	return jvm, nil
}

// loadStaticJvm probes the configured executable. A failed probe or a
// version mismatch only rejects it under a strict policy.
func (i *Installer) loadStaticJvm(ctx context.Context, major int) *jvmInfo {
	path := i.JvmPolicy.Path
	version, err := probeJvmVersion(ctx, path)
	if err != nil || !compatibleJvmVersion(version, major) {
		i.Handler.Handle(JvmWarningEvent{Reason: JvmWarnVersionRejected, Path: path, Version: version})
		if i.JvmPolicy.Strict {
			return nil
		}
		return &jvmInfo{path: path, version: version, kind: JvmKindCustom}
	}
	return &jvmInfo{path: path, version: version, kind: JvmKindCustom, compatible: true}
}

// loadSystemJvm probes every java executable reachable from the PATH, and
// on linux the /usr/lib/jvm distributions, returning the first one
// matching the required major version.
func (i *Installer) loadSystemJvm(ctx context.Context, major int) *jvmInfo {
	execName := jvmExecName()

	var candidates []string
	for _, dir := range filepath.SplitList(os.Getenv("PATH")) {
		if dir == "" {
			continue
		}
		candidates = append(candidates, filepath.Join(dir, execName))
	}
	if runtime.GOOS == "linux" {
		if entries, err := os.ReadDir("/usr/lib/jvm"); err == nil {
			for _, entry := range entries {
				candidates = append(candidates, filepath.Join("/usr/lib/jvm", entry.Name(), "bin", execName))
			}
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		version, err := probeJvmVersion(ctx, candidate)
		if err != nil || !compatibleJvmVersion(version, major) {
			i.Handler.Handle(JvmWarningEvent{Reason: JvmWarnVersionRejected, Path: candidate, Version: version})
			continue
		}
		return &jvmInfo{path: candidate, version: version, kind: JvmKindSystem, compatible: true}
	}
	return nil
}

// loadMojangJvm installs the official distribution of the component,
// reusing the build manifest cached next to the distribution directory.
// A nil, nil return means this platform or component has no distribution
// and the policy should fall through.
func (i *Installer) loadMojangJvm(ctx context.Context, component string, dl *downloadmgr.DownloadManager) (*jvmInfo, error) {
	if component == "" {
		i.Handler.Handle(JvmWarningEvent{Reason: JvmWarnDistributionMissing})
		return nil, nil
	}

	platform := minecraft.CurrentPlatform().JvmOS()
	if platform == "" {
		i.Handler.Handle(JvmWarningEvent{Reason: JvmWarnUnsupportedPlatform})
		return nil, nil
	}

	dir := filepath.Join(i.Context.JvmDir(), component)
	manifestFile := filepath.Join(i.Context.JvmDir(), component+".json")

	var manifest storedJvmManifest
	data, err := os.ReadFile(manifestFile)
	if err == nil {
		err = json.Unmarshal(data, &manifest)
	}
	if err != nil {
		var index minecraft.JvmManifest
		if err := fetchJSON(ctx, i.client(), minecraft.JvmManifestURL, &index); err != nil {
			return nil, err
		}

		platformBuilds, ok := index[platform]
		if !ok {
			i.Handler.Handle(JvmWarningEvent{Reason: JvmWarnUnsupportedPlatform})
			return nil, nil
		}
		builds := platformBuilds[component]
		if len(builds) == 0 {
			i.Handler.Handle(JvmWarningEvent{Reason: JvmWarnDistributionMissing})
			return nil, nil
		}
		build := builds[0]

		var files minecraft.JvmFiles
		if err := fetchJSON(ctx, i.client(), build.Manifest.URL, &files); err != nil {
			return nil, err
		}

		manifest = storedJvmManifest{Version: build.Version.Name, Files: files.Files}
		data, err := json.Marshal(manifest)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(manifestFile), os.ModePerm); err != nil {
			return nil, err
		}
		if err := os.WriteFile(manifestFile, data, 0644); err != nil {
			return nil, err
		}
	}

	binPath := filepath.Join(dir, "bin", jvmExecName())
	if runtime.GOOS == "darwin" {
		binPath = filepath.Join(dir, "jre.bundle", "Contents", "Home", "bin", "java")
	}

	jvm := &jvmInfo{
		path:       binPath,
		version:    manifest.Version,
		kind:       JvmKindMojang,
		compatible: true,
		links:      make(map[string]string),
	}

	for name, file := range manifest.Files {
		target := filepath.Join(dir, filepath.FromSlash(name))
		switch file.Type {
		case "directory":
			if err := os.MkdirAll(target, os.ModePerm); err != nil {
				return nil, err
			}
		case "link":
			jvm.links[target] = file.Target
		case "file":
			raw, ok := file.Raw()
			if !ok {
				continue
			}
			if file.Executable {
				jvm.executables = append(jvm.executables, target)
			}
			dl.AddMissing(downloadmgr.Entry{
				URL:        raw.URL,
				Dst:        target,
				Size:       raw.Size,
				Sha1:       raw.Sha1,
				Name:       name,
				Executable: file.Executable,
			}, i.StrictChecks)
		}
	}

	return jvm, nil
}

// finalize marks the executables and creates the links of an official
// distribution. Files skipped by the batch may predate this install, so
// their mode is asserted again here.
func (j *jvmInfo) finalize() error {
	for _, file := range j.executables {
		info, err := os.Stat(file)
		if err != nil {
			return err
		}
		mode := info.Mode()
		if newMode := mode | ((mode & 0444) >> 2); newMode != mode {
			if err := os.Chmod(file, newMode); err != nil {
				return err
			}
		}
	}
	for file, target := range j.links {
		if err := linkFile(target, file); err != nil {
			return err
		}
	}
	return nil
}

// linkFile creates a symlink at link pointing to target, a path relative
// to the directory the link resides in. Windows gets a hard link instead,
// symlinks need privileges there. An existing link is left alone.
func linkFile(target string, link string) error {
	var err error
	if runtime.GOOS == "windows" {
		err = os.Link(filepath.Join(filepath.Dir(link), filepath.FromSlash(target)), link)
	} else {
		err = os.Symlink(filepath.FromSlash(target), link)
	}
	if err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

// JVMs print their version on stderr, between double quotes.
var jvmVersionRegex = regexp.MustCompile(`version "([0-9][0-9._]*)"`)

// probeJvmVersion runs the executable with -version and parses the
// version out of its output.
func probeJvmVersion(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, jvmProbeTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, path, "-version").CombinedOutput()
	if err != nil {
		return "", err
	}
	match := jvmVersionRegex.FindSubmatch(out)
	if match == nil {
		return "", fmt.Errorf("no version in output of %s", path)
	}
	return string(match[1]), nil
}

// compatibleJvmVersion tells whether a probed version satisfies the major
// version a descriptor requires. Majors up to 8 use the legacy 1.x form.
func compatibleJvmVersion(version string, major int) bool {
	prefix := strconv.Itoa(major) + "."
	if major <= 8 {
		prefix = "1." + prefix
	}
	return strings.HasPrefix(version, prefix)
}

// jvmExecName returns the java executable filename of the platform. The
// windowless javaw avoids a console window popping up on windows.
func jvmExecName() string {
	if runtime.GOOS == "windows" {
		return "javaw.exe"
	}
	return "java"
}
