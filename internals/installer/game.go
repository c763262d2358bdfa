package installer

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"
)

// Game is everything required to spawn the game process. Install returns
// it fully resolved, the argument lists still carry their ${placeholder}
// forms and are substituted by Run, once the natives directory exists.
type Game struct {
	// JvmPath is the java executable starting the game.
	JvmPath string
	// WorkDir is the directory the game process runs in.
	WorkDir string
	// MainClass sits between the JVM and the game arguments.
	MainClass string

	JvmArgs  []string
	GameArgs []string

	// Replacements maps placeholder names to their values.
	Replacements map[string]string
	// Fixes names the workarounds the installer applied, with a short
	// value describing each.
	Fixes map[string]string

	// Stdout and Stderr receive the game output, defaulting to the
	// launcher's own streams.
	Stdout io.Writer
	Stderr io.Writer

	context     Context
	natives     []nativeLib
	includeBins []string
}

// Command returns the full argv of the game process, the JVM executable
// first, with every placeholder substituted. The natives directory is
// only known by the caller, Run generates one per run.
func (g *Game) Command(nativesDir string) []string {
	replacements := make(map[string]string, len(g.Replacements)+1)
	for name, value := range g.Replacements {
		replacements[name] = value
	}
	replacements["natives_directory"] = nativesDir

	argv := make([]string, 0, len(g.JvmArgs)+2+len(g.GameArgs))
	argv = append(argv, g.JvmPath)
	argv = append(argv, substituteArgs(g.JvmArgs, replacements)...)
	argv = append(argv, g.MainClass)
	argv = append(argv, substituteArgs(g.GameArgs, replacements)...)
	return argv
}

// Run extracts the native libraries into a fresh bin directory, spawns the
// game and waits for it to stop. The bin directory is removed afterwards.
// Exit code 130 means the player interrupted the game and is treated like
// a normal stop.
func (g *Game) Run(ctx context.Context) error {
	binDir := absPath(g.context.GenBinDir())
	if err := os.MkdirAll(binDir, os.ModePerm); err != nil {
		return err
	}
	defer os.RemoveAll(binDir)

	natives := make([]nativeLib, 0, len(g.natives)+len(g.includeBins))
	natives = append(natives, g.natives...)
	for _, file := range g.includeBins {
		natives = append(natives, nativeLib{path: file})
	}

	for _, native := range natives {
		info, err := os.Stat(native.path)
		if err != nil || !info.Mode().IsRegular() {
			return fmt.Errorf("native file not found: %s", native.path)
		}
		if err := extractNative(native, binDir); err != nil {
			return err
		}
	}

	argv := g.Command(binDir)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = g.WorkDir
	cmd.Env = os.Environ()
	cmd.Stdin = os.Stdin
	cmd.Stdout = g.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = g.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	// Ctrl-C reaches the whole process group, ask the game to stop and
	// keep waiting for it instead of dying first.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(interrupt)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-interrupt:
			// cmd.Process.Signal is not implemented on windows, gopsutil
			// terminates the process on every platform.
			if p, err := process.NewProcess(int32(cmd.Process.Pid)); err == nil {
				p.Terminate()
			}
		case <-done:
		}
	}()

	err := cmd.Wait()
	if code := cmd.ProcessState.ExitCode(); code == 0 || code == 130 {
		// the game returns 130 when stopped by the player
		return nil
	}
	return err
}

// extractNative installs one native library into the bin directory.
// Archives get their shared objects extracted flat, plain files are
// symlinked, or copied when linking fails.
func extractNative(native nativeLib, binDir string) error {
	name := filepath.Base(native.path)

	if strings.HasSuffix(name, ".zip") || strings.HasSuffix(name, ".jar") {
		archive, err := zip.OpenReader(native.path)
		if err != nil {
			return err
		}
		defer archive.Close()

		for _, member := range archive.File {
			if excludedNative(member.Name, native.exclude) || !hasNativeExt(member.Name) {
				continue
			}
			if err := extractZipFile(member, filepath.Join(binDir, path.Base(member.Name))); err != nil {
				return err
			}
		}
		return nil
	}

	// Plain shared objects lose the version suffix some distributions
	// append after .so.
	if at := strings.LastIndex(name, ".so"); at >= 0 {
		name = name[:at+len(".so")]
	}
	dst := filepath.Join(binDir, name)
	if err := os.Symlink(absPath(native.path), dst); err != nil {
		return copyFile(native.path, dst)
	}
	return nil
}

func hasNativeExt(name string) bool {
	return strings.HasSuffix(name, ".so") || strings.HasSuffix(name, ".dll") || strings.HasSuffix(name, ".dylib")
}

// excludedNative applies the extract exclusions of a library, path
// prefixes like META-INF/.
func excludedNative(name string, exclude []string) bool {
	for _, prefix := range exclude {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func extractZipFile(member *zip.File, dst string) error {
	src, err := member.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
