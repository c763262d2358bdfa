package cmd

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pbnjay/memory"
	"github.com/spf13/cobra"

	"github.com/portablemc/portablemc/internals/auth"
	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/downloadmgr"
	"github.com/portablemc/portablemc/internals/fabric"
	"github.com/portablemc/portablemc/internals/forge"
	"github.com/portablemc/portablemc/internals/installer"
	"github.com/portablemc/portablemc/internals/output"
)

// defaultJvmArgs mirrors the arguments of the official launcher, appended
// when --jvm-args is not given. The -Xmx part is replaced by --max-ram.
var defaultJvmArgs = []string{
	"-Xmx2G",
	"-XX:+UnlockExperimentalVMOptions",
	"-XX:+UseG1GC",
	"-XX:G1NewSizePercent=20",
	"-XX:G1ReservePercent=20",
	"-XX:MaxGCPauseMillis=50",
	"-XX:G1HeapRegionSize=32M",
}

var versionKinds = []string{"standard", "fabric", "quilt", "legacyfabric", "babric", "forge", "neoforge"}

type startRunner struct {
	dry         bool
	disableMp   bool
	disableChat bool
	demo        bool
	resolution  string
	jvm         string
	jvmArgs     string
	maxRam      int
	noFix       bool
	lwjgl       string
	excludeLibs []string
	includeBins []string

	fabricPrefix       string
	quiltPrefix        string
	legacyFabricPrefix string
	babricPrefix       string
	forgePrefix        string
	neoForgePrefix     string

	authService   string
	authNoBrowser bool
	authAnonymize bool
	tempLogin     bool
	login         string
	username      string
	uuid          string
	server        string
}

func init() {
	runner := &startRunner{}

	formats := make([]string, 0, len(versionKinds))
	for _, kind := range versionKinds {
		formats = append(formats, "  "+output.Lang("args.start.version."+kind))
	}

	cmd := commands.New(&cobra.Command{
		Use:   "start [version]",
		Short: "Start the game",
		Long: "Start the game, defaulting to the latest release.\n\n" +
			"Version formats:\n" + strings.Join(formats, "\n"),
		Example: `
  portablemc start
  portablemc start snapshot
  portablemc start fabric:1.20.4
  portablemc start forge:1.20.1 -l someone@example.com`,
		Args: cobra.MaximumNArgs(1),
	}, runner)

	fs := cmd.Flags()
	fs.BoolVar(&runner.dry, "dry", false, "Simulate game starting.")
	fs.BoolVar(&runner.disableMp, "disable-mp", false, "Disable the multiplayer buttons (>= 1.16).")
	fs.BoolVar(&runner.disableChat, "disable-chat", false, "Disable the online chat (>= 1.16).")
	fs.BoolVar(&runner.demo, "demo", false, "Start game in demo mode.")
	fs.StringVar(&runner.resolution, "resolution", "", "Set a custom start resolution (<width>x<height>, >= 1.6).")
	fs.StringVar(&runner.jvm, "jvm", "", "Set a custom JVM 'java' executable path. If this argument is omitted a public build of a JVM is downloaded from Mojang services (if Mojang does not support your system, error is returned).")
	fs.StringVar(&runner.jvmArgs, "jvm-args", "", "Change the default JVM arguments.")
	fs.IntVar(&runner.maxRam, "max-ram", -1, "Set the maximum RAM in MiB the game is allowed to use, replacing the -Xmx argument. A value of 0 computes it from the system memory.")
	fs.BoolVar(&runner.noFix, "no-fix", false, "Flag that globally disable fixes (proxy for old versions), enabled by default.")
	fs.StringVar(&runner.fabricPrefix, "fabric-prefix", "fabric", "Change the prefix of the version ID when starting with Fabric (<prefix>-<vanilla-version>-<loader-version>).")
	fs.StringVar(&runner.quiltPrefix, "quilt-prefix", "quilt", "Change the prefix of the version ID when starting with Quilt (<prefix>-<vanilla-version>-<loader-version>).")
	fs.StringVar(&runner.legacyFabricPrefix, "legacyfabric-prefix", "legacyfabric", "Change the prefix of the version ID when starting with LegacyFabric (<prefix>-<vanilla-version>-<loader-version>).")
	fs.StringVar(&runner.babricPrefix, "babric-prefix", "babric", "Change the prefix of the version ID when starting with Babric (<prefix>-<vanilla-version>-<loader-version>).")
	fs.StringVar(&runner.forgePrefix, "forge-prefix", "forge", "Change the prefix of the version ID when starting with Forge (<prefix>-<forge-version>).")
	fs.StringVar(&runner.neoForgePrefix, "neoforge-prefix", "neoforge", "Change the prefix of the version ID when starting with NeoForge (<prefix>-<neoforge-version>).")
	fs.StringVar(&runner.lwjgl, "lwjgl", "", "Change the default LWJGL version used by Minecraft (LWJGL >= 3.2.3). This argument makes additional changes in order to support processor architectures such as ARM. It's not guaranteed to work with every version of Minecraft and downgrading LWJGL version is not recommended.")
	fs.StringArrayVar(&runner.excludeLibs, "exclude-lib", nil, "Specify Java libraries to exclude from the classpath (and download) before launching the game. Follow this pattern to specify libraries: <group>:<artifact>[:[<version>][:<classifier>]]. If your system doesn't support Mojang-provided natives, you can use both --exclude-lib and --include-bin to replace them with your own (e.g. --exclude-lib org.lwjgl:lwjgl-glfw::natives --include-bin /lib/libglfw.so).")
	fs.StringArrayVar(&runner.includeBins, "include-bin", nil, "Include binaries (.so, .dll, .dylib) in the bin directory of the game, given files are symlinked in the directory if possible, copied if not. On linux, version numbers are discarded (e.g. /usr/lib/foo.so.1.22.2 -> foo.so). Read the --exclude-lib help for use cases.")
	fs.BoolVar(&runner.authAnonymize, "auth-anonymize", false, "Anonymize your email or username for authentication messages.")
	addAuthFlags(fs, &runner.authService, &runner.authNoBrowser)
	fs.BoolVarP(&runner.tempLogin, "temp-login", "t", false, "Flag used with -l (--login) to tell launcher not to cache your session if not already cached, disabled by default.")
	fs.StringVarP(&runner.login, "login", "l", "", "Use a email to authenticate using the selected service (with --auth-service, also overrides --username and --uuid).")
	fs.StringVarP(&runner.username, "username", "u", "", "Set a custom user name to play.")
	fs.StringVarP(&runner.uuid, "uuid", "i", "", "Set a custom user UUID to play.")
	fs.StringVarP(&runner.server, "server", "s", "", "Start the game and directly connect to a multiplayer server (<host>[:<port>], >= 1.6).")

	rootCmd.AddCommand(cmd.Command)
}

func (r *startRunner) RunE(cmd *cobra.Command, args []string) error {
	out := newOutput()

	ictx, err := launcherContext()
	if err != nil {
		return err
	}
	client := newClient()

	if err := checkAuthService(r.authService); err != nil {
		return err
	}

	version := "release"
	if len(args) == 1 && args[0] != "" {
		version = args[0]
	}

	parts := strings.Split(version, ":")
	if len(parts) == 1 {
		parts = []string{"standard", parts[0]}
	}
	kind := parts[0]

	var socketTips []string
	target, knownKind := r.target(out, ictx, kind, parts[1:], &socketTips)
	if target == nil {
		if !knownKind {
			task(out, output.StateFailed, "start.version.invalid_id_unknown_kind",
				output.Arg{Key: "kind", Value: kind})
		} else {
			task(out, output.StateFailed, "start.version.invalid_id",
				output.Arg{Key: "expected", Value: output.Lang("args.start.version." + kind)})
		}
		return commands.Exit(commands.ExitFailure)
	}

	inner := target.inner
	inner.Manifest = newManifest(client, ictx)
	inner.Client = client
	inner.LauncherName = "portablemc"
	inner.LauncherVersion = Version
	inner.Demo = r.demo
	inner.DisableMultiplayer = r.disableMp
	inner.DisableChat = r.disableChat
	inner.IncludeBins = r.includeBins

	if r.jvm != "" {
		inner.JvmPolicy = installer.JvmPolicy{Kind: installer.JvmPolicyStatic, Path: r.jvm}
	}

	if r.resolution != "" {
		resolution, err := parseResolution(r.resolution)
		if err != nil {
			return err
		}
		inner.Resolution = resolution
	}

	if r.server != "" {
		host, port, err := parseServer(r.server)
		if err != nil {
			return err
		}
		inner.QuickPlay = installer.QuickPlayMultiplayer(host, port)
	}

	fixes := installer.DefaultFixes()
	if r.noFix {
		fixes = &installer.Fixes{}
	}
	if r.lwjgl != "" {
		fixes.Lwjgl = r.lwjgl
	}
	inner.Fixes = fixes

	for _, raw := range r.excludeLibs {
		filter, err := installer.ParseLibraryFilter(raw)
		if err != nil {
			return &commands.CliError{
				Text: err.Error(),
				Help: "Library filters follow <group>:<artifact>[:[<version>][:<classifier>]].",
			}
		}
		inner.ExcludeLibs = append(inner.ExcludeLibs, filter)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if r.login != "" {
		session, err := promptAuthenticate(ctx, out, client, authDatabase(ictx),
			r.login, !r.tempLogin, r.authAnonymize, r.authNoBrowser, true)
		if err != nil {
			return reportFatal(out, err, socketTips)
		}
		if session == nil {
			return commands.Exit(commands.ExitFailure)
		}
		inner.Session = session
	} else {
		inner.Session = auth.NewOfflineSession(r.username, r.uuid)
	}

	renderer := output.NewRenderer(out, verbosity)
	renderer.Interrupt = cancel
	defer renderer.Stop()
	inner.Handler = renderer.Handle

	game, err := target.install(ctx)
	renderer.Stop()
	if err != nil {
		return reportInstall(out, err, socketTips)
	}

	for _, bin := range r.includeBins {
		info, err := os.Stat(bin)
		if err != nil || !info.Mode().IsRegular() {
			task(out, output.StateFailed, "start.additional_binary_not_found",
				output.Arg{Key: "path", Value: bin})
			return commands.Exit(commands.ExitFailure)
		}
	}

	if !cmd.Flags().Changed("jvm-args") {
		game.JvmArgs = append(game.JvmArgs, defaultJvmArgs...)
	} else if r.jvmArgs != "" {
		game.JvmArgs = append(game.JvmArgs, strings.Fields(r.jvmArgs)...)
	}
	if r.maxRam >= 0 {
		game.JvmArgs = applyMaxRam(game.JvmArgs, r.maxRam)
	}

	if !r.dry || verbosity >= 2 {
		out.Print("\n")
	}
	if verbosity >= 2 {
		out.Print(strings.Join(game.Command(ictx.GenBinDir()), " ") + "\n")
	}
	if r.dry {
		return nil
	}

	gameLog := output.NewGameWriter(out)
	game.Stdout = gameLog
	game.Stderr = gameLog

	// The game process takes over the interrupt handling, a Ctrl-C must
	// reach it and be waited for instead of killing the launcher first.
	stop()

	err = game.Run(context.Background())
	gameLog.Close()
	if err != nil {
		out.Finish()
		task(out, output.StateFailed, "echo", output.Arg{Key: "echo", Value: err.Error()})
		return commands.Exit(commands.ExitGameError)
	}
	return nil
}

type startTarget struct {
	inner   *installer.Installer
	install func(ctx context.Context) (*installer.Game, error)
}

// target builds the installer of one version kind, reporting whether the
// kind itself is known. A nil target for a known kind means the version id
// does not follow the kind's format.
func (r *startRunner) target(out output.Output, ictx installer.Context, kind string, parts []string, socketTips *[]string) (*startTarget, bool) {

	version := parts[0]
	if version == "" {
		version = "release"
	}
	*socketTips = append(*socketTips, "version_manifest")

	if verbosity >= 1 {
		task(out, output.StateInfo, "start.global_version",
			output.Arg{Key: "kind", Value: kind},
			output.Arg{Key: "version", Value: version},
			output.Arg{Key: "remaining", Value: strings.Join(parts[1:], " ")})
	}

	switch kind {
	case "standard", "mojang":
		if len(parts) != 1 {
			return nil, true
		}
		inner := installer.New(ictx, version)
		return &startTarget{inner: inner, install: inner.Install}, true

	case "fabric", "quilt", "legacyfabric", "babric":
		if len(parts) > 2 {
			return nil, true
		}

		// LegacyFabric stops at 1.13.2 and Babric only runs b1.7.3, the
		// release alias would resolve to versions they cannot load.
		if version == "release" {
			switch kind {
			case "legacyfabric":
				version = "1.13.2"
			case "babric":
				version = "b1.7.3"
			}
		}

		loader := ""
		if len(parts) == 2 {
			loader = parts[1]
		} else {
			*socketTips = append(*socketTips, kind+"_loader_version")
		}

		var api fabric.Api
		var prefix string
		switch kind {
		case "fabric":
			api, prefix = fabric.Fabric, r.fabricPrefix
		case "quilt":
			api, prefix = fabric.Quilt, r.quiltPrefix
		case "legacyfabric":
			api, prefix = fabric.LegacyFabric, r.legacyFabricPrefix
		case "babric":
			api, prefix = fabric.Babric, r.babricPrefix
		}

		loaderInstaller := fabric.New(api, ictx, version, loader)
		loaderInstaller.Prefix = prefix
		return &startTarget{inner: loaderInstaller.Mojang, install: loaderInstaller.Install}, true

	case "forge", "neoforge":
		if len(parts) != 1 {
			return nil, true
		}
		api, prefix := forge.Forge, r.forgePrefix
		if kind == "neoforge" {
			api, prefix = forge.NeoForge, r.neoForgePrefix
		}
		loaderInstaller := forge.New(api, ictx, version)
		loaderInstaller.Prefix = prefix
		return &startTarget{inner: loaderInstaller.Mojang, install: loaderInstaller.Install}, true
	}

	return nil, false
}

// reportInstall maps installation failures onto their task lines and exit
// codes, falling back to the generic classification for the rest.
func reportInstall(out output.Output, err error, socketTips []string) error {
	var versionNotFound *installer.VersionNotFoundError
	var hierarchyLoop *installer.HierarchyLoopError
	var malformed *installer.MalformedDescriptorError
	var jarNotFound *installer.JarNotFoundError
	var assetsNotFound *installer.AssetsNotFoundError
	var libNotFound *installer.LibraryNotFoundError
	var mainClassNotFound *installer.MainClassNotFoundError
	var jvmNotFound *installer.JvmNotFoundError
	var batch *downloadmgr.BatchError

	switch {
	case errors.As(err, &versionNotFound):
		task(out, output.StateFailed, "start.version.not_found",
			output.Arg{Key: "version", Value: versionNotFound.Version})
		return commands.Exit(commands.ExitVersionNotFound)

	case errors.As(err, &hierarchyLoop):
		task(out, output.StateFailed, "start.version.too_much_parents")
		task(out, "", "echo",
			output.Arg{Key: "echo", Value: strings.Join(hierarchyLoop.Versions, ", ")})

	case errors.As(err, &malformed):
		task(out, output.StateFailed, "start.version.malformed",
			output.Arg{Key: "version", Value: malformed.Version},
			output.Arg{Key: "reason", Value: malformed.Reason})

	case errors.As(err, &jarNotFound):
		task(out, output.StateFailed, "start.jar.not_found")

	case errors.As(err, &assetsNotFound):
		task(out, output.StateFailed, "start.assets.not_found",
			output.Arg{Key: "index_version", Value: assetsNotFound.IndexVersion})

	case errors.As(err, &libNotFound):
		task(out, output.StateFailed, "start.libraries.not_found_error",
			output.Arg{Key: "spec", Value: libNotFound.Spec.String()})

	case errors.As(err, &mainClassNotFound):
		task(out, output.StateFailed, "start.main_class.not_found",
			output.Arg{Key: "version", Value: mainClassNotFound.Version})

	case errors.As(err, &jvmNotFound):
		task(out, output.StateFailed, "start.jvm.not_found_error",
			output.Arg{Key: "major", Value: strconv.Itoa(jvmNotFound.MajorVersion)})

	case errors.As(err, &batch):
		// The pending download line turns into the failed one, then one
		// line per failed entry.
		out.Task(output.StateFailed, "")
		out.Finish()
		for _, entryErr := range batch.Errors {
			task(out, "", "download.error",
				output.Arg{Key: "name", Value: entryErr.Entry.DisplayName()},
				output.Arg{Key: "message", Value: output.Lang("download.error." + entryErr.Code)})
		}

	default:
		if key, args, ok := loaderError(err); ok {
			task(out, output.StateFailed, key, args...)
			return commands.Exit(commands.ExitInstallError)
		}
		return reportFatal(out, err, socketTips)
	}
	return commands.Exit(commands.ExitInstallError)
}

// loaderError maps the resolution failures of the mod loaders onto their
// catalog keys.
func loaderError(err error) (string, []output.Arg, bool) {
	var fabricLatest *fabric.LatestNotFoundError
	var fabricGame *fabric.GameVersionNotFoundError
	var fabricLoader *fabric.LoaderVersionNotFoundError
	var forgeLatest *forge.LatestNotFoundError
	var forgeInstaller *forge.InstallerNotFoundError
	var forgeMetadata *forge.MavenMetadataMalformedError
	var forgeProfile *forge.InstallProfileNotFoundError
	var forgeIncoherent *forge.InstallProfileIncoherentError
	var forgeFile *forge.InstallerFileNotFoundError
	var processorNotFound *forge.ProcessorNotFoundError
	var processorFailed *forge.ProcessorFailedError
	var processorCorrupted *forge.ProcessorCorruptedError

	switch {
	case errors.As(err, &fabricLatest):
		return "start.fabric.error.latest_not_found", []output.Arg{
			{Key: "api", Value: fabricLatest.Api},
			{Key: "channel", Value: fabricLatest.Channel},
		}, true
	case errors.As(err, &fabricGame):
		return "start.fabric.error.game_version_not_found", []output.Arg{
			{Key: "api", Value: fabricGame.Api},
			{Key: "game_version", Value: fabricGame.GameVersion},
		}, true
	case errors.As(err, &fabricLoader):
		return "start.fabric.error.loader_version_not_found", []output.Arg{
			{Key: "api", Value: fabricLoader.Api},
			{Key: "game_version", Value: fabricLoader.GameVersion},
			{Key: "loader_version", Value: fabricLoader.LoaderVersion},
		}, true
	case errors.As(err, &forgeLatest):
		return "start.forge.install_error.latest_not_found", []output.Arg{
			{Key: "api", Value: forgeLatest.Api},
			{Key: "game_version", Value: forgeLatest.GameVersion},
		}, true
	case errors.As(err, &forgeInstaller):
		return "start.forge.install_error.installer_not_found", []output.Arg{
			{Key: "version", Value: forgeInstaller.Version},
		}, true
	case errors.As(err, &forgeMetadata):
		return "start.forge.install_error.maven_metadata_malformed", []output.Arg{
			{Key: "url", Value: forgeMetadata.URL},
		}, true
	case errors.As(err, &forgeProfile):
		return "start.forge.install_error.install_profile_not_found", nil, true
	case errors.As(err, &forgeIncoherent):
		return "start.forge.install_error.install_profile_incoherent", []output.Arg{
			{Key: "reason", Value: forgeIncoherent.Reason},
		}, true
	case errors.As(err, &forgeFile):
		return "start.forge.install_error.installer_file_not_found", []output.Arg{
			{Key: "entry", Value: forgeFile.Entry},
		}, true
	case errors.As(err, &processorNotFound):
		return "start.forge.install_error.processor_not_found", []output.Arg{
			{Key: "name", Value: processorNotFound.Name},
		}, true
	case errors.As(err, &processorFailed):
		return "start.forge.install_error.processor_failed", []output.Arg{
			{Key: "name", Value: processorFailed.Name},
			{Key: "status", Value: strconv.Itoa(processorFailed.Status)},
		}, true
	case errors.As(err, &processorCorrupted):
		return "start.forge.install_error.processor_corrupted", []output.Arg{
			{Key: "name", Value: processorCorrupted.Name},
			{Key: "file", Value: processorCorrupted.File},
		}, true
	}
	return "", nil, false
}

// applyMaxRam replaces the -Xmx argument. A zero maximum computes one from
// the system memory: a quarter of it, at least 1 GiB, capped at 85%.
func applyMaxRam(jvmArgs []string, maxRamMiB int) []string {
	filtered := make([]string, 0, len(jvmArgs)+1)
	for _, arg := range jvmArgs {
		if !strings.HasPrefix(arg, "-Xmx") {
			filtered = append(filtered, arg)
		}
	}
	if maxRamMiB == 0 {
		sysMemMiB := float64(memory.TotalMemory()) / 1024 / 1024
		maxRamMiB = 1024
		maxRamMiB = int(math.Max(float64(maxRamMiB), sysMemMiB/4))
		maxRamMiB = int(math.Min(float64(maxRamMiB), sysMemMiB*0.85))
	}
	return append(filtered, fmt.Sprintf("-Xmx%dM", maxRamMiB))
}

// parseResolution reads the <width>x<height> flag form.
func parseResolution(s string) (*installer.Resolution, error) {
	w, h, ok := strings.Cut(s, "x")
	width, werr := strconv.Atoi(w)
	height, herr := strconv.Atoi(h)
	if !ok || werr != nil || herr != nil || width <= 0 || height <= 0 {
		return nil, &commands.CliError{
			Text: fmt.Sprintf("invalid resolution format %q, expected <width>x<height>", s),
		}
	}
	return &installer.Resolution{Width: width, Height: height}, nil
}

// parseServer reads the <host>[:<port>] flag form. Bare IPv6 addresses
// pass without brackets as long as no port follows.
func parseServer(s string) (string, int, error) {
	host, portText, err := net.SplitHostPort(s)
	if err != nil {
		return s, 0, nil
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port <= 0 || port > 65535 {
		return "", 0, &commands.CliError{
			Text: fmt.Sprintf("invalid server port in %q", s),
		}
	}
	return host, port, nil
}
