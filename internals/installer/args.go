package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/portablemc/portablemc/internals/minecraft"
)

// Defaults for the launcher telemetry placeholders.
const (
	DefaultLauncherName    = "portablemc"
	DefaultLauncherVersion = "dev"
)

// legacyJvmArgs replaces arguments.jvm for versions predating the modern
// argument format (1.12.2 and older).
var legacyJvmArgs = []minecraft.Argument{
	{
		Rules: minecraft.Rules{{Action: "allow", OS: minecraft.RuleOS{Name: "osx"}}},
		Value: minecraft.StringList{"-XstartOnFirstThread"},
	},
	{
		Rules: minecraft.Rules{{Action: "allow", OS: minecraft.RuleOS{Name: "windows"}}},
		Value: minecraft.StringList{"-XX:HeapDumpPath=MojangTricksIntelDriversForPerformance_javaw.exe_minecraft.exe.heapdump"},
	},
	{
		Rules: minecraft.Rules{{Action: "allow", OS: minecraft.RuleOS{Name: "windows", Version: `^10\.`}}},
		Value: minecraft.StringList{"-Dos.name=Windows 10", "-Dos.version=10.0"},
	},
	{Value: minecraft.StringList{"-Djava.library.path=${natives_directory}"}},
	{Value: minecraft.StringList{"-Dminecraft.launcher.brand=${launcher_name}"}},
	{Value: minecraft.StringList{"-Dminecraft.launcher.version=${launcher_version}"}},
	{Value: minecraft.StringList{"-cp"}},
	{Value: minecraft.StringList{"${classpath}"}},
}

// assemble computes the process invocation out of everything the resolve
// steps produced. Arguments keep their ${placeholder} form, the Game
// substitutes them when running, once the natives directory exists.
func (i *Installer) assemble(hierarchy minecraft.Hierarchy, flat *minecraft.VersionDescriptor, features map[string]bool, jarPath string, assets *assetsInfo, libs *libraries, logger *loggerInfo, jvm *jvmInfo) (*Game, error) {
	if flat.MainClass == "" {
		return nil, &MainClassNotFoundError{Version: flat.ID}
	}

	session := i.session()
	fixes := i.fixes()
	applied := libs.fixes
	jarPath = absPath(jarPath)

	var jvmArgs, gameArgs []string
	allFeatures := make(map[string]bool)
	plat := minecraft.CurrentPlatform()

	modern := !flat.Arguments.Empty()
	if modern {
		jvmArgs = appendArgs(jvmArgs, flat.Arguments.JVM, plat, features, allFeatures)
		gameArgs = appendArgs(gameArgs, flat.Arguments.Game, plat, features, allFeatures)
	} else {
		jvmArgs = appendArgs(jvmArgs, legacyJvmArgs, plat, features, allFeatures)
		if flat.MinecraftArguments != "" {
			gameArgs = append(gameArgs, strings.Split(flat.MinecraftArguments, " ")...)
		}
	}

	if logger != nil {
		jvmArgs = append(jvmArgs, strings.ReplaceAll(logger.argument, "${path}", absPath(logger.path)))
	}

	// The launch wrapper of legacy loaders locates the client jar itself.
	if flat.MainClass == "net.minecraft.launchwrapper.Launch" {
		jvmArgs = append(jvmArgs, "-Dminecraft.client.jar="+jarPath)
	}

	// Old versions want the client jar first on the class path, modern
	// ones last.
	classPath := make([]string, 0, len(libs.classPath)+1)
	if !modern {
		classPath = append(classPath, jarPath)
	}
	for _, lib := range libs.classPath {
		classPath = append(classPath, absPath(lib))
	}
	if modern {
		classPath = append(classPath, jarPath)
	}

	// Legacy fixes key off the deepest ancestor, the vanilla version a
	// loader version was built on.
	ancestor := hierarchy.Ancestor().ID

	if fixes.LegacyProxy {
		port := legacyProxyPort(ancestor)
		if port != 0 {
			value := fmt.Sprintf("betacraft.uk:%d", port)
			applied[FixLegacyProxy] = value
			i.Handler.Handle(FixAppliedEvent{Fix: FixLegacyProxy, Value: value})
			jvmArgs = append(jvmArgs,
				"-Dhttp.proxyHost=betacraft.uk",
				fmt.Sprintf("-Dhttp.proxyPort=%d", port),
			)
		}
	}

	if fixes.LegacyMergeSort && (strings.HasPrefix(ancestor, "a1.") || strings.HasPrefix(ancestor, "b1.")) {
		applied[FixLegacyMergeSort] = "true"
		i.Handler.Handle(FixAppliedEvent{Fix: FixLegacyMergeSort, Value: "true"})
		jvmArgs = append(jvmArgs, "-Djava.util.Arrays.useLegacyMergeSort=true")
	}

	if fixes.LegacyResolution && i.Resolution != nil && !allFeatures["has_custom_resolution"] {
		value := fmt.Sprintf("%dx%d", i.Resolution.Width, i.Resolution.Height)
		applied[FixLegacyResolution] = value
		i.Handler.Handle(FixAppliedEvent{Fix: FixLegacyResolution, Value: value})
		gameArgs = append(gameArgs,
			"--width", strconv.Itoa(i.Resolution.Width),
			"--height", strconv.Itoa(i.Resolution.Height),
		)
	}

	if fixes.LegacyQuickPlay && i.QuickPlay != nil &&
		i.QuickPlay.feature == "is_quick_play_multiplayer" && !allFeatures[i.QuickPlay.feature] {
		value := fmt.Sprintf("%s:%d", i.QuickPlay.host, i.QuickPlay.port)
		applied[FixLegacyQuickPlay] = value
		i.Handler.Handle(FixAppliedEvent{Fix: FixLegacyQuickPlay, Value: value})
		gameArgs = append(gameArgs,
			"--server", i.QuickPlay.host,
			"--port", strconv.Itoa(i.QuickPlay.port),
		)
	}

	if i.DisableMultiplayer {
		gameArgs = append(gameArgs, "--disableMultiplayer")
	}
	if i.DisableChat {
		gameArgs = append(gameArgs, "--disableChat")
	}

	launcherName := i.LauncherName
	if launcherName == "" {
		launcherName = DefaultLauncherName
	}
	launcherVersion := i.LauncherVersion
	if launcherVersion == "" {
		launcherVersion = DefaultLauncherVersion
	}

	gameAssets := ""
	if assets.virtualDir != "" {
		gameAssets = absPath(assets.virtualDir)
	}

	sep := string(os.PathListSeparator)
	replacements := map[string]string{
		"auth_player_name":  session.Username(),
		"version_name":      hierarchy.Root().ID,
		"library_directory": absPath(i.Context.LibrariesDir()),
		"game_directory":    absPath(i.Context.WorkDir),
		"assets_root":       absPath(i.Context.AssetsDir()),
		"assets_index_name": assets.indexVersion,
		"auth_uuid":         session.UUID(),
		"auth_access_token": session.TokenArgument(false),
		"auth_xuid":         session.Xuid(),
		"clientid":          session.ClientID(),
		"user_type":         session.UserType(),
		"version_type":      flat.Type,

		// legacy game placeholders
		"auth_session":    session.TokenArgument(true),
		"game_assets":     gameAssets,
		"user_properties": "{}",

		// natives_directory is only known once the game runs and a bin
		// directory has been generated
		"natives_directory":   "",
		"launcher_name":       launcherName,
		"launcher_version":    launcherVersion,
		"classpath_separator": sep,
		"classpath":           strings.Join(classPath, sep),
	}

	if i.QuickPlay != nil && allFeatures[i.QuickPlay.feature] {
		replacements[i.QuickPlay.placeholder] = i.QuickPlay.value
	}
	if i.Resolution != nil {
		replacements["resolution_width"] = strconv.Itoa(i.Resolution.Width)
		replacements["resolution_height"] = strconv.Itoa(i.Resolution.Height)
	}

	return &Game{
		JvmPath:      absPath(jvm.path),
		WorkDir:      i.Context.WorkDir,
		MainClass:    flat.MainClass,
		JvmArgs:      jvmArgs,
		GameArgs:     gameArgs,
		Replacements: replacements,
		Fixes:        applied,

		context:     i.Context,
		natives:     libs.natives,
		includeBins: i.IncludeBins,
	}, nil
}

// legacyProxyPort returns the port of the betacraft proxy serving the
// online services of the version, 0 when it predates none.
func legacyProxyPort(ancestor string) int {
	switch {
	case strings.HasPrefix(ancestor, "a1.0."):
		return 80
	case strings.HasPrefix(ancestor, "a1.1."):
		return 11702
	case strings.HasPrefix(ancestor, "a1.") || strings.HasPrefix(ancestor, "b1."):
		return 11705
	case ancestor == "1.0" || ancestor == "1.1" || ancestor == "1.3" || ancestor == "1.4" || ancestor == "1.5",
		strings.HasPrefix(ancestor, "1.2.") || strings.HasPrefix(ancestor, "1.3.") ||
			strings.HasPrefix(ancestor, "1.4.") || strings.HasPrefix(ancestor, "1.5."):
		return 11707
	}
	return 0
}

// appendArgs evaluates an argument list, appending the values of plain and
// rule-passing entries. Feature names checked on the way are collected
// into allFeatures.
func appendArgs(dst []string, args []minecraft.Argument, plat minecraft.Platform, features, allFeatures map[string]bool) []string {
	for _, arg := range args {
		if !arg.Rules.Allows(plat, features, allFeatures) {
			continue
		}
		dst = append(dst, arg.Value...)
	}
	return dst
}

// substituteArgs returns args with every known ${placeholder} replaced.
// Unknown placeholders are left alone.
func substituteArgs(args []string, replacements map[string]string) []string {
	pairs := make([]string, 0, len(replacements)*2)
	for name, value := range replacements {
		pairs = append(pairs, "${"+name+"}", value)
	}
	replacer := strings.NewReplacer(pairs...)

	out := make([]string, len(args))
	for at, arg := range args {
		out[at] = replacer.Replace(arg)
	}
	return out
}

// absPath makes a path absolute so arguments keep working after the game
// process changed into the work directory.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
