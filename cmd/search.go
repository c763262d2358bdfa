package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/fabric"
	"github.com/portablemc/portablemc/internals/forge"
	"github.com/portablemc/portablemc/internals/installer"
	"github.com/portablemc/portablemc/internals/output"
)

var searchKinds = []string{"mojang", "local", "forge", "fabric", "quilt", "legacyfabric", "babric"}

type searchRunner struct {
	kind string
}

func init() {
	runner := &searchRunner{}
	cmd := commands.New(&cobra.Command{
		Use:   "search [query]",
		Short: "Search for versions",
		Long: "Search for versions, by default official Mojang versions. The displayed\n" +
			"table layout depends on the version kind. The 'release' and 'snapshot'\n" +
			"aliases are resolved and the real version is displayed. Without a query,\n" +
			"all results are displayed.",
		Example: `
  portablemc search
  portablemc search release
  portablemc search -k local
  portablemc search -k fabric 0.14`,
		Args: cobra.MaximumNArgs(1),
	}, runner)
	cmd.Flags().StringVarP(&runner.kind, "kind", "k", "mojang",
		"Kind of search to operate ("+strings.Join(searchKinds, ", ")+").")
	rootCmd.AddCommand(cmd.Command)
}

func (r *searchRunner) RunE(cmd *cobra.Command, args []string) error {
	out := newOutput()

	ictx, err := launcherContext()
	if err != nil {
		return err
	}
	client := newClient()

	search := ""
	hasSearch := false
	if len(args) == 1 {
		search, hasSearch = args[0], true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table := out.Table()
	var socketTips []string

	switch r.kind {
	case "mojang":
		err = searchMojang(ctx, ictx, client, table, search, hasSearch, &socketTips)
	case "local":
		searchLocal(ictx, table, search)
	case "forge":
		err = searchForge(ctx, ictx, client, table, search, hasSearch, &socketTips)
	case "fabric", "quilt", "legacyfabric", "babric":
		var api fabric.Api
		switch r.kind {
		case "fabric":
			api = fabric.Fabric
		case "quilt":
			api = fabric.Quilt
		case "legacyfabric":
			api = fabric.LegacyFabric
		case "babric":
			api = fabric.Babric
		}
		err = searchLoader(ctx, api, client, table, search)
	default:
		return &commands.CliError{
			Text:        fmt.Sprintf("unknown search kind %q", r.kind),
			Suggestions: []string{"one of " + strings.Join(searchKinds, ", ")},
		}
	}
	if err != nil {
		return reportFatal(out, err, socketTips)
	}

	table.Print()
	return nil
}

func searchMojang(ctx context.Context, ictx installer.Context, client *http.Client, table output.Table, search string, hasSearch bool, socketTips *[]string) error {
	table.Add(
		output.Lang("search.type"),
		output.Lang("search.name"),
		output.Lang("search.release_date"),
		output.Lang("search.flags"))
	table.Separator()

	*socketTips = append(*socketTips, "version_manifest")
	manifest := newManifest(client, ictx)

	alias := false
	if hasSearch {
		var err error
		search, alias, err = manifest.FilterLatest(ctx, search)
		if err != nil {
			return err
		}
	}

	versions, err := manifest.AllVersions(ctx)
	if err != nil {
		return err
	}
	for _, version := range versions {
		if hasSearch {
			if alias && search != version.ID {
				continue
			}
			if !alias && !strings.Contains(version.ID, search) {
				continue
			}
		}
		flags := ""
		if _, err := os.Stat(ictx.VersionFile(version.ID)); err == nil {
			flags = output.Lang("search.flags.local")
		}
		table.Add(version.Type, version.ID, formatISODate(version.ReleaseTime), flags)
	}
	return nil
}

func searchLocal(ictx installer.Context, table output.Table, search string) {
	table.Add(
		output.Lang("search.name"),
		output.Lang("search.last_modified"))
	table.Separator()

	for _, id := range ictx.ListVersions() {
		if !strings.Contains(id, search) {
			continue
		}
		modified := ""
		if info, err := os.Stat(ictx.VersionFile(id)); err == nil {
			modified = formatLocaleDate(info.ModTime())
		}
		table.Add(id, modified)
	}
}

func searchForge(ctx context.Context, ictx installer.Context, client *http.Client, table output.Table, search string, hasSearch bool, socketTips *[]string) error {
	table.Add(
		output.Lang("search.name"),
		output.Lang("search.loader_version"))
	table.Separator()

	// Aliases resolve so 'search -k forge release' lists the promotions of
	// the latest game version.
	if hasSearch {
		*socketTips = append(*socketTips, "version_manifest")
		resolved, _, err := newManifest(client, ictx).FilterLatest(ctx, search)
		if err != nil {
			return err
		}
		search = resolved
	}

	promos, err := forge.Forge.Promotions(ctx, client)
	if err != nil {
		return err
	}
	aliases := make([]string, 0, len(promos))
	for alias := range promos {
		if strings.Contains(alias, search) {
			aliases = append(aliases, alias)
		}
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		table.Add(alias, promos[alias])
	}
	return nil
}

func searchLoader(ctx context.Context, api fabric.Api, client *http.Client, table output.Table, search string) error {
	table.Add(
		output.Lang("search.loader_version"),
		output.Lang("search.flags"))
	table.Separator()

	loaders, err := api.LoaderVersions(ctx, client)
	if err != nil {
		return err
	}
	for _, loader := range loaders {
		if !strings.Contains(loader.Version, search) {
			continue
		}
		flags := ""
		if loader.IsStable() {
			flags = output.Lang("search.flags.stable")
		}
		table.Add(loader.Version, flags)
	}
	return nil
}
