package fabric

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/portablemc/portablemc/internals/ownhttp"
)

// Api identifies one meta server of the Fabric family. All of them speak
// the same protocol, only the address and the default version prefix
// differ.
type Api struct {
	// Name prefixes synthesized version ids, unless overridden.
	Name string
	// URL is the base address of the meta server, without trailing slash.
	URL string
}

var (
	Fabric       = Api{Name: "fabric", URL: "https://meta.fabricmc.net/v2"}
	Quilt        = Api{Name: "quilt", URL: "https://meta.quiltmc.org/v3"}
	LegacyFabric = Api{Name: "legacyfabric", URL: "https://meta.legacyfabric.net/v2"}
	Babric       = Api{Name: "babric", URL: "https://meta.babric.glass-launcher.net/v2"}
)

// GameVersion is one game version a meta server supports.
type GameVersion struct {
	Version string `json:"version"`
	Stable  bool   `json:"stable"`
}

// LoaderVersion is one loader version advertised by a meta server.
type LoaderVersion struct {
	Separator string `json:"separator"`
	Build     int    `json:"build"`
	Maven     string `json:"maven"`
	Version   string `json:"version"`
	Stable    *bool  `json:"stable"`
}

// IsStable tells whether the loader version is a stable release. Quilt
// omits the stable flag, its pre releases are recognized from the version
// string instead.
func (v LoaderVersion) IsStable() bool {
	if v.Stable != nil {
		return *v.Stable
	}
	return !strings.Contains(v.Version, "-beta") && !strings.Contains(v.Version, "-pre")
}

// The game-keyed loader endpoint wraps each loader version together with
// the matching intermediary mappings, only the loader part matters here.
type gameLoaderEntry struct {
	Loader LoaderVersion `json:"loader"`
}

// GameVersions lists the game versions the meta server supports, newest
// first.
func (a Api) GameVersions(ctx context.Context, client *http.Client) ([]GameVersion, error) {
	var versions []GameVersion
	if err := a.getJSON(ctx, client, "/versions/game", &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// LoaderVersions lists every loader version the meta server knows, newest
// first.
func (a Api) LoaderVersions(ctx context.Context, client *http.Client) ([]LoaderVersion, error) {
	var versions []LoaderVersion
	if err := a.getJSON(ctx, client, "/versions/loader", &versions); err != nil {
		return nil, err
	}
	return versions, nil
}

// GameLoaderVersions lists the loader versions available for one game
// version, newest first. An empty list means the game version is not
// supported.
func (a Api) GameLoaderVersions(ctx context.Context, client *http.Client, game string) ([]LoaderVersion, error) {
	var entries []gameLoaderEntry
	if err := a.getJSON(ctx, client, "/versions/loader/"+game, &entries); err != nil {
		return nil, err
	}
	versions := make([]LoaderVersion, 0, len(entries))
	for _, entry := range entries {
		versions = append(versions, entry.Loader)
	}
	return versions, nil
}

// Profile returns the raw version metadata the meta server synthesizes
// for a game and loader version pair.
func (a Api) Profile(ctx context.Context, client *http.Client, game string, loader string) ([]byte, error) {
	return a.get(ctx, client, "/versions/loader/"+game+"/"+loader+"/profile/json")
}

func (a Api) getJSON(ctx context.Context, client *http.Client, path string, v any) error {
	data, err := a.get(ctx, client, path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (a Api) get(ctx context.Context, client *http.Client, path string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.URL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	// The profile endpoint answers 400 or 404 for versions it does not
	// know, the installer tells those apart from real failures.
	if res.StatusCode != http.StatusOK {
		return nil, &ownhttp.StatusError{URL: a.URL + path, Status: res.StatusCode}
	}
	return io.ReadAll(res.Body)
}
