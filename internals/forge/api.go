package forge

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/portablemc/portablemc/internals/ownhttp"
)

// Api identifies one maven repository distributing a Forge-like loader.
// Forge and NeoForge share the artifact layout but resolve their latest
// versions through different services.
type Api struct {
	// Name prefixes synthesized version ids, unless overridden.
	Name string
	// RepoURL is the maven directory of the forge artifact, without
	// trailing slash.
	RepoURL string
	// PromosURL serves the promotions mapping game versions to promoted
	// loader builds. Empty for repositories without promotions.
	PromosURL string
	// LatestURL queries the latest loader build for a game version. Empty
	// for repositories without such a service.
	LatestURL string
}

var (
	Forge = Api{
		Name:      "forge",
		RepoURL:   "https://maven.minecraftforge.net/net/minecraftforge/forge",
		PromosURL: "https://files.minecraftforge.net/net/minecraftforge/forge/promotions_slim.json",
	}
	// NeoForge initially released under the forge artifact for 1.20.1,
	// later versions moved to their own neoforge artifact.
	NeoForge = Api{
		Name:      "neoforge",
		RepoURL:   "https://maven.neoforged.net/releases/net/neoforged/forge",
		LatestURL: "https://maven.neoforged.net/api/maven/latest/version/releases/net%2Fneoforged%2Fforge",
	}
)

// Promotions returns the promoted loader builds, keyed by
// "<game>-recommended" and "<game>-latest".
func (a Api) Promotions(ctx context.Context, client *http.Client) (map[string]string, error) {
	data, err := get(ctx, client, a.PromosURL)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Promos map[string]string `json:"promos"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload.Promos, nil
}

// Latest asks the repository service for the latest loader version of a
// game version. The answer is the full "<game>-<loader>" version.
func (a Api) Latest(ctx context.Context, client *http.Client, game string) (string, error) {
	data, err := get(ctx, client, a.LatestURL+"?filter="+game)

	var status *ownhttp.StatusError
	if errors.As(err, &status) && status.Status == http.StatusNotFound {
		return "", &LatestNotFoundError{Api: a.Name, GameVersion: game}
	}
	if err != nil {
		return "", err
	}

	var payload struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return "", err
	}
	// The filter matches anywhere in the version, reject loose matches.
	if !strings.HasPrefix(payload.Version, game+"-") {
		return "", &LatestNotFoundError{Api: a.Name, GameVersion: game}
	}
	return payload.Version, nil
}

// Versions lists every version the repository distributes, in maven
// metadata order.
func (a Api) Versions(ctx context.Context, client *http.Client) ([]string, error) {
	data, err := get(ctx, client, a.RepoURL+"/maven-metadata.xml")
	if err != nil {
		return nil, err
	}
	var metadata struct {
		Versions []string `xml:"versioning>versions>version"`
	}
	if err := xml.Unmarshal(data, &metadata); err != nil {
		return nil, &MavenMetadataMalformedError{URL: a.RepoURL + "/maven-metadata.xml"}
	}
	if len(metadata.Versions) == 0 {
		return nil, &MavenMetadataMalformedError{URL: a.RepoURL + "/maven-metadata.xml"}
	}
	return metadata.Versions, nil
}

// LatestFromMetadata picks the version with the highest loader build for a
// game version out of the repository listing. Loader builds that do not
// parse as semantic versions are skipped, which rules out the four-part
// builds of legacy games, those are promoted anyway.
func (a Api) LatestFromMetadata(ctx context.Context, client *http.Client, game string) (string, error) {
	versions, err := a.Versions(ctx, client)
	if err != nil {
		return "", err
	}

	prefix := game + "-"
	best := ""
	var bestLoader *semver.Version
	for _, version := range versions {
		if !strings.HasPrefix(version, prefix) {
			continue
		}
		loaderPart := version[len(prefix):]
		if dash := strings.IndexByte(loaderPart, '-'); dash != -1 {
			loaderPart = loaderPart[:dash]
		}
		loader, err := semver.NewVersion(loaderPart)
		if err != nil {
			continue
		}
		if bestLoader == nil || loader.GreaterThan(bestLoader) {
			best = version
			bestLoader = loader
		}
	}
	if best == "" {
		return "", &LatestNotFoundError{Api: a.Name, GameVersion: game}
	}
	return best, nil
}

// Old installers were not always published under the bare version, some
// games re-released them under suffixed versions.
var legacyInstallerSuffixes = map[string][]string{
	"1.11":   {"-1.11.x"},
	"1.10.2": {"-1.10.0"},
	"1.10":   {"-1.10.0"},
	"1.9.4":  {"-1.9.4"},
	"1.9":    {"-1.9.0", "-1.9"},
	"1.8.9":  {"-1.8.9"},
	"1.8.8":  {"-1.8.8"},
	"1.8":    {"-1.8"},
	"1.7.10": {"-1.7.10", "-1710ls", "-new"},
	"1.7.2":  {"-mc172"},
}

// InstallerURL returns the address of the installer artifact for one
// version candidate.
func (a Api) InstallerURL(version string) string {
	return a.RepoURL + "/" + version + "/forge-" + version + "-installer.jar"
}

// FetchInstaller downloads the installer of a version into dst, probing
// the legacy suffixed locations when the plain one does not exist. Each
// attempted candidate is reported through probe before the request.
func (a Api) FetchInstaller(ctx context.Context, client *http.Client, version string, game string, dst string, probe func(candidate string)) error {
	candidates := []string{version}
	for _, suffix := range legacyInstallerSuffixes[game] {
		candidates = append(candidates, version+suffix)
	}

	for _, candidate := range candidates {
		if probe != nil {
			probe(candidate)
		}
		err := download(ctx, client, a.InstallerURL(candidate), dst)
		if err == nil {
			return nil
		}
		var status *ownhttp.StatusError
		if errors.As(err, &status) && status.Status == http.StatusNotFound {
			continue
		}
		return err
	}
	return &InstallerNotFoundError{Version: version}
}

func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	res, err := request(ctx, client, url)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	return io.ReadAll(res.Body)
}

// download streams a response into dst, creating parent directories.
func download(ctx context.Context, client *http.Client, url string, dst string) error {
	res, err := request(ctx, client, url)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if err := os.MkdirAll(filepath.Dir(dst), os.ModePerm); err != nil {
		return err
	}
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, res.Body); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func request(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	res, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if res.StatusCode != http.StatusOK {
		res.Body.Close()
		return nil, &ownhttp.StatusError{URL: url, Status: res.StatusCode}
	}
	return res, nil
}
