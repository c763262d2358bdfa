// Package mojang talks to the Mojang version metadata endpoints.
package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/portablemc/portablemc/internals/ownhttp"
)

// VersionManifestURL lists every officially released version.
const VersionManifestURL = "https://piston-meta.mojang.com/mc/game/version_manifest_v2.json"

// ErrorNotFound gets returned when a version is not in the manifest
var ErrorNotFound = errors.New("version not found in manifest")

// Client fetches the official version manifest, with an optional local
// cache so offline launches and repeated lookups stay cheap.
type Client struct {
	// HTTP is the internal http client
	HTTP *http.Client
	// CacheFile persists the manifest between runs, empty disables caching
	CacheFile string

	manifest *VersionManifest
}

// New returns a manifest client on the default http client
func New() *Client {
	return &Client{
		HTTP: http.DefaultClient,
	}
}

// NewWithClient returns a manifest client using a custom http client
// supplied as a first parameter
func NewWithClient(client *http.Client) *Client {
	return &Client{
		HTTP: client,
	}
}

// VersionManifest is the version_manifest_v2.json document.
type VersionManifest struct {
	Latest struct {
		Release  string `json:"release"`
		Snapshot string `json:"snapshot"`
	} `json:"latest"`
	Versions []ManifestVersion `json:"versions"`
	// LastModified mirrors the response header, kept in the cache file so
	// the next run can revalidate with If-Modified-Since.
	LastModified string `json:"last_modified,omitempty"`
}

// ManifestVersion is one released version as listed by the manifest.
type ManifestVersion struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	URL             string `json:"url"`
	Time            string `json:"time,omitempty"`
	ReleaseTime     string `json:"releaseTime,omitempty"`
	Sha1            string `json:"sha1,omitempty"`
	ComplianceLevel int    `json:"complianceLevel,omitempty"`
}

// Manifest returns the version manifest, fetching it at most once per
// client. A cached copy is revalidated with If-Modified-Since and also
// serves as fallback when the network is down.
func (m *Client) Manifest(ctx context.Context) (*VersionManifest, error) {
	if m.manifest != nil {
		return m.manifest, nil
	}

	var cached *VersionManifest
	if m.CacheFile != "" {
		if data, err := os.ReadFile(m.CacheFile); err == nil {
			var manifest VersionManifest
			if err := json.Unmarshal(data, &manifest); err == nil {
				cached = &manifest
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, VersionManifestURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if cached != nil && cached.LastModified != "" {
		req.Header.Set("If-Modified-Since", cached.LastModified)
	}

	res, err := m.HTTP.Do(req)
	if err != nil {
		// offline with a cached manifest is fine
		if cached != nil {
			m.manifest = cached
			return cached, nil
		}
		return nil, err
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotModified && cached != nil:
		m.manifest = cached
		return cached, nil

	case res.StatusCode == http.StatusOK:
		var manifest VersionManifest
		if err := json.NewDecoder(res.Body).Decode(&manifest); err != nil {
			return nil, err
		}
		manifest.LastModified = res.Header.Get("Last-Modified")
		m.writeCache(&manifest)
		m.manifest = &manifest
		return m.manifest, nil
	}

	return nil, &ownhttp.StatusError{URL: VersionManifestURL, Status: res.StatusCode}
}

func (m *Client) writeCache(manifest *VersionManifest) {
	if m.CacheFile == "" {
		return
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		return
	}
	// best effort, a failed cache write never fails the launch
	if err := os.MkdirAll(filepath.Dir(m.CacheFile), os.ModePerm); err != nil {
		return
	}
	os.WriteFile(m.CacheFile, data, 0644)
}

// IsAlias returns true for the release and snapshot aliases.
func (m *Client) IsAlias(version string) bool {
	return version == "release" || version == "snapshot"
}

// FilterLatest resolves the release/snapshot aliases to the full version
// id. The second return tells whether the given id was an alias.
func (m *Client) FilterLatest(ctx context.Context, version string) (string, bool, error) {
	if !m.IsAlias(version) {
		return version, false, nil
	}

	manifest, err := m.Manifest(ctx)
	if err != nil {
		return version, true, err
	}
	switch version {
	case "release":
		return manifest.Latest.Release, true, nil
	case "snapshot":
		return manifest.Latest.Snapshot, true, nil
	}
	return version, true, nil
}

// Version finds a version in the manifest, resolving aliases first.
// Returns ErrorNotFound when the manifest does not list it.
func (m *Client) Version(ctx context.Context, version string) (*ManifestVersion, error) {
	id, _, err := m.FilterLatest(ctx, version)
	if err != nil {
		return nil, err
	}

	manifest, err := m.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	for i := range manifest.Versions {
		if manifest.Versions[i].ID == id {
			return &manifest.Versions[i], nil
		}
	}
	return nil, ErrorNotFound
}

// AllVersions returns every version the manifest lists, newest first.
func (m *Client) AllVersions(ctx context.Context) ([]ManifestVersion, error) {
	manifest, err := m.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return manifest.Versions, nil
}
