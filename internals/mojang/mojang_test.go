package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
)

const manifestBody = `{
	"latest": {"release": "1.20.1", "snapshot": "23w31a"},
	"versions": [
		{"id": "23w31a", "type": "snapshot", "url": "https://piston-meta.mojang.com/v1/packages/aaa/23w31a.json", "sha1": "aaa"},
		{"id": "1.20.1", "type": "release", "url": "https://piston-meta.mojang.com/v1/packages/bbb/1.20.1.json", "sha1": "bbb"},
		{"id": "1.19.4", "type": "release", "url": "https://piston-meta.mojang.com/v1/packages/ccc/1.19.4.json", "sha1": "ccc"}
	]
}`

// testClient rewires a client so VersionManifestURL lookups hit the test
// server instead of Mojang.
func testClient(server *httptest.Server, cacheFile string) *Client {
	client := NewWithClient(&http.Client{
		Transport: rewriteTransport{server},
	})
	client.CacheFile = cacheFile
	return client
}

type rewriteTransport struct {
	server *httptest.Server
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	target, _ := http.NewRequest(req.Method, t.server.URL, nil)
	target.Header = req.Header
	return http.DefaultTransport.RoundTrip(target)
}

func TestManifestFetchAndCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Last-Modified", "Mon, 24 Jul 2023 12:00:00 GMT")
		w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	cacheFile := filepath.Join(t.TempDir(), "portablemc_version_manifest.json")
	client := testClient(server, cacheFile)

	manifest, err := client.Manifest(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if manifest.Latest.Release != "1.20.1" {
		t.Errorf("latest release = %v", manifest.Latest.Release)
	}

	data, err := os.ReadFile(cacheFile)
	if err != nil {
		t.Fatalf("cache file not written: %v", err)
	}
	var cached VersionManifest
	if err := json.Unmarshal(data, &cached); err != nil {
		t.Fatal(err)
	}
	if cached.LastModified != "Mon, 24 Jul 2023 12:00:00 GMT" {
		t.Errorf("cached last_modified = %q", cached.LastModified)
	}
}

func TestManifestRevalidates(t *testing.T) {
	var gotModifiedSince atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotModifiedSince.Store(r.Header.Get("If-Modified-Since"))
		w.WriteHeader(http.StatusNotModified)
	}))
	defer server.Close()

	cacheFile := filepath.Join(t.TempDir(), "portablemc_version_manifest.json")
	cached := VersionManifest{LastModified: "Mon, 24 Jul 2023 12:00:00 GMT"}
	cached.Latest.Release = "1.20.1"
	data, _ := json.Marshal(cached)
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		t.Fatal(err)
	}

	client := testClient(server, cacheFile)
	manifest, err := client.Manifest(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if got := gotModifiedSince.Load(); got != "Mon, 24 Jul 2023 12:00:00 GMT" {
		t.Errorf("If-Modified-Since = %q", got)
	}
	if manifest.Latest.Release != "1.20.1" {
		t.Error("cached manifest not used on 304")
	}
}

func TestManifestOfflineFallback(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse all connections

	cacheFile := filepath.Join(t.TempDir(), "portablemc_version_manifest.json")
	cached := VersionManifest{}
	cached.Latest.Release = "1.20.1"
	data, _ := json.Marshal(cached)
	if err := os.WriteFile(cacheFile, data, 0644); err != nil {
		t.Fatal(err)
	}

	client := testClient(server, cacheFile)
	manifest, err := client.Manifest(context.Background())
	if err != nil {
		t.Fatalf("offline fallback failed: %v", err)
	}
	if manifest.Latest.Release != "1.20.1" {
		t.Error("cached manifest not used offline")
	}
}

func TestFilterLatest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	client := testClient(server, "")

	tests := []struct {
		name      string
		version   string
		want      string
		wantAlias bool
	}{
		{name: "release alias", version: "release", want: "1.20.1", wantAlias: true},
		{name: "snapshot alias", version: "snapshot", want: "23w31a", wantAlias: true},
		{name: "plain id", version: "1.19.4", want: "1.19.4", wantAlias: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, alias, err := client.FilterLatest(context.Background(), tt.version)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want || alias != tt.wantAlias {
				t.Errorf("FilterLatest() = %v, %v, want %v, %v", got, alias, tt.want, tt.wantAlias)
			}
		})
	}
}

func TestVersionNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	client := testClient(server, "")

	if _, err := client.Version(context.Background(), "1.20.1"); err != nil {
		t.Errorf("known version errored: %v", err)
	}

	_, err := client.Version(context.Background(), "not-a-version")
	if !errors.Is(err, ErrorNotFound) {
		t.Errorf("err = %v, want ErrorNotFound", err)
	}
}
