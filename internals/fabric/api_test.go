package fabric

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/portablemc/portablemc/internals/ownhttp"
)

func TestApiGameVersions(t *testing.T) {
	ms := newMetaServer(t)

	versions, err := ms.api().GameVersions(context.Background(), nil)
	if err != nil {
		t.Fatalf("GameVersions() error = %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len = %d, want 3", len(versions))
	}
	if versions[0].Version != "23w31a" || versions[0].Stable {
		t.Errorf("versions[0] = %+v", versions[0])
	}
	if versions[1].Version != "1.20.1" || !versions[1].Stable {
		t.Errorf("versions[1] = %+v", versions[1])
	}
}

func TestApiLoaderVersions(t *testing.T) {
	ms := newMetaServer(t)

	versions, err := ms.api().LoaderVersions(context.Background(), nil)
	if err != nil {
		t.Fatalf("LoaderVersions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len = %d, want 2", len(versions))
	}
	if versions[1].Version != "0.14.21" || !versions[1].IsStable() {
		t.Errorf("versions[1] = %+v", versions[1])
	}
	if versions[1].Maven != "net.fabricmc:fabric-loader:0.14.21" {
		t.Errorf("Maven = %q", versions[1].Maven)
	}
}

func TestApiGameLoaderVersions(t *testing.T) {
	ms := newMetaServer(t)

	versions, err := ms.api().GameLoaderVersions(context.Background(), nil, "1.20.1")
	if err != nil {
		t.Fatalf("GameLoaderVersions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("len = %d, want 2", len(versions))
	}
	if versions[0].Version != "0.15.0-beta.2" || versions[0].IsStable() {
		t.Errorf("versions[0] = %+v", versions[0])
	}
	if versions[1].Version != "0.14.21" || !versions[1].IsStable() {
		t.Errorf("versions[1] = %+v", versions[1])
	}
}

func TestApiProfileStatus(t *testing.T) {
	ms := newMetaServer(t)

	_, err := ms.api().Profile(context.Background(), nil, "1.20.1", "9.9.9")
	var status *ownhttp.StatusError
	if !errors.As(err, &status) {
		t.Fatalf("Profile() error = %v, want StatusError", err)
	}
	if status.Status != http.StatusBadRequest {
		t.Errorf("Status = %d, want %d", status.Status, http.StatusBadRequest)
	}
}

func TestLoaderVersionIsStable(t *testing.T) {
	boolPtr := func(v bool) *bool { return &v }

	tests := []struct {
		version string
		stable  *bool
		want    bool
	}{
		{"0.14.21", boolPtr(true), true},
		{"0.15.0-beta.2", boolPtr(false), false},
		{"0.20.2", nil, true},
		{"0.20.0-beta.11", nil, false},
		{"0.21.0-pre.1", nil, false},
	}
	for _, test := range tests {
		v := LoaderVersion{Version: test.version, Stable: test.stable}
		if got := v.IsStable(); got != test.want {
			t.Errorf("IsStable(%s) = %v, want %v", test.version, got, test.want)
		}
	}
}
