package forge

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/portablemc/portablemc/internals/installer"
	"github.com/portablemc/portablemc/internals/minecraft"
)

func buildJar(t *testing.T, entries map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range entries {
		f, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := f.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func writeJar(t *testing.T, path string, entries map[string][]byte) []byte {
	t.Helper()
	data := buildJar(t, entries)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return data
}

func TestJarFileEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jar")
	writeJar(t, path, map[string][]byte{
		"install_profile.json": []byte(`{}`),
		"maven/a/b/1/b-1.jar":  []byte("lib"),
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\r\n"),
	})
	jar := jarFile{path}

	data, found, err := jar.entry("maven/a/b/1/b-1.jar")
	if err != nil || !found {
		t.Fatalf("entry() = %v, found %v", err, found)
	}
	if string(data) != "lib" {
		t.Errorf("entry content = %q", data)
	}

	// Entries are addressed by their full path, not their base name.
	if _, found, err := jar.entry("b-1.jar"); err != nil || found {
		t.Errorf("entry(base name) found = %v, err = %v", found, err)
	}

	if _, found, err := jar.entry("missing.txt"); err != nil || found {
		t.Errorf("entry(missing) found = %v, err = %v", found, err)
	}
}

func TestJarFileExtract(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.jar")
	writeJar(t, path, map[string][]byte{"data/client.lzma": []byte("patch")})
	jar := jarFile{path}

	dst := filepath.Join(t.TempDir(), "deep", "nested", "client.lzma")
	if err := jar.extract("data/client.lzma", dst); err != nil {
		t.Fatalf("extract() error = %v", err)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "patch" {
		t.Errorf("extracted content = %q", data)
	}

	err = jar.extract("missing.txt", dst)
	var notFound *InstallerFileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("extract(missing) error = %v, want InstallerFileNotFoundError", err)
	}
	if notFound.Entry != "missing.txt" {
		t.Errorf("Entry = %q", notFound.Entry)
	}
}

func TestJarFileMainClass(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "with.jar")
	writeJar(t, path, map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\r\nMain-Class: net.test.Processor\r\nBuilt-By: tests\r\n"),
	})
	mainClass, err := jarFile{path}.mainClass()
	if err != nil {
		t.Fatalf("mainClass() error = %v", err)
	}
	if mainClass != "net.test.Processor" {
		t.Errorf("mainClass() = %q", mainClass)
	}

	path = filepath.Join(dir, "without.jar")
	writeJar(t, path, map[string][]byte{
		"META-INF/MANIFEST.MF": []byte("Manifest-Version: 1.0\r\n"),
	})
	if mainClass, err := (jarFile{path}).mainClass(); err != nil || mainClass != "" {
		t.Errorf("mainClass() = %q, %v, want empty", mainClass, err)
	}

	path = filepath.Join(dir, "bare.jar")
	writeJar(t, path, map[string][]byte{"a.txt": []byte("x")})
	if mainClass, err := (jarFile{path}).mainClass(); err != nil || mainClass != "" {
		t.Errorf("mainClass() without manifest = %q, %v, want empty", mainClass, err)
	}
}

func TestReadProfile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "modern.jar")
	writeJar(t, path, map[string][]byte{
		"install_profile.json": []byte(`{"minecraft": "1.20.1", "json": "/version.json"}`),
	})
	profile, err := readProfile(jarFile{path}, "1.20.1-47.2.0")
	if err != nil {
		t.Fatalf("readProfile() error = %v", err)
	}
	if profile.Json != "/version.json" || profile.Minecraft != "1.20.1" {
		t.Errorf("modern profile = %+v", profile)
	}

	path = filepath.Join(dir, "legacy.jar")
	writeJar(t, path, map[string][]byte{
		"install_profile.json": []byte(`{
			"install": {"path": "net.test:forge:1.7.10", "filePath": "u.jar", "minecraft": "1.7.10"},
			"versionInfo": {"id": "x"}
		}`),
	})
	profile, err = readProfile(jarFile{path}, "1.7.10-10.13.4.1614")
	if err != nil {
		t.Fatalf("readProfile() error = %v", err)
	}
	if profile.Json != "" || profile.Install == nil || profile.Install.Minecraft != "1.7.10" {
		t.Errorf("legacy profile = %+v", profile)
	}

	path = filepath.Join(dir, "empty.jar")
	writeJar(t, path, map[string][]byte{"other.txt": []byte("x")})
	_, err = readProfile(jarFile{path}, "1.20.1-47.2.0")
	var notFound *InstallProfileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("readProfile(no profile) error = %v, want InstallProfileNotFoundError", err)
	}

	path = filepath.Join(dir, "broken.jar")
	writeJar(t, path, map[string][]byte{"install_profile.json": []byte(`{broken`)})
	_, err = readProfile(jarFile{path}, "1.20.1-47.2.0")
	var incoherent *InstallProfileIncoherentError
	if !errors.As(err, &incoherent) {
		t.Fatalf("readProfile(broken) error = %v, want InstallProfileIncoherentError", err)
	}
}

func TestResolveArg(t *testing.T) {
	inst := &Installer{Mojang: installer.New(installer.NewContext(t.TempDir(), ""), "")}
	libPath := absPath(inst.Mojang.Context.LibraryFile(minecraft.MustSpecifier("test:lib:1.0")))

	data := map[string]string{
		"VAR": "value",
		"REF": "[test:lib:1.0]",
	}

	tests := []struct {
		arg  string
		want string
	}{
		{"plain", "plain"},
		{"{VAR}", "value"},
		{"--out={VAR}/x", "--out=value/x"},
		{"{MISSING}", "{MISSING}"},
		{"'{VAR}'", "value"},
		{"[test:lib:1.0]", libPath},
		{"{REF}", libPath},
	}
	for _, test := range tests {
		got, err := inst.resolveArg(test.arg, data)
		if err != nil {
			t.Errorf("resolveArg(%q) error = %v", test.arg, err)
			continue
		}
		if got != test.want {
			t.Errorf("resolveArg(%q) = %q, want %q", test.arg, got, test.want)
		}
	}

	_, err := inst.resolveArg("[not a spec]", data)
	var incoherent *InstallProfileIncoherentError
	if !errors.As(err, &incoherent) {
		t.Errorf("resolveArg(bad spec) error = %v, want InstallProfileIncoherentError", err)
	}
}

func TestExpandVariables(t *testing.T) {
	vars := map[string]string{"A": "1", "B": "2", "EMPTY": ""}

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"no vars", "no vars"},
		{"{A}", "1"},
		{"{A}{B}", "12"},
		{"x{A}y{B}z", "x1y2z"},
		{"{EMPTY}", ""},
		{"{unclosed", "{unclosed"},
		{"{X} stays", "{X} stays"},
	}
	for _, test := range tests {
		if got := expandVariables(test.in, vars); got != test.want {
			t.Errorf("expandVariables(%q) = %q, want %q", test.in, got, test.want)
		}
	}
}

func TestTaskName(t *testing.T) {
	proc := processor{
		Jar:  minecraft.MustSpecifier("net.minecraftforge:binarypatcher:1.1.1"),
		Args: []string{"--task", "PATCH", "--input", "x"},
	}
	if got := taskName(proc); got != "patch" {
		t.Errorf("taskName(--task) = %q, want patch", got)
	}

	proc.Args = []string{"--input", "x"}
	if got := taskName(proc); got != "binarypatcher" {
		t.Errorf("taskName(artifact) = %q, want binarypatcher", got)
	}
}

func TestWriteDescriptor(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "versions", "forge-1.20.1-47.2.0", "forge-1.20.1-47.2.0.json")
	descriptor := map[string]any{"id": "other", "mainClass": "net.Main"}

	if err := writeDescriptor(dst, descriptor, "forge-1.20.1-47.2.0"); err != nil {
		t.Fatalf("writeDescriptor() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	var written map[string]any
	if err := json.Unmarshal(data, &written); err != nil {
		t.Fatal(err)
	}
	if written["id"] != "forge-1.20.1-47.2.0" {
		t.Errorf("written id = %v", written["id"])
	}
	if _, err := os.Stat(dst + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind")
	}
}

func TestInstallLegacyRewrites(t *testing.T) {
	inst := &Installer{Mojang: installer.New(installer.NewContext(t.TempDir(), ""), "")}

	jarPath := filepath.Join(t.TempDir(), "installer.jar")
	writeJar(t, jarPath, map[string][]byte{"forge-universal.jar": []byte("universal")})

	profile := &installProfile{
		Install: &legacyInstall{
			Path:      minecraft.MustSpecifier("net.test:forge:1.7.10-10.13.4.1614"),
			FilePath:  "forge-universal.jar",
			Minecraft: "1.7.10",
		},
		VersionInfo: map[string]any{
			"id": "ignored",
			"libraries": []any{
				map[string]any{"name": "a:b:1", "serverreq": true, "clientreq": false, "checksums": []any{"c"}},
				map[string]any{"name": "c:d:2", "url": "https://custom.example/"},
			},
		},
	}

	id := "forge-1.7.10-10.13.4.1614"
	dst := inst.Mojang.Context.VersionFile(id)
	if err := inst.installLegacy(jarFile{jarPath}, profile, id, dst); err != nil {
		t.Fatalf("installLegacy() error = %v", err)
	}

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	var written map[string]any
	if err := json.Unmarshal(data, &written); err != nil {
		t.Fatal(err)
	}
	if written["id"] != id {
		t.Errorf("id = %v", written["id"])
	}
	if written["inheritsFrom"] != "1.7.10" {
		t.Errorf("inheritsFrom = %v", written["inheritsFrom"])
	}

	libs := written["libraries"].([]any)
	first := libs[0].(map[string]any)
	for _, key := range []string{"serverreq", "clientreq", "checksums"} {
		if _, ok := first[key]; ok {
			t.Errorf("library key %s not removed", key)
		}
	}
	if first["url"] != minecraft.LibrariesURL {
		t.Errorf("defaulted url = %v", first["url"])
	}
	second := libs[1].(map[string]any)
	if second["url"] != "https://custom.example/" {
		t.Errorf("custom url = %v", second["url"])
	}

	universal, err := os.ReadFile(inst.Mojang.Context.LibraryFile(minecraft.MustSpecifier("net.test:forge:1.7.10-10.13.4.1614")))
	if err != nil {
		t.Fatal(err)
	}
	if string(universal) != "universal" {
		t.Errorf("universal jar content = %q", universal)
	}
}

func TestInstallLegacyIncoherent(t *testing.T) {
	inst := &Installer{Mojang: installer.New(installer.NewContext(t.TempDir(), ""), "")}
	jarPath := filepath.Join(t.TempDir(), "installer.jar")
	writeJar(t, jarPath, map[string][]byte{"x.txt": []byte("x")})

	err := inst.installLegacy(jarFile{jarPath}, &installProfile{}, "forge-x", filepath.Join(t.TempDir(), "x.json"))
	var incoherent *InstallProfileIncoherentError
	if !errors.As(err, &incoherent) {
		t.Fatalf("installLegacy() error = %v, want InstallProfileIncoherentError", err)
	}
}
