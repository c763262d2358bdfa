package minecraft_test

import (
	"fmt"
	"testing"

	"github.com/portablemc/portablemc/internals/minecraft"
)

func ExampleHierarchy_Flatten() {
	parent := &minecraft.VersionDescriptor{
		ID:        "1.20.1",
		MainClass: "net.minecraft.client.main.Main",
		Libraries: []minecraft.Library{
			{Name: minecraft.MustSpecifier("com.mojang:authlib:4.0.43")},
		},
	}
	child := &minecraft.VersionDescriptor{
		ID:           "fabric-1.20.1-0.14.21",
		InheritsFrom: "1.20.1",
		MainClass:    "net.fabricmc.loader.impl.launch.knot.KnotClient",
		Libraries: []minecraft.Library{
			{Name: minecraft.MustSpecifier("net.fabricmc:fabric-loader:0.14.21")},
		},
	}

	flat := minecraft.Hierarchy{child, parent}.Flatten()

	fmt.Println("ID:", flat.ID)
	fmt.Println("MainClass:", flat.MainClass)
	fmt.Println("Libraries:")
	for _, lib := range flat.Libraries {
		fmt.Println(" - ", lib.Name)
	}
	// Output:
	// ID: fabric-1.20.1-0.14.21
	// MainClass: net.fabricmc.loader.impl.launch.knot.KnotClient
	// Libraries:
	//  -  com.mojang:authlib:4.0.43
	//  -  net.fabricmc:fabric-loader:0.14.21
}

func TestFlattenScalars(t *testing.T) {
	parent := &minecraft.VersionDescriptor{
		ID:        "1.20.1",
		Type:      "release",
		MainClass: "net.minecraft.client.main.Main",
		Assets:    "5",
		AssetIndex: &minecraft.AssetIndexRef{
			ID: "5", URL: "https://piston-meta.mojang.com/v1/packages/abc/5.json",
		},
		Downloads: minecraft.ClientDownloads{
			Client: &minecraft.DownloadInfo{URL: "https://example.com/client.jar"},
		},
		JavaVersion: &minecraft.JavaVersionRef{Component: "java-runtime-gamma", MajorVersion: 17},
	}
	child := &minecraft.VersionDescriptor{
		ID:           "forge-1.20.1-47.1.0",
		InheritsFrom: "1.20.1",
		MainClass:    "cpw.mods.bootstraplauncher.BootstrapLauncher",
	}

	flat := minecraft.Hierarchy{child, parent}.Flatten()

	if flat.ID != "forge-1.20.1-47.1.0" {
		t.Errorf("ID = %v", flat.ID)
	}
	if flat.MainClass != "cpw.mods.bootstraplauncher.BootstrapLauncher" {
		t.Errorf("MainClass = %v, child must win", flat.MainClass)
	}
	if flat.Type != "release" {
		t.Errorf("Type = %v, parent value must fill the gap", flat.Type)
	}
	if flat.Assets != "5" {
		t.Errorf("Assets = %v", flat.Assets)
	}
	if flat.AssetIndex == nil || flat.AssetIndex.ID != "5" {
		t.Errorf("AssetIndex = %v", flat.AssetIndex)
	}
	if flat.Downloads.Client == nil {
		t.Error("Downloads.Client lost in flatten")
	}
	if flat.JavaVersion == nil || flat.JavaVersion.MajorVersion != 17 {
		t.Errorf("JavaVersion = %v", flat.JavaVersion)
	}
}

func TestFlattenArgumentsOrder(t *testing.T) {
	parent := &minecraft.VersionDescriptor{
		ID: "1.20.1",
		Arguments: minecraft.Arguments{
			Game: []minecraft.Argument{
				{Value: minecraft.StringList{"--username"}},
				{Value: minecraft.StringList{"${auth_player_name}"}},
			},
		},
	}
	child := &minecraft.VersionDescriptor{
		ID: "fabric-1.20.1-0.14.21",
		Arguments: minecraft.Arguments{
			Game: []minecraft.Argument{
				{Value: minecraft.StringList{"--fabric"}},
			},
		},
	}

	flat := minecraft.Hierarchy{child, parent}.Flatten()

	var got []string
	for _, arg := range flat.Arguments.Game {
		got = append(got, arg.Value...)
	}
	want := []string{"--username", "${auth_player_name}", "--fabric"}
	if len(got) != len(want) {
		t.Fatalf("game args = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("game args = %v, want %v (ancestor args must come first)", got, want)
		}
	}
}

func TestFlattenLibraryDedup(t *testing.T) {
	parent := &minecraft.VersionDescriptor{
		ID: "1.20.1",
		Libraries: []minecraft.Library{
			{Name: minecraft.MustSpecifier("org.ow2.asm:asm:9.3")},
			{Name: minecraft.MustSpecifier("com.mojang:authlib:4.0.43")},
		},
	}
	child := &minecraft.VersionDescriptor{
		ID: "fabric-1.20.1-0.14.21",
		Libraries: []minecraft.Library{
			{Name: minecraft.MustSpecifier("org.ow2.asm:asm:9.7")},
		},
	}

	flat := minecraft.Hierarchy{child, parent}.Flatten()

	if len(flat.Libraries) != 2 {
		t.Fatalf("libraries = %d, want 2", len(flat.Libraries))
	}
	if flat.Libraries[0].Name.Version != "9.7" {
		t.Errorf("asm version = %v, youngest version must win", flat.Libraries[0].Name.Version)
	}
	if flat.Libraries[0].Name.Artifact != "asm" {
		t.Errorf("dedup moved the library, got %v first", flat.Libraries[0].Name)
	}
}

func TestFlattenKeepsNativeVariant(t *testing.T) {
	version := &minecraft.VersionDescriptor{
		ID: "1.16.5",
		Libraries: []minecraft.Library{
			{Name: minecraft.MustSpecifier("org.lwjgl:lwjgl:3.2.2")},
			{
				Name:    minecraft.MustSpecifier("org.lwjgl:lwjgl:3.2.2"),
				Natives: map[string]string{"linux": "natives-linux"},
			},
		},
	}

	flat := minecraft.Hierarchy{version}.Flatten()

	if len(flat.Libraries) != 2 {
		t.Fatalf("libraries = %d, want 2 (classpath artifact and native archive)", len(flat.Libraries))
	}
}
