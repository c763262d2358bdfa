package minecraft

import "testing"

func TestRulesAllows(t *testing.T) {
	linux64 := Platform{OS: "linux", OSVersion: "6.1.0", Arch: "x86_64"}
	win10 := Platform{OS: "windows", OSVersion: "10.0.19045", Arch: "x86_64"}

	type args struct {
		plat     Platform
		features map[string]bool
	}
	tests := []struct {
		name  string
		rules Rules
		args  args
		want  bool
	}{
		{
			name:  "no rules",
			rules: Rules{},
			args:  args{plat: linux64},
			want:  true,
		},
		{
			name:  "allow empty",
			rules: Rules{{Action: "allow"}},
			args:  args{plat: linux64},
			want:  true,
		},
		{
			name:  "allow matching os",
			rules: Rules{{Action: "allow", OS: RuleOS{Name: "linux"}}},
			args:  args{plat: linux64},
			want:  true,
		},
		{
			name:  "allow other os",
			rules: Rules{{Action: "allow", OS: RuleOS{Name: "osx"}}},
			args:  args{plat: linux64},
			want:  false,
		},
		{
			name: "allow all except osx",
			rules: Rules{
				{Action: "allow"},
				{Action: "disallow", OS: RuleOS{Name: "osx"}},
			},
			args: args{plat: linux64},
			want: true,
		},
		{
			name: "disallow matching last wins",
			rules: Rules{
				{Action: "allow"},
				{Action: "disallow", OS: RuleOS{Name: "linux"}},
			},
			args: args{plat: linux64},
			want: false,
		},
		{
			name:  "allow arch regex",
			rules: Rules{{Action: "allow", OS: RuleOS{Arch: "x86"}}},
			args:  args{plat: Platform{OS: "windows", Arch: "x86"}},
			want:  true,
		},
		{
			name:  "allow os version regex",
			rules: Rules{{Action: "allow", OS: RuleOS{Name: "windows", Version: `^10\.`}}},
			args:  args{plat: win10},
			want:  true,
		},
		{
			name:  "version regex no match",
			rules: Rules{{Action: "allow", OS: RuleOS{Name: "windows", Version: `^10\.`}}},
			args:  args{plat: Platform{OS: "windows", OSVersion: "6.1.7601", Arch: "x86_64"}},
			want:  false,
		},
		{
			name:  "feature required and enabled",
			rules: Rules{{Action: "allow", Features: map[string]bool{"is_demo_user": true}}},
			args:  args{plat: linux64, features: map[string]bool{"is_demo_user": true}},
			want:  true,
		},
		{
			name:  "feature required and missing",
			rules: Rules{{Action: "allow", Features: map[string]bool{"is_demo_user": true}}},
			args:  args{plat: linux64},
			want:  false,
		},
		{
			name:  "feature expected off",
			rules: Rules{{Action: "allow", Features: map[string]bool{"is_demo_user": false}}},
			args:  args{plat: linux64},
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rules.Allows(tt.args.plat, tt.args.features, nil); got != tt.want {
				t.Errorf("Rules.Allows() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRulesAllowsCollectsFeatures(t *testing.T) {
	rules := Rules{{
		Action:   "allow",
		Features: map[string]bool{"has_custom_resolution": true},
	}}

	seen := map[string]bool{}
	rules.Allows(Platform{OS: "linux", Arch: "x86_64"}, map[string]bool{"has_custom_resolution": true}, seen)

	if !seen["has_custom_resolution"] {
		t.Error("checked feature was not collected")
	}
}

func TestPlatformFor(t *testing.T) {
	tests := []struct {
		name   string
		goos   string
		goarch string
		want   Platform
	}{
		{name: "linux amd64", goos: "linux", goarch: "amd64", want: Platform{OS: "linux", Arch: "x86_64"}},
		{name: "darwin arm64", goos: "darwin", goarch: "arm64", want: Platform{OS: "osx", Arch: "arm64"}},
		{name: "windows 386", goos: "windows", goarch: "386", want: Platform{OS: "windows", Arch: "x86"}},
		{name: "linux arm", goos: "linux", goarch: "arm", want: Platform{OS: "linux", Arch: "arm32"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := PlatformFor(tt.goos, tt.goarch); got != tt.want {
				t.Errorf("PlatformFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPlatformJvmOS(t *testing.T) {
	tests := []struct {
		name string
		plat Platform
		want string
	}{
		{name: "linux x86_64", plat: Platform{OS: "linux", Arch: "x86_64"}, want: "linux"},
		{name: "linux x86", plat: Platform{OS: "linux", Arch: "x86"}, want: "linux-i386"},
		{name: "mac intel", plat: Platform{OS: "osx", Arch: "x86_64"}, want: "mac-os"},
		{name: "mac arm", plat: Platform{OS: "osx", Arch: "arm64"}, want: "mac-os-arm64"},
		{name: "windows x86_64", plat: Platform{OS: "windows", Arch: "x86_64"}, want: "windows-x64"},
		{name: "windows arm", plat: Platform{OS: "windows", Arch: "arm64"}, want: "windows-arm64"},
		{name: "unsupported", plat: Platform{OS: "linux", Arch: "arm32"}, want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.plat.JvmOS(); got != tt.want {
				t.Errorf("Platform.JvmOS() = %v, want %v", got, tt.want)
			}
		})
	}
}
