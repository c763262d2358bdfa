package minecraft

import (
	"regexp"
	"runtime"
	"sync"
)

// Platform describes the host the metadata rules are checked against.
type Platform struct {
	// OS name as it appears in version metadata: linux, osx or windows
	OS string
	// OSVersion is matched by the (rare) version regex rules
	OSVersion string
	// Arch as it appears in version metadata: x86, x86_64, arm32 or arm64
	Arch string
}

// CurrentPlatform returns the platform of the running process,
// translated to the names used by version metadata.
func CurrentPlatform() Platform {
	return PlatformFor(runtime.GOOS, runtime.GOARCH)
}

// PlatformFor translates a GOOS/GOARCH pair to metadata naming.
func PlatformFor(goos string, goarch string) Platform {
	plat := Platform{OS: goos, Arch: goarch}

	switch goos {
	case "darwin":
		plat.OS = "osx"
	}

	switch goarch {
	case "amd64":
		plat.Arch = "x86_64"
	case "386":
		plat.Arch = "x86"
	case "arm":
		plat.Arch = "arm32"
	}
	// note: arm64 is already named like metadata expects

	return plat
}

// Rule gates a library or argument on the host platform and on
// launcher-provided feature flags.
type Rule struct {
	Action   string          `json:"action"`
	OS       RuleOS          `json:"os,omitempty"`
	Features map[string]bool `json:"features,omitempty"`
}

// RuleOS constrains a rule to hosts matching it.
type RuleOS struct {
	Name string `json:"name,omitempty"`
	// Version is a regex matched against the OS version
	Version string `json:"version,omitempty"`
	// Arch is a regex matched against the platform arch
	Arch string `json:"arch,omitempty"`
}

// Rules is an ordered rule list. An empty list allows its subject.
type Rules []Rule

// Allows reports whether the rules enable their subject for the given
// platform and enabled feature set. With a non-empty list the default is
// disallow and the last matching rule wins.
//
// When allFeatures is not nil, the names of feature flags checked by
// matching rules are collected into it. The caller can use this to tell
// whether the metadata knows a feature at all, like custom resolutions
// on old versions.
func (r Rules) Allows(plat Platform, features map[string]bool, allFeatures map[string]bool) bool {
	if len(r) == 0 {
		return true
	}

	allowed := false
	for _, rule := range r {
		match, ok := rule.match(plat, features, allFeatures)
		if !ok {
			continue
		}
		allowed = match
	}
	return allowed
}

// match returns (action == allow, rule applies to this platform/features).
// Feature names are collected as soon as the platform part matched, even
// when the comparison fails, so callers learn the metadata checked them.
func (r Rule) match(plat Platform, features map[string]bool, allFeatures map[string]bool) (bool, bool) {
	if !r.OS.matches(plat) {
		return false, false
	}

	ok := true
	for name, expected := range r.Features {
		if allFeatures != nil {
			allFeatures[name] = true
		}
		if features[name] != expected {
			ok = false
		}
	}
	if !ok {
		return false, false
	}

	return r.Action == "allow", true
}

func (o RuleOS) matches(plat Platform) bool {
	if o.Name != "" && o.Name != plat.OS {
		return false
	}
	if o.Arch != "" && !regexSearch(o.Arch, plat.Arch) {
		return false
	}
	if o.Version != "" && !regexSearch(o.Version, plat.OSVersion) {
		return false
	}
	return true
}

var (
	regexCacheMu sync.Mutex
	regexCache   = map[string]*regexp.Regexp{}
)

// regexSearch matches pattern anywhere in value. Compiled patterns are
// cached since metadata repeats the same handful over and over.
// Invalid patterns never match.
func regexSearch(pattern string, value string) bool {
	regexCacheMu.Lock()
	re, ok := regexCache[pattern]
	if !ok {
		re, _ = regexp.Compile(pattern)
		regexCache[pattern] = re
	}
	regexCacheMu.Unlock()

	if re == nil {
		return false
	}
	return re.MatchString(value)
}
