package minecraft

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrInvalidSpecifier is returned when a library specifier string can not be parsed.
var ErrInvalidSpecifier = errors.New("invalid library specifier")

// Specifier is a maven-style library specifier.
// Example: `org.lwjgl:lwjgl:3.3.1:natives-linux@jar`
type Specifier struct {
	Group    string
	Artifact string
	Version  string
	// Classifier is optional (empty when absent)
	Classifier string
	// Extension defaults to "jar" when not given with a `@` suffix
	Extension string
}

// NewSpecifier returns a specifier with the default jar extension.
func NewSpecifier(group string, artifact string, version string) Specifier {
	return Specifier{Group: group, Artifact: artifact, Version: version, Extension: "jar"}
}

// ParseSpecifier parses a `group:artifact:version[:classifier][@extension]` string.
func ParseSpecifier(s string) (Specifier, error) {
	ext := "jar"
	if at := strings.LastIndex(s, "@"); at != -1 {
		ext = s[at+1:]
		s = s[:at]
		if ext == "" {
			return Specifier{}, ErrInvalidSpecifier
		}
	}

	parts := strings.SplitN(s, ":", 4)
	if len(parts) < 3 {
		return Specifier{}, ErrInvalidSpecifier
	}

	spec := Specifier{
		Group:     parts[0],
		Artifact:  parts[1],
		Version:   parts[2],
		Extension: ext,
	}
	if len(parts) == 4 {
		spec.Classifier = parts[3]
	}
	return spec, nil
}

// MustSpecifier is like ParseSpecifier but panics on invalid input.
// Only use this for specifiers known at compile time.
func MustSpecifier(s string) Specifier {
	spec, err := ParseSpecifier(s)
	if err != nil {
		panic(err)
	}
	return spec
}

func (s Specifier) String() string {
	var b strings.Builder
	b.WriteString(s.Group)
	b.WriteByte(':')
	b.WriteString(s.Artifact)
	b.WriteByte(':')
	b.WriteString(s.Version)
	if s.Classifier != "" {
		b.WriteByte(':')
		b.WriteString(s.Classifier)
	}
	if ext := s.ext(); ext != "jar" {
		b.WriteByte('@')
		b.WriteString(ext)
	}
	return b.String()
}

// Path returns the maven repository path for this specifier.
// The separator is always a forward slash, usable for URLs and
// (on all supported platforms) file paths.
// Example: `com.foo:artifact:0.1.0@zip` gives `com/foo/artifact/0.1.0/artifact-0.1.0.zip`.
func (s Specifier) Path() string {
	fileName := s.Artifact + "-" + s.Version
	if s.Classifier != "" {
		fileName += "-" + s.Classifier
	}
	fileName += "." + s.ext()

	parts := append(strings.Split(s.Group, "."), s.Artifact, s.Version, fileName)
	return strings.Join(parts, "/")
}

// Key identifies the library without its version. Two specifiers with the
// same key are considered the same library for classpath deduplication.
func (s Specifier) Key() string {
	key := s.Group + ":" + s.Artifact
	if s.Classifier != "" {
		key += ":" + s.Classifier
	}
	return key
}

func (s Specifier) ext() string {
	if s.Extension == "" {
		return "jar"
	}
	return s.Extension
}

// UnmarshalJSON parses the specifier from a JSON string,
// the usual form in version metadata.
func (s *Specifier) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseSpecifier(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalJSON renders the specifier back to its string form.
func (s Specifier) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
