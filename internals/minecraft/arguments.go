package minecraft

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrMalformedArgument is returned when an argument entry is neither a
// plain string nor a {rules, value} object.
var ErrMalformedArgument = errors.New("malformed argument: expected string or {rules, value} object")

// Arguments holds the two argument lists of modern version metadata (1.13+).
type Arguments struct {
	Game []Argument `json:"game,omitempty"`
	JVM  []Argument `json:"jvm,omitempty"`
}

// Empty is true when the metadata defines no modern arguments at all,
// which means the legacy minecraftArguments string is authoritative.
func (a Arguments) Empty() bool {
	return len(a.Game) == 0 && len(a.JVM) == 0
}

// Argument is one entry of a modern argument list. Plain strings have no
// rules, conditional entries carry the rules that gate their values.
type Argument struct {
	Rules Rules
	Value StringList
}

// UnmarshalJSON accepts the two argument forms of version metadata:
// a bare string or a {rules, value} object. Anything else is rejected.
func (a *Argument) UnmarshalJSON(data []byte) error {
	data = trimSpaceJSON(data)
	if len(data) == 0 {
		return ErrMalformedArgument
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Argument{Value: StringList{s}}
		return nil
	case '{':
		var obj struct {
			Rules Rules      `json:"rules"`
			Value StringList `json:"value"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		*a = Argument{Rules: obj.Rules, Value: obj.Value}
		return nil
	}
	return ErrMalformedArgument
}

// MarshalJSON renders plain arguments back as bare strings.
func (a Argument) MarshalJSON() ([]byte, error) {
	if len(a.Rules) == 0 && len(a.Value) == 1 {
		return json.Marshal(a.Value[0])
	}
	return json.Marshal(struct {
		Rules Rules      `json:"rules,omitempty"`
		Value StringList `json:"value"`
	}{a.Rules, a.Value})
}

// StringList unmarshals from a string or a []string. Version metadata
// uses both forms for argument values interchangeably.
type StringList []string

func (w StringList) String() string {
	return strings.Join(w, " ")
}

func (w *StringList) UnmarshalJSON(data []byte) error {
	data = trimSpaceJSON(data)
	if len(data) > 0 && data[0] == '[' {
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*w = list
		return nil
	}

	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*w = StringList{single}
	return nil
}

func trimSpaceJSON(data []byte) []byte {
	for len(data) > 0 {
		switch data[0] {
		case ' ', '\t', '\n', '\r':
			data = data[1:]
		default:
			return data
		}
	}
	return data
}
