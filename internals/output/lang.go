package output

import (
	_ "embed"
	"strings"

	"github.com/magiconair/properties"
)

//go:embed en.properties
var langSource string

var lang = loadLang()

func loadLang() *properties.Properties {
	p := properties.MustLoadString(langSource)
	p.DisableExpansion = true
	return p
}

// Lang resolves a message key and substitutes its named arguments. An
// unknown key is returned as is, so a missing entry stays visible
// instead of failing.
func Lang(key string, args ...Arg) string {
	msg, ok := lang.Get(key)
	if !ok {
		return key
	}
	for _, arg := range args {
		msg = strings.ReplaceAll(msg, "{"+arg.Key+"}", arg.Value)
	}
	return msg
}

// LangEntries lists the whole catalog in declaration order.
func LangEntries() []Arg {
	entries := make([]Arg, 0, lang.Len())
	for _, key := range lang.Keys() {
		value, _ := lang.Get(key)
		entries = append(entries, Arg{Key: key, Value: value})
	}
	return entries
}
