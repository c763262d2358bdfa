package main

import (
	"net/http"

	"github.com/portablemc/portablemc/cmd"
	"github.com/portablemc/portablemc/internals/ownhttp"
)

// set by goreleaser
var (
	version string
	commit  string
)

func main() {

	// replace default http client
	http.DefaultClient = ownhttp.New()

	if version != "" {
		cmd.Version = version
	}
	if commit != "" {
		cmd.Commit = commit
	}
	cmd.Execute()
}
