package cmd

import (
	"context"
	"crypto/x509"
	"errors"
	"log"
	"net"
	"net/http"
	"path/filepath"
	"time"

	"github.com/portablemc/portablemc/internals/auth"
	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/installer"
	"github.com/portablemc/portablemc/internals/mojang"
	"github.com/portablemc/portablemc/internals/output"
	"github.com/portablemc/portablemc/internals/ownhttp"
	"github.com/spf13/viper"
)

func newOutput() output.Output {
	return output.New(output.Kind(viper.GetString("output")))
}

// launcherContext resolves the directory layout from flags, config and
// environment, defaulting to the standard .minecraft directory.
func launcherContext() (installer.Context, error) {
	mainDir := viper.GetString("main_dir")
	if mainDir == "" {
		var err error
		mainDir, err = installer.DefaultMainDir()
		if err != nil {
			return installer.Context{}, err
		}
	}
	return installer.NewContext(mainDir, viper.GetString("work_dir")), nil
}

// newClient returns the http client every command talks through. The
// --timeout flag bounds dials and header reads, a whole-request timeout
// would abort long downloads.
func newClient() *http.Client {
	client := ownhttp.New()
	if seconds := viper.GetFloat64("timeout"); seconds > 0 {
		d := time.Duration(seconds * float64(time.Second))
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.DialContext = (&net.Dialer{Timeout: d, KeepAlive: 30 * time.Second}).DialContext
		transport.TLSHandshakeTimeout = d
		transport.ResponseHeaderTimeout = d
		client.Transport = ownhttp.NewAddHeaderTransport(transport)
	}
	return client
}

func newManifest(client *http.Client, ctx installer.Context) *mojang.Client {
	manifest := mojang.NewWithClient(client)
	manifest.CacheFile = filepath.Join(ctx.WorkDir, "portablemc_version_manifest.json")
	return manifest
}

func authDatabase(ctx installer.Context) *auth.Database {
	return auth.NewDatabase(filepath.Join(ctx.WorkDir, "portablemc_auth.json"))
}

// task renders one sealed task line.
func task(out output.Output, state, key string, args ...output.Arg) {
	out.Task(state, key, args...)
	out.Finish()
}

// errorKey classifies an unexpected error into the catalog key announcing
// it. Certificates are checked before the generic net.Error, transport
// errors wrap them.
func errorKey(err error) string {
	var status *ownhttp.StatusError
	if errors.As(err, &status) {
		return "error.http"
	}
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var invalid x509.CertificateInvalidError
	if errors.As(err, &unknownAuthority) || errors.As(err, &hostname) || errors.As(err, &invalid) {
		return "error.cert"
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return "error.socket"
	}
	return "error.os"
}

// reportFatal renders an error no command-specific mapping caught and
// returns the exit error ending the command. Interrupts get their own
// line, network failures come with the tips collected so far.
func reportFatal(out output.Output, err error, socketTips []string) error {
	if errors.Is(err, context.Canceled) {
		out.Finish()
		task(out, output.StateHalt, "keyboard_interrupt")
		return commands.Exit(commands.ExitFailure)
	}

	key := errorKey(err)
	task(out, output.StateFailed, key)
	if verbosity >= 1 {
		log.Println(err)
	} else {
		task(out, "", "echo", output.Arg{Key: "echo", Value: err.Error()})
		task(out, output.StateInfo, "suggest_verbose")
	}

	if key == "error.socket" {
		for _, tip := range socketTips {
			task(out, output.StateInfo, "error.socket.tip."+tip)
		}
	}
	return commands.Exit(commands.ExitFailure)
}

// formatLocaleDate renders timestamps in search tables.
func formatLocaleDate(t time.Time) string {
	return t.Local().Format(time.ANSIC)
}

// formatISODate renders the manifest release dates, returning the raw
// string when it does not parse.
func formatISODate(iso string) string {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		return iso
	}
	return formatLocaleDate(t)
}
