package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/portablemc/portablemc/internals/auth"
	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/installer"
	"github.com/portablemc/portablemc/internals/output"
	"github.com/portablemc/portablemc/internals/utils"
)

type loginRunner struct {
	authService   string
	authNoBrowser bool
}

func init() {
	runner := &loginRunner{}
	cmd := commands.New(&cobra.Command{
		Use:   "login <email>",
		Short: "Login into your account and save the session",
		Args:  cobra.ExactArgs(1),
	}, runner)
	addAuthFlags(cmd.Flags(), &runner.authService, &runner.authNoBrowser)
	rootCmd.AddCommand(cmd.Command)
}

func (r *loginRunner) RunE(cmd *cobra.Command, args []string) error {
	out := newOutput()

	ictx, err := launcherContext()
	if err != nil {
		return err
	}
	if err := checkAuthService(r.authService); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := promptAuthenticate(ctx, out, newClient(), authDatabase(ictx),
		args[0], true, false, r.authNoBrowser, false)
	if err != nil {
		return reportFatal(out, err, nil)
	}
	if session == nil {
		return commands.Exit(commands.ExitFailure)
	}

	task(out, output.StateInfo, "login.tip.remember_start_login",
		output.Arg{Key: "email", Value: args[0]})
	return nil
}

// addAuthFlags registers the authentication flags shared by the start,
// login and logout commands.
func addAuthFlags(fs *pflag.FlagSet, service *string, noBrowser *bool) {
	fs.StringVar(service, "auth-service", "microsoft", "Authentication service type to use for logging in the game.")
	fs.BoolVar(noBrowser, "auth-no-browser", false, "Prevent the authentication service to open your system's web browser.")
}

func checkAuthService(service string) error {
	if service != auth.ServiceMicrosoft {
		return &commands.CliError{
			Text:        fmt.Sprintf("unsupported authentication service %q", service),
			Suggestions: []string{"use --auth-service microsoft"},
		}
	}
	return nil
}

// promptAuthenticate logs the user in with the given email, reusing and
// refreshing the stored session when there is one. Authentication failures
// are rendered here and return a nil session, anything else is left to the
// caller. With confirm set, a fresh interactive login asks first on
// interactive terminals, so a mistyped start -l does not pop a browser.
func promptAuthenticate(ctx context.Context, out output.Output, client *http.Client, db *auth.Database, email string, caching, anonymize, noBrowser, confirm bool) (installer.Session, error) {

	if err := db.Load(); err != nil {
		var corrupted *auth.CorruptedError
		if errors.As(err, &corrupted) {
			task(out, output.StateFailed, "auth.database.corrupted",
				output.Arg{Key: "file", Value: corrupted.File})
			return nil, nil
		}
		return nil, err
	}

	emailText := email
	if anonymize {
		emailText = utils.AnonymizeEmail(email)
	}
	emailArg := output.Arg{Key: "email", Value: emailText}

	out.Task(output.StatePending, "auth.microsoft", emailArg)

	flow := &auth.Microsoft{Client: client}

	session, err := db.Microsoft(email)
	if err != nil {
		return nil, err
	}
	if session != nil {
		if flow.Validate(ctx, session) {
			task(out, output.StateOK, "auth.validated", emailArg)
			return session, nil
		}
		out.Task(output.StatePending, "auth.refreshing")
		switch err := flow.Refresh(ctx, session); {
		case err == nil:
			if err := db.PutMicrosoft(session); err != nil {
				return nil, err
			}
			task(out, output.StateOK, "auth.refreshed", emailArg)
			return session, nil
		default:
			message, ok := authErrorMessage(err)
			if !ok {
				return nil, err
			}
			out.Task(output.StateFailed, "")
			out.Task("", "auth.error", output.Arg{Key: "message", Value: message})
			out.Finish()
			// The stored session is dead, fall through to a fresh login.
			out.Task(output.StatePending, "auth.microsoft", emailArg)
		}
	}

	if confirm {
		out.Finish()
		if !confirmFreshLogin(out, emailText) {
			task(out, output.StateFailed, "cancelled")
			return nil, nil
		}
		out.Task(output.StatePending, "auth.microsoft", emailArg)
	}

	session, err = promptMicrosoft(ctx, out, flow, db, email, noBrowser)
	if err != nil || session == nil {
		return nil, err
	}

	if caching {
		out.Task(output.StatePending, "auth.caching")
		if err := db.PutMicrosoft(session); err != nil {
			return nil, err
		}
	}
	task(out, output.StateOK, "auth.logged_in", emailArg)
	return session, nil
}

// promptMicrosoft runs the interactive browser round trip. The local
// redirect listener keeps running even when no browser could be opened, the
// printed link works from any browser reaching this machine.
func promptMicrosoft(ctx context.Context, out output.Output, flow *auth.Microsoft, db *auth.Database, email string, noBrowser bool) (*auth.MicrosoftSession, error) {

	spin := output.NewMaybeSpinner(out, "auth.microsoft.opening_browser_and_listening")
	flow.OpenURL = func(url string) error {
		if !noBrowser && utils.OpenBrowser(url) == nil {
			spin.Start()
			return nil
		}
		task(out, output.StateInfo, "auth.microsoft.no_browser_fallback")
		out.Print(url + "\n")
		return nil
	}

	session, err := flow.Authenticate(ctx, email)
	spin.Stop()
	if err != nil {
		var timedOut *auth.TimedOutError
		if errors.As(err, &timedOut) {
			out.Finish()
			task(out, output.StateFailed, "auth.microsoft.failed_to_authenticate")
			return nil, nil
		}
		if message, ok := authErrorMessage(err); ok {
			task(out, output.StateFailed, "auth.error",
				output.Arg{Key: "message", Value: message})
			return nil, nil
		}
		return nil, err
	}

	session.LauncherID = db.ClientID()
	return session, nil
}

// confirmFreshLogin asks before opening the browser. Pipes and machine
// outputs never prompt, wrapping tools expect the flow to go on.
func confirmFreshLogin(out output.Output, email string) bool {
	if _, ok := out.(*output.Human); !ok {
		return true
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return true
	}
	return utils.BoolPrompt(&promptui.Prompt{
		Label:     "Open the browser to login as " + email,
		IsConfirm: true,
		Default:   "y",
	})
}

// authErrorMessage resolves the displayed message of an authentication
// failure, reporting false for errors that are not part of the protocol.
func authErrorMessage(err error) (string, bool) {
	var declined *auth.DeclinedError
	var timedOut *auth.TimedOutError
	var outdated *auth.OutdatedTokenError
	var noGame *auth.DoesNotOwnGameError
	var status *auth.StatusError
	var unknown *auth.UnknownError
	switch {
	case errors.As(err, &declined):
		return output.Lang("auth.error.declined"), true
	case errors.As(err, &timedOut):
		return output.Lang("auth.error.timed_out"), true
	case errors.As(err, &outdated):
		return output.Lang("auth.error.outdated_token"), true
	case errors.As(err, &noGame):
		return output.Lang("auth.error.does_not_own_game"), true
	case errors.As(err, &status), errors.As(err, &unknown):
		return err.Error(), true
	}
	return "", false
}
