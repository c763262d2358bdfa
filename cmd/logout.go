package cmd

import (
	"errors"
	"os"

	"github.com/erikgeiser/promptkit/confirmation"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/portablemc/portablemc/internals/auth"
	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/output"
)

type logoutRunner struct {
	authService   string
	authNoBrowser bool
}

func init() {
	runner := &logoutRunner{}
	cmd := commands.New(&cobra.Command{
		Use:   "logout <email>",
		Short: "Logout and forget the saved session",
		Args:  cobra.ExactArgs(1),
	}, runner)
	addAuthFlags(cmd.Flags(), &runner.authService, &runner.authNoBrowser)
	rootCmd.AddCommand(cmd.Command)
}

func (r *logoutRunner) RunE(cmd *cobra.Command, args []string) error {
	out := newOutput()

	ictx, err := launcherContext()
	if err != nil {
		return err
	}
	if err := checkAuthService(r.authService); err != nil {
		return err
	}

	email := args[0]
	if !confirmLogout(out, email) {
		task(out, output.StateFailed, "cancelled")
		return commands.Exit(commands.ExitFailure)
	}

	emailArg := output.Arg{Key: "email", Value: email}
	out.Task("", "logout.microsoft.pending", emailArg)

	db := authDatabase(ictx)
	if err := db.Load(); err != nil {
		var corrupted *auth.CorruptedError
		if errors.As(err, &corrupted) {
			task(out, output.StateFailed, "auth.database.corrupted",
				output.Arg{Key: "file", Value: corrupted.File})
			return commands.Exit(commands.ExitFailure)
		}
		return reportFatal(out, err, nil)
	}

	removed, err := db.RemoveMicrosoft(email)
	if err != nil {
		return reportFatal(out, err, nil)
	}
	if !removed {
		task(out, output.StateFailed, "logout.unknown_session", emailArg)
		return commands.Exit(commands.ExitFailure)
	}

	task(out, output.StateOK, "logout.success", emailArg)
	return nil
}

// confirmLogout asks before dropping the session, skipping the question on
// pipes and machine outputs.
func confirmLogout(out output.Output, email string) bool {
	if _, ok := out.(*output.Human); !ok {
		return true
	}
	if !isatty.IsTerminal(os.Stdin.Fd()) {
		return true
	}
	input := confirmation.New("Log out "+email+" and forget the session?", confirmation.Yes)
	confirmed, err := input.RunPrompt()
	return err == nil && confirmed
}
