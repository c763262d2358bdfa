package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes of the launcher. Wrapping tools rely on them to tell a
// missing version from a failed installation or a crashed game.
const (
	ExitSuccess         = 0
	ExitFailure         = 1
	ExitVersionNotFound = 2
	ExitInstallError    = 3
	ExitGameError       = 4
)

type Command struct {
	*cobra.Command
	runner Runner
}

type Runner interface {
	RunE(cmd *cobra.Command, args []string) error
}

func New(cmd *cobra.Command, run Runner) *Command {
	build := &Command{
		cmd,
		run,
	}
	build.Command.Run = func(cmd *cobra.Command, args []string) {
		err := run.RunE(cmd, args)
		if err != nil {
			var asExitErr *ExitError
			var asCliErr *CliError
			switch {
			case errors.As(err, &asExitErr):
				// A nil inner error means the runner already reported
				// the failure on its output, nothing left to render.
				if asExitErr.Err != nil {
					fmt.Println(ErrorBox(asExitErr.Err.Error(), ""))
				}
				os.Exit(asExitErr.Code)
			case errors.As(err, &asCliErr):
				fmt.Println(asCliErr.RichError() + "\n")
			default:
				fmt.Println(
					ErrorBox(err.Error(), ""),
				)
			}
			os.Exit(ExitFailure)
		}
	}

	return build
}

// ExitError carries the exit code a failed command ends the process with.
type ExitError struct {
	Code int
	Err  error
}

// Exit returns an ExitError for a failure already rendered by the runner.
func Exit(code int) *ExitError {
	return &ExitError{Code: code}
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}
