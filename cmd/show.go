package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/portablemc/portablemc/internals/auth"
	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/output"
)

func init() {
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show, debug and generate data unrelated to the game",
	}

	showCmd.AddCommand(commands.New(&cobra.Command{
		Use:   "about",
		Short: "Display authors, version and license of PortableMC",
		Args:  cobra.NoArgs,
	}, &showAboutRunner{}).Command)

	showCmd.AddCommand(commands.New(&cobra.Command{
		Use:   "auth",
		Short: "Debug the authentication database and supported services",
		Args:  cobra.NoArgs,
	}, &showAuthRunner{}).Command)

	showCmd.AddCommand(commands.New(&cobra.Command{
		Use:   "lang",
		Short: "Debug the language mappings used for messages translation",
		Args:  cobra.NoArgs,
	}, &showLangRunner{}).Command)

	showCmd.AddCommand(commands.New(&cobra.Command{
		Use:   "completion [bash|zsh]",
		Short: "Print a shell completion script",
		Long: `Print a shell completion script, defaulting to the shell you are running.

Bash:

  $ source <(portablemc show completion bash)

  # To load completions for each session, execute once:
  # Linux:
  portablemc show completion bash > /etc/bash_completion.d/portablemc
  # macOS:
  portablemc show completion bash > /usr/local/etc/bash_completion.d/portablemc

Zsh:

  # If shell completion is not already enabled in your environment,
  # you will need to enable it. To do that run the following once:

  echo "autoload -U compinit; compinit" >> ~/.zshrc

  # Add this to your .zshrc file:
  source <(portablemc show completion zsh)
  # You will need to start a new shell for this setup to take effect.
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh"},
		Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	}, &showCompletionRunner{}).Command)

	rootCmd.AddCommand(showCmd)
}

type showAboutRunner struct{}

func (r *showAboutRunner) RunE(cmd *cobra.Command, args []string) error {
	fmt.Println("Version: " + Version)
	fmt.Println("Authors: Théo Rozier <contact@theorozier.fr>, Contributors")
	fmt.Println("Website: https://github.com/portablemc/portablemc")
	fmt.Println("License: PortableMC  Copyright (C) 2021-2026  Théo Rozier")
	fmt.Println("         This program comes with ABSOLUTELY NO WARRANTY. This is free software,")
	fmt.Println("         and you are welcome to redistribute it under certain conditions.")
	fmt.Println("         See <https://www.gnu.org/licenses/gpl-3.0.html>.")
	return nil
}

type showAuthRunner struct{}

func (r *showAuthRunner) RunE(cmd *cobra.Command, args []string) error {
	out := newOutput()

	ictx, err := launcherContext()
	if err != nil {
		return err
	}

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

	// Not translated, the table is a debugging aid.
	table := out.Table()
	table.Add("Type", "Email", "Username", "UUID")
	table.Separator()

	for _, email := range db.Emails(auth.ServiceMicrosoft) {
		session, err := db.Microsoft(email)
		if err != nil || session == nil {
			continue
		}
		table.Add(auth.ServiceMicrosoft, email, session.Username(), session.UUID())
	}
	table.Print()
	return nil
}

type showLangRunner struct{}

func (r *showLangRunner) RunE(cmd *cobra.Command, args []string) error {
	out := newOutput()

	// Not translated, the table is a debugging aid.
	table := out.Table()
	table.Add("Key", "Message")
	table.Separator()

	for _, entry := range output.LangEntries() {
		table.Add(entry.Key, entry.Value)
	}
	table.Print()
	return nil
}

type showCompletionRunner struct{}

func (r *showCompletionRunner) RunE(cmd *cobra.Command, args []string) error {
	shell := ""
	if len(args) == 1 {
		shell = args[0]
	} else {
		shell = filepath.Base(os.Getenv("SHELL"))
	}

	switch shell {
	case "bash":
		return cmd.Root().GenBashCompletion(os.Stdout)
	case "zsh":
		// Make the script loadable when sourced directly.
		os.Stdout.WriteString("#compdef portablemc\ncompdef _portablemc portablemc\n")
		return cmd.Root().GenZshCompletion(os.Stdout)
	}
	return &commands.CliError{
		Text:        "cannot determine the shell to generate a completion script for",
		Suggestions: []string{"portablemc show completion bash", "portablemc show completion zsh"},
	}
}
