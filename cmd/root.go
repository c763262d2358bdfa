package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/portablemc/portablemc/internals/commands"
	"github.com/portablemc/portablemc/internals/output"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Version and Commit are set by the goreleaser build, main passes them
// through before executing.
var (
	Version = "dev"
	Commit  = "none"
)

var (
	flagMainDir string
	flagWorkDir string
	flagTimeout float64
	flagOutput  string
	verbosity   int
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "portablemc",
	Short: "A fast, reliable and cross-platform Minecraft launcher.",
	Long:  "Install and launch any Minecraft version, with Fabric, Quilt, LegacyFabric, Babric, Forge and NeoForge support.",

	Example: `
  portablemc start
  portablemc start fabric:1.20.4
  portablemc search -k forge 1.20
  portablemc login someone@example.com`,

	// The completion script is exposed under show completion.
	CompletionOptions: cobra.CompletionOptions{DisableDefaultCmd: true},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(commands.ExitFailure)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagMainDir, "main-dir", "", "Set the main directory where libraries, assets and versions are stored")
	pf.StringVar(&flagWorkDir, "work-dir", "", "Set the working directory where the game run and place for examples saves (default to main directory)")
	pf.Float64Var(&flagTimeout, "timeout", 0, "Set a global socket timeout (in seconds) that might interrupt any network request")
	pf.StringVar(&flagOutput, "output", defaultOutputKind(), "Set the output format of the launcher (human-color, human, machine)")
	pf.CountVarP(&verbosity, "verbose", "v", "Enable verbose output, the more -v the more verbose")

	viper.BindPFlag("main_dir", pf.Lookup("main-dir"))
	viper.BindPFlag("work_dir", pf.Lookup("work-dir"))
	viper.BindPFlag("timeout", pf.Lookup("timeout"))
	viper.BindPFlag("output", pf.Lookup("output"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	home, err := os.UserHomeDir()
	if err == nil {
		// Search config in home directory with name ".portablemc" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigName(".portablemc")
	}

	viper.SetEnvPrefix("portablemc")
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in. Never told on the machine
	// output, wrapping tools parse every line.
	if err := viper.ReadInConfig(); err == nil {
		if verbosity >= 1 && output.Kind(viper.GetString("output")) != output.KindMachine {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

func defaultOutputKind() string {
	if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
		return string(output.KindHumanColor)
	}
	return string(output.KindHuman)
}
