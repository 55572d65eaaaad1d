package cli

import (
	"github.com/spf13/cobra"
)

const version = "0.2.0"

var (
	cfgFile  string
	envFile  string
	logLevel string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "architect",
	Short: "Architect - interactive Flutter project scaffolding agent",
	Long: `Architect is a conversational agent that plans Flutter projects with you,
creates them with the Flutter CLI and scaffolds a clean architecture layout
(core, shared, features) with Riverpod and GoRouter wiring.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.architect/architect.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with API keys (default is ./.env)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides the config file")

	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "version %s" .Version}}
`)
}

// GetRootCmd returns the root command for testing
func GetRootCmd() *cobra.Command {
	return rootCmd
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}
