// Command treepilot renders, explores and serves family trees.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, Bad.Sprint("error: ")+err.Error())
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:   "treepilot",
		Short: "Treepilot - family tree viewer",
		Long: `Treepilot lays out the ancestors and descendants of a person as a tidy tree.
It renders trees to SVG, HTML, PNG, JSON, Mermaid and Graphviz, explores them
interactively in the terminal, and serves them over HTTP.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Config file (YAML or TOML)")
	flags.StringVarP(&a.dataFile, "data", "d", "", "Family file (JSON or YAML)")
	flags.StringVarP(&a.serverURL, "server", "s", "", "Read from a treepilot server instead of a file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(newRenderCommand(a))
	rootCmd.AddCommand(newExploreCommand(a))
	rootCmd.AddCommand(newServeCommand(a))
	rootCmd.AddCommand(newPeopleCommand(a))
	rootCmd.AddCommand(newDepthCommand(a))
	rootCmd.AddCommand(newConvertCommand())
	rootCmd.AddCommand(newFormatsCommand())
	return rootCmd
}
