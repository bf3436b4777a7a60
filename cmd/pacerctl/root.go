package main

import (
	"github.com/spf13/cobra"

	"github.com/playperu/pacer/internal/pacer"
	"github.com/playperu/pacer/internal/roster"
)

type rootOptions struct {
	rosterPath string
	verbose    bool
}

// loadRoster reads --roster, or the demo roster when it is unset.
func (o *rootOptions) loadRoster() ([]pacer.Pacer, error) {
	if o.rosterPath == "" {
		return roster.Demo(), nil
	}
	return roster.Load(o.rosterPath)
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "pacerctl",
		Short:         "PACER run engine tools",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&opts.rosterPath, "roster", "r", "", "Pacer roster TOML file (default: built-in demo roster)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log engine activity to stderr")

	rootCmd.AddCommand(newPacersCommand(opts))
	rootCmd.AddCommand(newSimulateCommand(opts))
	rootCmd.AddCommand(newGPXCommand(opts))

	return rootCmd
}
