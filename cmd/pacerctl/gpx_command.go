package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/playperu/pacer/internal/recap"
	"github.com/playperu/pacer/internal/simulate"
)

func newGPXCommand(opts *rootOptions) *cobra.Command {
	var (
		flags simulateFlags
		out   string
	)

	cmd := &cobra.Command{
		Use:   "gpx",
		Short: "Simulate the demo run and export its track as GPX",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config(opts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			res, err := simulate.Run(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			sum := recap.Build(res.Session, res.Stats)

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("create gpx file: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := recap.WriteGPX(w, sum.Title, sum.Description, res.Points); err != nil {
				return fmt.Errorf("write gpx: %w", err)
			}
			if out != "" && out != "-" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d points to %s\n", len(res.Points), out)
			}
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	return cmd
}
