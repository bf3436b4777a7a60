package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/playperu/pacer/internal/pacer"
)

func newPacersCommand(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "pacers",
		Short: "List the pacers in the roster",
		RunE: func(cmd *cobra.Command, args []string) error {
			pacers, err := opts.loadRoster()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, pacers)
			}

			rows := make([][]string, 0, len(pacers))
			for _, p := range pacers {
				rows = append(rows, []string{p.ID, p.Name, strconv.Itoa(len(p.Memos)), memoVibes(p), strconv.Itoa(len(p.Tracks))})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Name", "Memos", "Memo vibes", "Tracks"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft, alignRight},
				shouldColorize(out),
			))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the roster as JSON")
	return cmd
}

func memoVibes(p pacer.Pacer) string {
	seen := map[pacer.Vibe]bool{}
	var vibes []string
	for _, m := range p.Memos {
		if !seen[m.Vibe] {
			seen[m.Vibe] = true
			vibes = append(vibes, string(m.Vibe))
		}
	}
	sort.Strings(vibes)
	if len(vibes) == 0 {
		return "-"
	}
	return strings.Join(vibes, ", ")
}
