package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatsCmd(a *app) *cobra.Command {
	var (
		asJSON bool
		top    int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the stored model level by level",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			stats, err := s.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			if len(stats.Levels) == 0 {
				fmt.Fprintln(out, "no model")
				return nil
			}

			fmt.Fprintf(out, "samples: %d, labels: %d\n", stats.Samples(), len(stats.Labels))
			if labels := stats.TopLabels(top); len(labels) > 0 {
				parts := make([]string, len(labels))
				for i, l := range labels {
					parts[i] = fmt.Sprintf("%s (%d)", l, stats.Labels[l])
				}
				fmt.Fprintf(out, "top labels: %s\n", strings.Join(parts, ", "))
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "LEVEL\tCHARS\tPATTERNS\tSAMPLES\tDECISIVE\tAMBIGUOUS\tENTROPY")
			for _, l := range stats.Levels {
				fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%d\t%.3f\n",
					l.Level, l.Chars, l.Patterns, l.Samples, l.Decisive, l.Ambiguous, l.Entropy)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	cmd.Flags().IntVar(&top, "top", 5, "Labels to list by sample count (0 lists all)")
	return cmd
}
