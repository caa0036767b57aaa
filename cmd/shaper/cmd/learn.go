package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cognicore/shaper/pkg/shaper/ingest"
)

func newLearnCmd(a *app) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "learn",
		Short: "Learn a new model from labelled samples",
		Long:  "Replaces the stored model with one learned from a JSONL, CSV, TSV or HTML file of text/label pairs.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			samples, err := ingest.Load(input, a.log)
			if err != nil {
				return err
			}

			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			rep, err := s.Learn(cmd.Context(), samples)
			if err != nil {
				return fmt.Errorf("learn: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "learned %d samples into %d levels (%s) in %s\n",
				rep.Samples, len(rep.Levels), rep.Stop, rep.Duration.Round(time.Millisecond))
			for _, lvl := range rep.Levels {
				fmt.Fprintf(out, "  level %d: %d chars, %d patterns, %d elements, %d pairs\n",
					lvl.Level, lvl.Chars, lvl.Patterns, lvl.Elements, lvl.Pairs)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Samples file (required)")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}
