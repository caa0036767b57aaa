package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/shaper/pkg/shaper"
	"github.com/cognicore/shaper/pkg/shaper/ingest"
)

func newClassifyCmd(a *app) *cobra.Command {
	var (
		input   string
		workers int
	)

	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Label text with the stored model",
		Long: "Prints one label per argument. Without arguments, cells are read from --input " +
			"(CSV, TSV, HTML table or one cell per line) or from stdin, and printed as text<TAB>label.",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				for _, text := range args {
					label, ok, err := s.Classify(cmd.Context(), text)
					if err != nil {
						return err
					}
					fmt.Fprintln(out, labelOrUnknown(label, ok))
				}
				return nil
			}

			var cells []string
			if input != "" {
				cells, err = ingest.ReadCells(input)
			} else {
				cells, err = ingest.ReadLines(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			results, err := s.ClassifyAll(cmd.Context(), cells, workers)
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(out, "%s\t%s\n", r.Text, labelOrUnknown(r.Label, r.OK))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "File of cells to classify")
	cmd.Flags().IntVar(&workers, "workers", 0, "Parallel classifiers (default: GOMAXPROCS)")
	return cmd
}

func labelOrUnknown(label string, ok bool) string {
	if !ok {
		return shaper.Unknown
	}
	return label
}
