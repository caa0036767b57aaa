package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the stored model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !force {
				fmt.Fprintf(out, "This will delete the model in %s. Continue? [y/N] ", a.cfg.Store.Path)
				answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				answer = strings.TrimSpace(strings.ToLower(answer))
				if answer != "y" && answer != "yes" {
					fmt.Fprintln(out, "cancelled")
					return nil
				}
			}

			s, err := a.open(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.Wipe(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(out, "model deleted")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}
