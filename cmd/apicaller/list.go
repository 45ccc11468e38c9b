package main

import (
	"github.com/spf13/cobra"
)

func newListCmd(r *rootCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List endpoints and the current selection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			v, err := waitView(cmd.Context(), e, r.wait, isReady)
			if err != nil {
				return err
			}
			printEntries(cmd.OutOrStdout(), v)
			return nil
		},
	}
}
