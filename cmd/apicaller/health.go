package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd(r *rootCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the application's gRPC health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			wait := time.NewTimer(r.wait)
			defer wait.Stop()
			select {
			case <-e.Synced():
			case <-e.Done():
				return errDisconnected
			case <-wait.C:
				// Fall through to the default address.
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			}

			resp, err := e.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.GetStatus().String())
			return nil
		},
	}
}
