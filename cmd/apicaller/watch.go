package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shamank/apicaller-go/pkg/caller"
)

func newWatchCmd(r *rootCmd) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print every change of the endpoint selector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			out := cmd.OutOrStdout()
			// The loop prints the latest view, so one pending wake-up is enough.
			changed := make(chan struct{}, 1)
			remove := e.OnChange(func(caller.View) {
				select {
				case changed <- struct{}{}:
				default:
				}
			})
			defer remove()

			last := formatView(e.View())
			fmt.Fprintln(out, last)
			for {
				select {
				case <-changed:
					if line := formatView(e.View()); line != last {
						fmt.Fprintln(out, line)
						last = line
					}
				case <-e.Done():
					return errDisconnected
				case <-cmd.Context().Done():
					return nil
				}
			}
		},
	}
}
