package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/shamank/apicaller-go/pkg/caller"
)

func newCallCmd(r *rootCmd) *cobra.Command {
	var data string
	var dataFile string

	cmd := &cobra.Command{
		Use:   "call <Service.RPC>",
		Short: "Select an endpoint and invoke it",
		Long: `Select an endpoint by name and invoke it with a JSON request body.

Examples:
  apicaller call Orders.List --data '{"limit": 10}'
  apicaller call Orders.Create --data-file order.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			body := []byte(data)
			if dataFile != "" {
				b, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("read request body: %w", err)
				}
				body = b
			}
			if len(body) > 0 && !json.Valid(body) {
				return fmt.Errorf("request body is not valid JSON")
			}

			e, err := r.open(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			v, err := waitView(cmd.Context(), e, r.wait, isReady)
			if err != nil {
				return err
			}
			if !hasEntry(v, name) {
				return fmt.Errorf("unknown endpoint %q", name)
			}
			e.Select(name)
			if _, err := waitView(cmd.Context(), e, r.wait, func(v caller.View) bool {
				return v.Ready && v.Selected.Name == name
			}); err != nil {
				return err
			}

			out, err := e.Call(cmd.Context(), body)
			if err != nil {
				return err
			}
			var pretty bytes.Buffer
			if err := json.Indent(&pretty, out, "", "  "); err != nil {
				pretty.Reset()
				pretty.Write(out)
			}
			fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
			return nil
		},
	}

	cmd.Flags().StringVarP(&data, "data", "d", "", "JSON request body")
	cmd.Flags().StringVarP(&dataFile, "data-file", "f", "", "read the JSON request body from a file")
	return cmd
}

func hasEntry(v caller.View, name string) bool {
	for _, e := range v.Entries {
		if e.Name == name {
			return true
		}
	}
	return false
}
