package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shamank/apicaller-go/pkg/caller"
	"github.com/shamank/apicaller-go/pkg/config"
	"github.com/shamank/apicaller-go/pkg/sdk"
)

type rootCmd struct {
	configPath string
	daemonURL  string
	appID      string
	debug      bool
	wait       time.Duration

	// newExplorer is replaced in tests.
	newExplorer func(ctx context.Context, cfg *config.Config) (*sdk.Explorer, error)
}

func newRootCmd() *cobra.Command {
	r := &rootCmd{
		newExplorer: func(ctx context.Context, cfg *config.Config) (*sdk.Explorer, error) {
			return sdk.New(ctx, cfg)
		},
	}
	return r.command()
}

func (r *rootCmd) command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apicaller",
		Short: "Explore and call the API of a running application",
		Long: `apicaller follows one application through its daemon and keeps the
list of its API endpoints up to date as the application restarts and reloads.

Commands:
  apicaller watch                 Print every change of the endpoint selector
  apicaller list                  List endpoints and the current selection
  apicaller call <Svc.RPC>        Select an endpoint and invoke it
  apicaller health                Check the application's gRPC health`,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&r.configPath, "config", "c", "", "YAML config file")
	flags.StringVar(&r.daemonURL, "daemon", "", "daemon WebSocket URL (default "+config.DefaultDaemonURL+")")
	flags.StringVarP(&r.appID, "app", "a", "", "application id")
	flags.BoolVar(&r.debug, "debug", false, "enable debug logging")
	flags.DurationVar(&r.wait, "wait", 10*time.Second, "how long to wait for the application to become ready")

	cmd.AddCommand(newWatchCmd(r))
	cmd.AddCommand(newListCmd(r))
	cmd.AddCommand(newCallCmd(r))
	cmd.AddCommand(newHealthCmd(r))
	return cmd
}

// loadConfig reads the config file and environment, then applies flags
// that were set explicitly.
func (r *rootCmd) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("daemon") {
		cfg.DaemonURL = r.daemonURL
	}
	if flags.Changed("app") {
		cfg.AppID = r.appID
	}
	if flags.Changed("debug") {
		cfg.Debug = r.debug
	}
	return cfg, nil
}

func (r *rootCmd) open(cmd *cobra.Command) (*sdk.Explorer, error) {
	cfg, err := r.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return r.newExplorer(cmd.Context(), cfg)
}

var errDisconnected = errors.New("daemon connection lost")

// waitView blocks until cond holds for the explorer's view.
func waitView(ctx context.Context, e *sdk.Explorer, timeout time.Duration, cond func(caller.View) bool) (caller.View, error) {
	matched := make(chan caller.View, 1)
	remove := e.OnChange(func(v caller.View) {
		if cond(v) {
			select {
			case matched <- v:
			default:
			}
		}
	})
	defer remove()

	if v := e.View(); cond(v) {
		return v, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	select {
	case v := <-matched:
		return v, nil
	case <-e.Done():
		return caller.View{}, errDisconnected
	case <-ctx.Done():
		return caller.View{}, fmt.Errorf("application not ready: %w", ctx.Err())
	}
}

func isReady(v caller.View) bool { return v.Ready }

// formatView renders v in a single line.
func formatView(v caller.View) string {
	if !v.Ready {
		return v.Placeholder
	}
	return fmt.Sprintf("%s @ %s: %s (%d endpoints)", v.AppID, v.Addr, v.Selected.Name, len(v.Entries))
}

// printEntries writes one endpoint per line, marking the selection.
func printEntries(w io.Writer, v caller.View) {
	for _, e := range v.Entries {
		mark := " "
		if v.Selected != nil && e.Name == v.Selected.Name {
			mark = "*"
		}
		line := mark + " " + e.Name
		if e.RPC.AccessType != "" {
			line += " [" + e.RPC.AccessType + "]"
		}
		if doc := strings.TrimSpace(e.RPC.Doc); doc != "" {
			line += "  " + strings.SplitN(doc, "\n", 2)[0]
		}
		fmt.Fprintln(w, line)
	}
}
