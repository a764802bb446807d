package cli

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/redbco/redb-anchor/pkg/health"
	"github.com/redbco/redb-anchor/services/anchor/internal/engine"
	"github.com/redbco/redb-anchor/services/anchor/internal/watcher"
)

func (a *App) healthCommand() *cobra.Command {
	var watch time.Duration
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Connect to every data source and report its health",
		Long: `Connect to every data source and report its health.

With --watch the connected sources are checked again on every interval until
the command is interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEngine(cmd, func(ctx context.Context, e *engine.Engine) error {
				report := e.CheckAll(ctx)
				if err := a.printer().Health(report); err != nil {
					return err
				}
				if watch > 0 {
					return a.watchHealth(ctx, e, watch)
				}
				if report.Status == health.StatusUnhealthy {
					return ErrOperationFailed
				}
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&watch, "watch", 0, "check again on this interval until interrupted")
	return cmd
}

func (a *App) watchHealth(ctx context.Context, e *engine.Engine, interval time.Duration) error {
	p := a.printer()
	var printErr error
	w := watcher.NewHealthWatcher(e, interval, e.Logger(), func(r engine.Report) {
		if printErr == nil {
			fmt.Fprintln(a.stdout)
			printErr = p.Health(r)
		}
	})
	w.Start(ctx)
	return printErr
}

func (a *App) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "anchor %s\n", a.Version)
			if a.GitCommit != "" || a.BuildTime != "" {
				fmt.Fprintf(a.stdout, "Built: %s, from commit: %s\n", a.BuildTime, a.GitCommit)
			}
			fmt.Fprintf(a.stdout, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(a.stdout, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}
