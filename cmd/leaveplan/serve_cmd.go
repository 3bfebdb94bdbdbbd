package main

import (
	"context"

	"github.com/spf13/cobra"

	appLog "leaveplan/internal/log"
	"leaveplan/internal/store"
	"leaveplan/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		listen    string
		snapshots string
		noRefresh bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored records over HTTP and refresh them on a schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if listen != "" {
				a.cfg.Listen = listen
			}
			st, err := store.Open(a.cfg.DataDir)
			if err != nil {
				return err
			}

			var refresh web.Refresher
			var r *refresher
			if !noRefresh {
				r = newRefresher(ctx, func(ctx context.Context) error {
					_, err := a.collect(ctx, collectOptions{Snapshots: snapshots, Report: true})
					return err
				})
				refresh = r
			}

			srv := web.NewServer(a.cfg, st, refresh)
			if r != nil {
				r.onDone = srv.Invalidate
				if err := r.Schedule(a.cfg.RefreshCron, a.cfg.Location()); err != nil {
					return err
				}
				defer r.Stop()
			}

			appLog.Info("serve: starting", "listen", a.cfg.Listen, "refresh", a.cfg.RefreshCron, "auth", a.cfg.BasicAuth.Enabled())
			err = srv.ListenAndServe(ctx)
			appLog.Info("serve: exiting")
			return err
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&snapshots, "snapshots", "", "Refresh from saved month pages instead of the live page")
	cmd.Flags().BoolVar(&noRefresh, "no-refresh", false, "Disable scheduled and API-triggered refreshes")
	return cmd
}
