package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treepilot/detail"
	"treepilot/interaction"
	"treepilot/metrics"
	"treepilot/server"
)

func newServeCommand(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve trees, layouts and live views over HTTP",
		Long: `Starts the HTTP API. Trees and person details come from the family file, or
from another treepilot server when --server is given. Prometheus metrics are
served on /metrics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	m := metrics.NewCollector("treepilot")
	p, store, err := a.provider(m)
	if err != nil {
		return err
	}
	cache := detail.New(p, a.cfg.Detail, a.logger, m)
	a.watch(ctx, store, cache, func() {
		a.logger.Info("family file reloaded, detail cache cleared")
	})

	srv := server.New(a.cfg.Server, a.cfg.View, server.Deps{
		Provider: p,
		Details:  cache,
		Clock:    interaction.RealClock{},
		Logger:   a.logger,
		Metrics:  m,
	})
	a.logger.Info("starting treepilot",
		zap.String("addr", a.cfg.Server.Addr),
		zap.Bool("remote", a.cfg.Remote()),
		zap.Bool("watch", a.cfg.Watch),
	)
	return srv.Run(ctx)
}
