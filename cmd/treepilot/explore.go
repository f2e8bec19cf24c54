package main

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"treepilot/detail"
	"treepilot/interaction"
	"treepilot/source"
	"treepilot/terminal"
	"treepilot/view"
)

func newExploreCommand(a *app) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:     "explore <person-id>",
		Aliases: []string{"view"},
		Short:   "Explore the tree around a person in the terminal",
		Long: `Opens an interactive tree. Hover a person to see their details, click to pin
them, drag or use the arrow keys to pan, scroll to zoom and press ? for help.

Logs go to log.file from the configuration, since the tree owns the terminal.`,
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{annotateQuietLogs: ""},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := source.ParseKind(mode)
			if err != nil {
				return err
			}
			return a.explore(cmd.Context(), args[0], kind)
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "bidirectional", "Tree kind: bidirectional, ancestors, descendants")
	return cmd
}

func (a *app) explore(ctx context.Context, id string, kind source.Kind) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p, store, err := a.provider(nil)
	if err != nil {
		return err
	}
	cache := detail.New(p, a.cfg.Detail, a.logger, nil)
	v := view.New(view.Deps{
		Trees:   p,
		Details: cache,
		Clock:   interaction.RealClock{},
		Logger:  a.logger,
	}, a.cfg.View)
	defer v.Close()

	// Load before taking over the screen so errors print normally.
	if err := v.Load(ctx, id, kind); err != nil {
		return err
	}
	a.watch(ctx, store, cache, func() {
		if err := v.Load(ctx, id, kind); err != nil {
			a.logger.Warn("tree reload failed", zap.Error(err))
		}
	})

	screen, err := terminal.Open()
	if err != nil {
		return err
	}
	defer screen.Fini()
	return terminal.New(screen, v, a.logger).Run(ctx)
}
