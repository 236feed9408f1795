package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"palm/config"
	"palm/oracle"
	"palm/scenario"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Re-execute a saved scenario against the simulator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg.LogLevel); err != nil {
				return err
			}
			return runReplay(cmd.Context(), cfg, args[0])
		},
	}
}

func runReplay(ctx context.Context, cfg *config.Config, path string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m, obstacles, err := oracle.ReadScenario(path)
	if err != nil {
		return err
	}
	orc, err := oracle.New(cfg.Oracle)
	if err != nil {
		return err
	}

	params := cfg.Params()
	params.Rand = newRand(cfg.Seed)

	minDistance, tc := scenario.Replay(ctx, m, orc, params, obstacles)
	fmt.Printf("min distance %.4f over %d obstacles\n", minDistance, len(obstacles))
	if tc.PlotFile != "" {
		fmt.Printf("plot saved to %s\n", tc.PlotFile)
	}
	return nil
}
