package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/exp/rand"

	"palm/config"
	"palm/mission"
	"palm/oracle"
	"palm/results"
	"palm/scenario"
	"palm/searcher"
)

func newGenerateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Search for challenging obstacle scenarios",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if err := setupLogging(cfg.LogLevel); err != nil {
				return err
			}
			return runGenerate(cmd.Context(), cfg)
		},
	}
}

func runGenerate(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Mission == "" {
		return fmt.Errorf("mission file is required")
	}
	m, err := mission.Load(cfg.Mission)
	if err != nil {
		return err
	}
	orc, err := oracle.New(cfg.Oracle)
	if err != nil {
		return err
	}

	rng := newRand(cfg.Seed)
	params := cfg.Params()
	params.Rand = rng

	mcts := searcher.New(scenario.NewState(m, orc, params),
		searcher.WithExplorationRate(cfg.ExplorationRate),
		searcher.WithAlpha(cfg.Alpha),
		searcher.WithCList(cfg.CList),
		searcher.WithRand(rng),
	)

	log.Info().Str("mission", m.Name).Int("budget", cfg.Budget).
		Int("max_obstacles", cfg.MaxObstacles).Msg("starting search")
	start := time.Now()
	cases := mcts.Generate(ctx, cfg.Budget)
	log.Info().Int("found", len(cases)).Dur("elapsed", time.Since(start)).
		Msg("search finished")

	writer, err := results.NewWriter(cfg.TestsFolder)
	if err != nil {
		return err
	}
	if err := writer.SaveTestCases(cases); err != nil {
		return err
	}

	fmt.Printf("%d test cases generated in %s\n", len(cases), writer.BaseDir())
	return nil
}

func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewSource(seed))
}
