// Command poolsim drives a messagepool.MessagePool with a deterministic,
// seeded synthetic workload. It exists to exercise every pool operation
// end to end outside of the unit test suite, and to demonstrate the
// library's single-owner, caller-supplied-time contract.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/caarlos0/env/v7"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/Alpaca-Labs-ICP/ic/messagepool"
)

// config holds the parameters of the simulated workload, loaded from the
// environment via struct tags.
type config struct {
	Seed                int64   `env:"POOLSIM_SEED" envDefault:"1"`
	Ticks               int     `env:"POOLSIM_TICKS" envDefault:"1000"`
	InsertsPerTick      int     `env:"POOLSIM_INSERTS_PER_TICK" envDefault:"5"`
	BestEffortFraction  float64 `env:"POOLSIM_BEST_EFFORT_FRACTION" envDefault:"0.5"`
	OversizeProbability float64 `env:"POOLSIM_OVERSIZE_PROBABILITY" envDefault:"0.02"`
	MaxDeadlineJitter   int     `env:"POOLSIM_MAX_DEADLINE_JITTER_SECONDS" envDefault:"60"`
	DebugAssertions     bool    `env:"POOLSIM_DEBUG_ASSERTIONS" envDefault:"true"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, errors.Wrap(err, "poolsim: failed to load configuration")
	}
	return cfg, nil
}

func newLogger() *logiface.Logger[*stumpy.Event] {
	return stumpy.L.New(stumpy.L.WithStumpy())
}

func main() {
	logger := newLogger()

	root := &cobra.Command{
		Use:   "poolsim",
		Short: "Drive a messagepool.MessagePool with a synthetic workload",
	}
	root.AddCommand(newRunCommand(logger))
	root.AddCommand(newBenchCommand(logger))

	if err := root.Execute(); err != nil {
		logger.Err().Err(err).Log("poolsim: command failed")
		os.Exit(1)
	}
}

func newRunCommand(logger *logiface.Logger[*stumpy.Event]) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Simulate a workload tick by tick, logging every pool event",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			messagepool.DebugAssertions = cfg.DebugAssertions
			runSimulation(logger, cfg, true)
			return nil
		},
	}
}

func newBenchCommand(logger *logiface.Logger[*stumpy.Event]) *cobra.Command {
	return &cobra.Command{
		Use:   "bench",
		Short: "Run the same workload without per-event logging, reporting totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			messagepool.DebugAssertions = cfg.DebugAssertions
			start := time.Now()
			inserted, expired, shed := runSimulation(logger, cfg, false)
			elapsed := time.Since(start)

			logger.Info().
				Int(`inserted`, inserted).
				Int(`expired`, expired).
				Int(`shed`, shed).
				Str(`elapsed`, elapsed.String()).
				Log(`poolsim: bench complete`)
			return nil
		},
	}
}

// runSimulation replays a deterministic sequence of inserts, periodic
// expiry sweeps and occasional shedding against a fresh pool. It never
// reads the wall clock: simulated time is an explicit counter, matching
// the pool's own "time is always passed in" contract.
func runSimulation(logger *logiface.Logger[*stumpy.Event], cfg config, verbose bool) (inserted, expired, shed int) {
	rnd := rand.New(rand.NewSource(cfg.Seed))
	pool := messagepool.NewMessagePool()
	now := time.Unix(0, 0)

	for tick := 0; tick < cfg.Ticks; tick++ {
		now = now.Add(time.Second)

		for i := 0; i < cfg.InsertsPerTick; i++ {
			id := insertRandomMessage(pool, rnd, cfg, now)
			inserted++
			if verbose {
				logger.Debug().
					Int(`tick`, tick).
					Bool(`bestEffort`, id.IsBestEffort()).
					Bool(`response`, id.IsResponse()).
					Bool(`outbound`, id.IsOutbound()).
					Log(`poolsim: inserted message`)
			}
		}

		if pool.HasExpiredDeadlines(now) {
			for _, idm := range pool.ExpireMessages(now) {
				expired++
				if verbose {
					logger.Info().
						Int(`tick`, tick).
						Int(`size`, idm.Message.ByteSize()).
						Log(`poolsim: expired message`)
				}
			}
		}

		if rnd.Float64() < 0.1 {
			if idm, ok := pool.ShedLargestMessage(); ok {
				shed++
				if verbose {
					logger.Warning().
						Int(`tick`, tick).
						Int(`size`, idm.Message.ByteSize()).
						Log(`poolsim: shed message`)
				}
			}
		}
	}

	if verbose {
		logger.Info().
			Int(`remaining`, pool.Len()).
			Int(`memoryUsage`, pool.MemoryUsageStats().MemoryUsage()).
			Log(fmt.Sprintf("poolsim: run complete: %s", pool))
	}

	return inserted, expired, shed
}

func insertRandomMessage(pool *messagepool.MessagePool, rnd *rand.Rand, cfg config, now time.Time) messagepool.MessageId {
	size := 64 + rnd.Intn(256)
	if rnd.Float64() < cfg.OversizeProbability {
		size = messagepool.MaxResponseCountBytes + 1 + rnd.Intn(256)
	}

	bestEffort := rnd.Float64() < cfg.BestEffortFraction
	deadline := messagepool.NoDeadline
	if bestEffort {
		jitter := 1
		if cfg.MaxDeadlineJitter > 0 {
			jitter += rnd.Intn(cfg.MaxDeadlineJitter)
		}
		deadline = messagepool.FloorTime(now.Add(time.Duration(jitter) * time.Second))
	}

	switch rnd.Intn(3) {
	case 0:
		if rnd.Intn(2) == 0 {
			return pool.InsertInbound(messagepool.NewRequest(&messagepool.Request{Deadline: deadline, Size: size}))
		}
		return pool.InsertInbound(messagepool.NewResponse(&messagepool.Response{Deadline: deadline, Size: size}))
	case 1:
		return pool.InsertOutboundRequest(&messagepool.Request{Deadline: deadline, Size: size}, now)
	default:
		return pool.InsertOutboundResponse(&messagepool.Response{Deadline: deadline, Size: size})
	}
}
