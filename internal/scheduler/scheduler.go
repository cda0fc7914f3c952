// Package scheduler runs periodic housekeeping for in-process state.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"code-bounty/internal/log"
)

// Pruner drops expired entries and reports how many were removed.
type Pruner interface {
	Prune() int
}

// Scheduler prunes in-memory limiter and revocation state on a fixed period.
type Scheduler struct {
	sched gocron.Scheduler
}

// New registers one pruning job per named pruner. Nil pruners are skipped.
func New(period time.Duration, pruners map[string]Pruner) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	for name, p := range pruners {
		if p == nil {
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(period),
			gocron.NewTask(runPrune, name, p),
			gocron.WithName("prune_"+name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return nil, fmt.Errorf("failed to schedule %s pruning: %w", name, err)
		}
	}

	return &Scheduler{sched: sched}, nil
}

func runPrune(name string, p Pruner) {
	ctx := log.WithFields(context.Background(), log.LogFields{"job": "prune_" + name})
	if removed := p.Prune(); removed > 0 {
		log.Debug(ctx, "Pruned expired entries", "removed", removed)
	}
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Jobs reports the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return len(s.sched.Jobs())
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}
