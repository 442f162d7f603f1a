package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// RolloverSpec runs shortly after local midnight so the new day's
// instants are resolved once the date has changed.
const RolloverSpec = "1 0 * * *"

const jobTimeout = 2 * time.Minute

type Runner interface {
	Sync(ctx context.Context) error
	Foreground(ctx context.Context) error
}

type Jobs struct {
	runner   Runner
	cron     *cron.Cron
	interval time.Duration
	logger   zerolog.Logger
}

func NewJobs(runner Runner, reconcileEvery time.Duration, zone *time.Location, logger zerolog.Logger) *Jobs {
	if zone == nil {
		zone = time.Local
	}
	return &Jobs{
		runner:   runner,
		cron:     cron.New(cron.WithLocation(zone)),
		interval: reconcileEvery,
		logger:   logger.With().Str("component", "jobs").Logger(),
	}
}

func (j *Jobs) Start() error {
	if _, err := j.cron.AddFunc(RolloverSpec, func() { j.run("rollover", j.runner.Sync) }); err != nil {
		return fmt.Errorf("add rollover job: %w", err)
	}
	if j.interval > 0 {
		spec := fmt.Sprintf("@every %s", j.interval.String())
		if _, err := j.cron.AddFunc(spec, func() { j.run("reconcile", j.runner.Foreground) }); err != nil {
			return fmt.Errorf("add reconcile job: %w", err)
		}
	}
	j.cron.Start()
	j.logger.Info().Dur("reconcile_every", j.interval).Msg("jobs started")
	return nil
}

func (j *Jobs) Stop() {
	<-j.cron.Stop().Done()
	j.logger.Info().Msg("jobs stopped")
}

func (j *Jobs) Entries() int {
	return len(j.cron.Entries())
}

func (j *Jobs) run(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	start := time.Now()
	if err := fn(ctx); err != nil {
		j.logger.Error().Err(err).Str("job", name).Msg("job failed")
		return
	}
	j.logger.Debug().Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}
