package scheduler

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/foliosim/internal/modules/runner"
)

// ActionClock gates intraday work to open-market grid minutes.
type ActionClock interface {
	IsActionTime(exchange string, t time.Time) bool
}

// RebalanceJob runs the live portfolio runner on the intraday grid. The
// cron fires every minute; the clock decides whether this minute does work.
type RebalanceJob struct {
	runner   *runner.Service
	clock    ActionClock
	exchange string
	now      func() time.Time
	log      zerolog.Logger
}

// NewRebalanceJob creates a rebalance job. clock may be nil to run on
// every tick.
func NewRebalanceJob(r *runner.Service, clock ActionClock, exchange string, log zerolog.Logger) *RebalanceJob {
	return &RebalanceJob{
		runner:   r,
		clock:    clock,
		exchange: exchange,
		now:      time.Now,
		log:      log.With().Str("job", "rebalance").Logger(),
	}
}

// Name implements Job.
func (j *RebalanceJob) Name() string { return "rebalance" }

// Run implements Job.
func (j *RebalanceJob) Run() error {
	now := j.now()
	if j.clock != nil && !j.clock.IsActionTime(j.exchange, now) {
		return nil
	}

	res, err := j.runner.RunOnce(now)
	if err != nil {
		return err
	}
	if !res.Skipped {
		j.log.Info().
			Str("run_id", res.RunID).
			Float64("equity", res.Equity).
			Msg("Scheduled rebalance complete")
	}
	return nil
}
