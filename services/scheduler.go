// services/scheduler.go
package services

import (
	"context"
	"fmt"
	"time"

	"lesson-league-system/logging"

	"github.com/go-co-op/gocron/v2"
)

// StartLeagueScheduler runs the league rollover every Monday at 00:05 UTC and
// once at startup to catch up on weeks missed while the server was down.
// The caller shuts the returned scheduler down.
func (s *LeagueService) StartLeagueScheduler(ctx context.Context) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.WeeklyJob(1, gocron.NewWeekdays(time.Monday), gocron.NewAtTimes(gocron.NewAtTime(0, 5, 0))),
		gocron.NewTask(func() {
			n, err := s.Rollover(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("[Scheduler] league rollover error")
				return
			}
			logging.Debug().Int("leagues", n).Msg("[Scheduler] league rollover ran")
		}),
		gocron.WithName("league-rollover"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, fmt.Errorf("failed to schedule league rollover: %w", err)
	}

	sched.Start()
	logging.Info().Msg("[Scheduler] league rollover scheduled (weekly, Monday 00:05 UTC)")
	return sched, nil
}
