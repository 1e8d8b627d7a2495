package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/logger"
)

// Scheduler drives the time-based triggers: periodic leaderboard
// recomputation and quest-assignment expiry. It is an in-process stand-in for
// an external cron; running several instances is safe because every operation
// it triggers is idempotent against the store.
type Scheduler struct {
	leaderboard *LeaderboardService
	quests      *QuestService
	interval    time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(leaderboard *LeaderboardService, quests *QuestService, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Scheduler{
		leaderboard: leaderboard,
		quests:      quests,
		interval:    interval,
	}
}

// Start launches the recomputation loop. Stop with Stop or by cancelling the
// parent context.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Scheduler panic", slog.Any("panic", r))
			}
		}()

		slog.Info("Starting leaderboard scheduler",
			slog.Duration("interval", s.interval))

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Leaderboard scheduler stopped")
				return
			case <-ticker.C:
				s.runCycle(ctx)
			}
		}
	}()
}

func (s *Scheduler) runCycle(ctx context.Context) {
	start := time.Now()

	for _, period := range []models.Period{models.PeriodWeekly, models.PeriodMonthly, models.PeriodAllTime} {
		if err := s.leaderboard.RecomputeAll(ctx, period); err != nil {
			logger.LogError("Leaderboard recomputation failed", err,
				slog.String("period", string(period)))
		}
	}

	if err := s.quests.ExpireStaleAssignments(ctx); err != nil {
		logger.LogError("Quest expiry sweep failed", err)
	}

	logger.LogSystem("Scheduler cycle finished",
		slog.Duration("took", time.Since(start)))
}

// Stop cancels the loop and waits for the in-flight cycle.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}
