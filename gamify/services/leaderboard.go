package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/database/repositories"
)

// LeaderboardService recomputes per-group rankings over the three windows and
// publishes each as a single replaced snapshot.
type LeaderboardService struct {
	leaderboardRepo repositories.LeaderboardRepository
	parallelism     int
	now             func() time.Time
}

func NewLeaderboardService(leaderboardRepo repositories.LeaderboardRepository, parallelism int) *LeaderboardService {
	if parallelism <= 0 {
		parallelism = 4
	}
	return &LeaderboardService{
		leaderboardRepo: leaderboardRepo,
		parallelism:     parallelism,
		now:             time.Now,
	}
}

// RecordActivity appends one underlying activity row; scores derive from
// these on the next recomputation.
func (s *LeaderboardService) RecordActivity(ctx context.Context, event *models.ActivityEvent) error {
	if event.Points < 0 {
		return fmt.Errorf("activity points %d: %w", event.Points, ErrInvalidAmount)
	}
	return s.leaderboardRepo.InsertActivity(ctx, event)
}

// Recompute rebuilds the (group, period) snapshot. Ranks are contiguous from
// 1; ties resolve by activity count, then user id, so unchanged inputs yield
// an identical ranking. Safe to run concurrently: the last complete snapshot
// wins, and readers never see a partial mix.
func (s *LeaderboardService) Recompute(ctx context.Context, groupID int64, period models.Period) error {
	if !period.Valid() {
		return fmt.Errorf("period %q: %w", period, ErrNotFound)
	}

	since := s.periodStart(period)
	scores, err := s.leaderboardRepo.AggregateScores(ctx, groupID, since)
	if err != nil {
		return err
	}

	computedAt := s.now()
	entries := make([]*models.GroupLeaderboardEntry, len(scores))
	for i, score := range scores {
		entries[i] = &models.GroupLeaderboardEntry{
			GroupID:       groupID,
			Period:        period,
			UserID:        score.UserID,
			Rank:          i + 1,
			Score:         score.Score,
			ActivityCount: score.ActivityCount,
			ComputedAt:    computedAt,
		}
	}

	if err := s.leaderboardRepo.ReplaceSnapshot(ctx, groupID, period, entries); err != nil {
		return err
	}

	slog.Info("Leaderboard recomputed",
		slog.Int64("group_id", groupID),
		slog.String("period", string(period)),
		slog.Int("entries", len(entries)))

	return nil
}

// RecomputeAll rebuilds one period's snapshot for every group with activity,
// a bounded number of groups at a time.
func (s *LeaderboardService) RecomputeAll(ctx context.Context, period models.Period) error {
	groupIDs, err := s.leaderboardRepo.ActiveGroupIDs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active groups: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for _, groupID := range groupIDs {
		groupID := groupID
		g.Go(func() error {
			return s.Recompute(ctx, groupID, period)
		})
	}

	return g.Wait()
}

// Position is a user's standing in the latest snapshot. Unranked means the
// user had no activity in the window, not an error.
type Position struct {
	Unranked bool
	Rank     int
	Score    int64
}

// GetPosition looks up the user in the latest published snapshot.
func (s *LeaderboardService) GetPosition(ctx context.Context, userID, groupID int64, period models.Period) (*Position, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("period %q: %w", period, ErrNotFound)
	}

	entry, err := s.leaderboardRepo.GetEntry(ctx, userID, groupID, period)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return &Position{Unranked: true}, nil
	}

	return &Position{
		Rank:  entry.Rank,
		Score: entry.Score,
	}, nil
}

// GetLeaderboard returns the top entries of the latest snapshot.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, groupID int64, period models.Period, limit int) ([]*models.GroupLeaderboardEntry, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("period %q: %w", period, ErrNotFound)
	}
	if limit <= 0 {
		limit = 10
	}
	return s.leaderboardRepo.GetTop(ctx, groupID, period, limit)
}

// periodStart returns the window's lower bound, nil for ALL_TIME. Weekly
// windows start Monday 00:00 in the deployment timezone so the batch trigger
// and request path agree on "this week".
func (s *LeaderboardService) periodStart(period models.Period) *time.Time {
	now := s.now()

	var start time.Time
	switch period {
	case models.PeriodWeekly:
		days := int(now.Weekday()) - 1
		if days < 0 {
			days = 6
		}
		start = time.Date(now.Year(), now.Month(), now.Day()-days, 0, 0, 0, 0, now.Location())
	case models.PeriodMonthly:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	default:
		return nil
	}

	return &start
}
