package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/slimcircle/gamification/gamify/database/models"
)

// MemberScore is an aggregated per-member score over a ranking window,
// ordered by the aggregator's tie-break before ranks are assigned.
type MemberScore struct {
	UserID        int64 `bun:"user_id"`
	Score         int64 `bun:"score"`
	ActivityCount int   `bun:"activity_count"`
}

type LeaderboardRepository interface {
	InsertActivity(ctx context.Context, event *models.ActivityEvent) error
	AggregateScores(ctx context.Context, groupID int64, since *time.Time) ([]MemberScore, error)
	ReplaceSnapshot(ctx context.Context, groupID int64, period models.Period, entries []*models.GroupLeaderboardEntry) error
	GetEntry(ctx context.Context, userID, groupID int64, period models.Period) (*models.GroupLeaderboardEntry, error)
	GetTop(ctx context.Context, groupID int64, period models.Period, limit int) ([]*models.GroupLeaderboardEntry, error)
	ActiveGroupIDs(ctx context.Context) ([]int64, error)
}

type leaderboardRepository struct {
	db *bun.DB
}

func NewLeaderboardRepository(db *bun.DB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) InsertActivity(ctx context.Context, event *models.ActivityEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(event).Exec(ctx)
	return err
}

// AggregateScores sums activity points per member since the window start
// (unbounded when since is nil), already in rank order: score DESC, activity
// count DESC, user id ASC.
func (r *leaderboardRepository) AggregateScores(ctx context.Context, groupID int64, since *time.Time) ([]MemberScore, error) {
	q := r.db.NewSelect().
		Model((*models.ActivityEvent)(nil)).
		ColumnExpr("user_id").
		ColumnExpr("SUM(points) AS score").
		ColumnExpr("COUNT(*) AS activity_count").
		Where("group_id = ?", groupID).
		GroupExpr("user_id").
		OrderExpr("score DESC, activity_count DESC, user_id ASC")

	if since != nil {
		q = q.Where("created_at >= ?", *since)
	}

	var scores []MemberScore
	if err := q.Scan(ctx, &scores); err != nil {
		return nil, fmt.Errorf("failed to aggregate scores for group %d: %w", groupID, err)
	}

	return scores, nil
}

// ReplaceSnapshot swaps the whole (group, period) ranking inside one
// transaction. Readers see either the previous run or this one, never a mix.
func (r *leaderboardRepository) ReplaceSnapshot(ctx context.Context, groupID int64, period models.Period, entries []*models.GroupLeaderboardEntry) error {
	return r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.GroupLeaderboardEntry)(nil)).
			Where("group_id = ?", groupID).
			Where("period = ?", period).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to clear previous snapshot: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		if _, err := tx.NewInsert().
			Model(&entries).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}

		return nil
	})
}

func (r *leaderboardRepository) GetEntry(ctx context.Context, userID, groupID int64, period models.Period) (*models.GroupLeaderboardEntry, error) {
	entry := new(models.GroupLeaderboardEntry)
	err := r.db.NewSelect().
		Model(entry).
		Where("user_id = ?", userID).
		Where("group_id = ?", groupID).
		Where("period = ?", period).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return entry, nil
}

func (r *leaderboardRepository) GetTop(ctx context.Context, groupID int64, period models.Period, limit int) ([]*models.GroupLeaderboardEntry, error) {
	var entries []*models.GroupLeaderboardEntry
	err := r.db.NewSelect().
		Model(&entries).
		Where("group_id = ?", groupID).
		Where("period = ?", period).
		Order("rank ASC").
		Limit(limit).
		Scan(ctx)

	return entries, err
}

func (r *leaderboardRepository) ActiveGroupIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.ActivityEvent)(nil)).
		ColumnExpr("DISTINCT group_id").
		OrderExpr("group_id ASC").
		Scan(ctx, &ids)

	return ids, err
}
