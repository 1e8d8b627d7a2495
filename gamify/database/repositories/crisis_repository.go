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

// DecideBonusFunc computes the XP (0 when rate-limited) and a reason code for
// a crisis resolution, given the rewarded-resolution count inside the rolling
// window and the timestamp of the most recent rewarded resolution. The policy
// lives in the service; this package only guarantees the decision and the
// credit happen under one per-user lock.
type DecideBonusFunc func(rewardedInWindow int, lastRewardedAt *time.Time) (xp int64, reason string)

type CrisisRepository interface {
	InsertResolved(ctx context.Context, userID int64, trigger models.CrisisTrigger, now time.Time) (*models.CrisisEvent, error)
	AwardBonus(ctx context.Context, userID, eventID int64, now time.Time, window time.Duration, decide DecideBonusFunc) (int64, string, error)
	LastEventAt(ctx context.Context, userID int64) (*time.Time, error)
	CountResolvedSince(ctx context.Context, userID int64, since time.Time) (int, error)
}

type crisisRepository struct {
	db *bun.DB
}

func NewCrisisRepository(db *bun.DB) CrisisRepository {
	return &crisisRepository{db: db}
}

// InsertResolved records the resolution itself. This always succeeds
// regardless of reward limits; marking the crisis handled is the user's
// action, the bonus is a separate concern.
func (r *crisisRepository) InsertResolved(ctx context.Context, userID int64, trigger models.CrisisTrigger, now time.Time) (*models.CrisisEvent, error) {
	event := &models.CrisisEvent{
		UserID:     userID,
		Trigger:    trigger,
		Resolved:   true,
		ResolvedAt: &now,
		CreatedAt:  now,
	}

	_, err := r.db.NewInsert().Model(event).Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to record crisis resolution: %w", err)
	}

	return event, nil
}

// AwardBonus serializes reward accounting on the user's progress row with a
// FOR UPDATE lock, so concurrent resolutions across instances cannot both
// count as the same slot under the daily cap. The XP credit and the event's
// xp_awarded marker commit together or not at all.
func (r *crisisRepository) AwardBonus(ctx context.Context, userID, eventID int64, now time.Time, window time.Duration, decide DecideBonusFunc) (int64, string, error) {
	var xp int64
	var reason string

	err := r.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		base := &models.UserProgress{UserID: userID, Level: 1, CreatedAt: now, UpdatedAt: now}
		if _, err := tx.NewInsert().
			Model(base).
			On("CONFLICT (user_id) DO NOTHING").
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to ensure progress row: %w", err)
		}

		locked := new(models.UserProgress)
		if err := tx.NewSelect().
			Model(locked).
			Where("user_id = ?", userID).
			For("UPDATE").
			Scan(ctx); err != nil {
			return fmt.Errorf("failed to lock progress row: %w", err)
		}

		rewarded, err := tx.NewSelect().
			Model((*models.CrisisEvent)(nil)).
			Where("user_id = ?", userID).
			Where("xp_awarded > 0").
			Where("resolved_at >= ?", now.Add(-window)).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("failed to count rewarded resolutions: %w", err)
		}

		var last sql.NullTime
		err = tx.NewSelect().
			Model((*models.CrisisEvent)(nil)).
			ColumnExpr("MAX(resolved_at)").
			Where("user_id = ?", userID).
			Where("xp_awarded > 0").
			Scan(ctx, &last)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("failed to find last rewarded resolution: %w", err)
		}

		var lastAt *time.Time
		if last.Valid {
			lastAt = &last.Time
		}

		xp, reason = decide(rewarded, lastAt)
		if xp <= 0 {
			return nil
		}

		if _, err := addXP(ctx, tx, userID, xp, now); err != nil {
			return err
		}

		if _, err := tx.NewUpdate().
			Model((*models.CrisisEvent)(nil)).
			Set("xp_awarded = ?", xp).
			Where("id = ?", eventID).
			Exec(ctx); err != nil {
			return fmt.Errorf("failed to mark rewarded resolution: %w", err)
		}

		return nil
	})

	if err != nil {
		return 0, "", err
	}

	return xp, reason, nil
}

// LastEventAt returns the most recent crisis event time for the user, the
// anchor for the clean-days badges. Nil when the user never logged one.
func (r *crisisRepository) LastEventAt(ctx context.Context, userID int64) (*time.Time, error) {
	var last sql.NullTime
	err := r.db.NewSelect().
		Model((*models.CrisisEvent)(nil)).
		ColumnExpr("MAX(created_at)").
		Where("user_id = ?", userID).
		Scan(ctx, &last)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}

func (r *crisisRepository) CountResolvedSince(ctx context.Context, userID int64, since time.Time) (int, error) {
	return r.db.NewSelect().
		Model((*models.CrisisEvent)(nil)).
		Where("user_id = ?", userID).
		Where("resolved = TRUE").
		Where("resolved_at >= ?", since).
		Count(ctx)
}
