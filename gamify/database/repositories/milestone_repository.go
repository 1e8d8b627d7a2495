package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"github.com/slimcircle/gamification/gamify/database/models"
)

type MilestoneRepository interface {
	Claim(ctx context.Context, userID int64, milestoneKey string) (bool, error)
	GetClaims(ctx context.Context, userID int64) ([]*models.UserMilestoneClaim, error)
}

type milestoneRepository struct {
	db *bun.DB
}

func NewMilestoneRepository(db *bun.DB) MilestoneRepository {
	return &milestoneRepository{db: db}
}

// Claim records the (user, milestone) payout if absent. False means another
// claim already holds the pair.
func (r *milestoneRepository) Claim(ctx context.Context, userID int64, milestoneKey string) (bool, error) {
	claim := &models.UserMilestoneClaim{
		UserID:       userID,
		MilestoneKey: milestoneKey,
		ClaimedAt:    time.Now(),
	}

	res, err := r.db.NewInsert().
		Model(claim).
		On("CONFLICT (user_id, milestone_key) DO NOTHING").
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to claim milestone: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *milestoneRepository) GetClaims(ctx context.Context, userID int64) ([]*models.UserMilestoneClaim, error) {
	var claims []*models.UserMilestoneClaim
	err := r.db.NewSelect().
		Model(&claims).
		Where("user_id = ?", userID).
		Order("claimed_at ASC").
		Scan(ctx)

	return claims, err
}
