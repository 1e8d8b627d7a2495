package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"

	"github.com/slimcircle/gamification/gamify/database/models"
)

const badgeCacheSize = 256

type BadgeRepository interface {
	GetByType(ctx context.Context, badgeType models.BadgeType) (*models.Badge, error)
	GetAll(ctx context.Context) ([]*models.Badge, error)
	GetUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error)
	HeldBadgeIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	Grant(ctx context.Context, userID int64, badgeID int64) (bool, error)
}

type badgeRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

func NewBadgeRepository(db *bun.DB) BadgeRepository {
	// Badge catalog is immutable after seeding, so a process-local cache
	// cannot go stale.
	cache, _ := lru.New(badgeCacheSize)
	return &badgeRepository{db: db, cache: cache}
}

func (r *badgeRepository) GetByType(ctx context.Context, badgeType models.BadgeType) (*models.Badge, error) {
	if cached, ok := r.cache.Get(badgeType); ok {
		return cached.(*models.Badge), nil
	}

	badge := new(models.Badge)
	err := r.db.NewSelect().
		Model(badge).
		Where("type = ?", badgeType).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get badge %s: %w", badgeType, err)
	}

	r.cache.Add(badgeType, badge)
	return badge, nil
}

func (r *badgeRepository) GetAll(ctx context.Context) ([]*models.Badge, error) {
	var badges []*models.Badge
	err := r.db.NewSelect().
		Model(&badges).
		Order("id ASC").
		Scan(ctx)

	return badges, err
}

func (r *badgeRepository) GetUserBadges(ctx context.Context, userID int64) ([]*models.UserBadge, error) {
	var earned []*models.UserBadge
	err := r.db.NewSelect().
		Model(&earned).
		Relation("Badge").
		Where("ub.user_id = ?", userID).
		Order("ub.earned_at ASC").
		Scan(ctx)

	return earned, err
}

func (r *badgeRepository) HeldBadgeIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	var ids []int64
	err := r.db.NewSelect().
		Model((*models.UserBadge)(nil)).
		Column("badge_id").
		Where("user_id = ?", userID).
		Scan(ctx, &ids)

	if err != nil {
		return nil, err
	}

	held := make(map[int64]bool, len(ids))
	for _, id := range ids {
		held[id] = true
	}
	return held, nil
}

// Grant inserts the (user, badge) join row if absent. The unique constraint
// collapses concurrent evaluation passes to a single winner; only the winner
// sees true and posts the XP reward.
func (r *badgeRepository) Grant(ctx context.Context, userID int64, badgeID int64) (bool, error) {
	earned := &models.UserBadge{
		UserID:   userID,
		BadgeID:  badgeID,
		EarnedAt: time.Now(),
	}

	res, err := r.db.NewInsert().
		Model(earned).
		On("CONFLICT (user_id, badge_id) DO NOTHING").
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to grant badge: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
