package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/uptrace/bun"

	"github.com/slimcircle/gamification/gamify/database/models"
)

const questCacheSize = 512

type QuestRepository interface {
	// Quest catalog
	GetQuest(ctx context.Context, id int64) (*models.Quest, error)
	GetActiveQuestsByType(ctx context.Context, questType models.QuestType) ([]*models.Quest, error)

	// Assignments
	CreateAssignment(ctx context.Context, assignment *models.UserQuest) error
	GetAssignment(ctx context.Context, id int64) (*models.UserQuest, error)
	GetActiveAssignments(ctx context.Context, userID int64) ([]*models.UserQuest, error)
	AdvanceProgress(ctx context.Context, userID int64, targetType models.TargetType, increment int) ([]*models.UserQuest, error)
	ClaimAssignment(ctx context.Context, id int64) (bool, error)
	CountCompleted(ctx context.Context, userID int64) (int, error)
	DeleteExpiredUnclaimed(ctx context.Context) (int64, error)
}

type questRepository struct {
	db    *bun.DB
	cache *lru.Cache
}

func NewQuestRepository(db *bun.DB) QuestRepository {
	// Quest catalog is seed-managed and read-only at runtime.
	cache, _ := lru.New(questCacheSize)
	return &questRepository{db: db, cache: cache}
}

// Quest catalog

func (r *questRepository) GetQuest(ctx context.Context, id int64) (*models.Quest, error) {
	if cached, ok := r.cache.Get(id); ok {
		return cached.(*models.Quest), nil
	}

	quest := new(models.Quest)
	err := r.db.NewSelect().
		Model(quest).
		Where("id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quest %d: %w", id, err)
	}

	r.cache.Add(id, quest)
	return quest, nil
}

func (r *questRepository) GetActiveQuestsByType(ctx context.Context, questType models.QuestType) ([]*models.Quest, error) {
	var quests []*models.Quest
	err := r.db.NewSelect().
		Model(&quests).
		Where("type = ?", questType).
		Where("is_active = TRUE").
		Order("priority DESC", "quest_id ASC").
		Scan(ctx)

	return quests, err
}

// Assignments

func (r *questRepository) CreateAssignment(ctx context.Context, assignment *models.UserQuest) error {
	assignment.CreatedAt = time.Now()
	assignment.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().Model(assignment).Exec(ctx)
	return err
}

func (r *questRepository) GetAssignment(ctx context.Context, id int64) (*models.UserQuest, error) {
	assignment := new(models.UserQuest)
	err := r.db.NewSelect().
		Model(assignment).
		Relation("Quest").
		Where("uq.id = ?", id).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return assignment, nil
}

func (r *questRepository) GetActiveAssignments(ctx context.Context, userID int64) ([]*models.UserQuest, error) {
	var assignments []*models.UserQuest
	err := r.db.NewSelect().
		Model(&assignments).
		Relation("Quest").
		Where("uq.user_id = ?", userID).
		Where("uq.expires_at IS NULL OR uq.expires_at > ?", time.Now()).
		Order("uq.quest_id ASC").
		Scan(ctx)

	if err != nil {
		slog.Error("Failed to get active assignments",
			slog.String("type", "db"),
			slog.Int64("user_id", userID),
			slog.Any("error", err))
		return nil, err
	}

	return assignments, nil
}

// AdvanceProgress adds increment to every live assignment whose quest tracks
// targetType, flipping completed in the same statement once the target is
// reached. One UPDATE, so a burst of events cannot lose increments.
func (r *questRepository) AdvanceProgress(ctx context.Context, userID int64, targetType models.TargetType, increment int) ([]*models.UserQuest, error) {
	now := time.Now()
	var updated []*models.UserQuest

	_, err := r.db.NewUpdate().
		Model((*models.UserQuest)(nil)).
		ModelTableExpr("user_quests AS uq").
		TableExpr("quests AS q").
		Set("progress = uq.progress + ?", increment).
		Set("completed = uq.progress + ? >= q.target_value", increment).
		Set("completed_at = CASE WHEN uq.progress + ? >= q.target_value THEN ? ELSE uq.completed_at END", increment, now).
		Set("updated_at = ?", now).
		Where("q.id = uq.quest_id").
		Where("uq.user_id = ?", userID).
		Where("q.target_type = ?", targetType).
		Where("q.is_active = TRUE").
		Where("uq.completed = FALSE").
		Where("uq.expires_at IS NULL OR uq.expires_at > ?", now).
		Returning("uq.*").
		Exec(ctx, &updated)

	if err != nil {
		return nil, fmt.Errorf("failed to advance quest progress: %w", err)
	}

	return updated, nil
}

// ClaimAssignment flips reward_claimed under its own guard. Of N concurrent
// claims exactly one sees true; the rest lost the race.
func (r *questRepository) ClaimAssignment(ctx context.Context, id int64) (bool, error) {
	now := time.Now()
	res, err := r.db.NewUpdate().
		Model((*models.UserQuest)(nil)).
		Set("reward_claimed = TRUE").
		Set("claimed_at = ?", now).
		Set("updated_at = ?", now).
		Where("id = ?", id).
		Where("completed = TRUE").
		Where("reward_claimed = FALSE").
		Exec(ctx)

	if err != nil {
		return false, fmt.Errorf("failed to claim assignment: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (r *questRepository) CountCompleted(ctx context.Context, userID int64) (int, error) {
	return r.db.NewSelect().
		Model((*models.UserQuest)(nil)).
		Where("user_id = ?", userID).
		Where("completed = TRUE").
		Count(ctx)
}

func (r *questRepository) DeleteExpiredUnclaimed(ctx context.Context) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*models.UserQuest)(nil)).
		Where("expires_at < ?", time.Now()).
		Where("reward_claimed = FALSE").
		Exec(ctx)

	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
