package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/slimcircle/gamification/gamify/database/models"
)

type ProgressRepository interface {
	Get(ctx context.Context, userID int64) (*models.UserProgress, error)
	AddXP(ctx context.Context, userID int64, amount int64) (*models.UserProgress, error)
	AddCoins(ctx context.Context, userID int64, amount int64) (*models.UserProgress, error)
	DebitCoins(ctx context.Context, userID int64, amount int64) (*models.UserProgress, bool, error)
	IncrementPurchases(ctx context.Context, userID int64) error
	RecordLogin(ctx context.Context, userID int64, today time.Time) (*models.UserProgress, error)
	RecordGameScore(ctx context.Context, userID int64, game models.GameCode, score int64) error
	GetBestScores(ctx context.Context, userID int64) (map[models.GameCode]int64, error)
	InsertXPTransaction(ctx context.Context, tx *models.XPTransaction) error
}

type progressRepository struct {
	db *bun.DB
}

func NewProgressRepository(db *bun.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) Get(ctx context.Context, userID int64) (*models.UserProgress, error) {
	progress := new(models.UserProgress)
	err := r.db.NewSelect().
		Model(progress).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return progress, nil
}

// AddXP credits experience and merges the derived level in a single upsert so
// concurrent credits can neither lose an increment nor leave a stale level.
func (r *progressRepository) AddXP(ctx context.Context, userID int64, amount int64) (*models.UserProgress, error) {
	return addXP(ctx, r.db, userID, amount, time.Now())
}

// addXP is shared with the crisis repository, which posts rewards inside its
// own transaction.
func addXP(ctx context.Context, idb bun.IDB, userID int64, amount int64, now time.Time) (*models.UserProgress, error) {
	progress := &models.UserProgress{
		UserID:    userID,
		XP:        amount,
		Level:     models.LevelForXP(amount),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := idb.NewInsert().
		Model(progress).
		On("CONFLICT (user_id) DO UPDATE").
		Set("xp = user_progress.xp + EXCLUDED.xp").
		Set("level = GREATEST(user_progress.level, FLOOR(SQRT((user_progress.xp + EXCLUDED.xp) / 100.0))::int + 1)").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to credit xp: %w", err)
	}

	return progress, nil
}

// AddCoins credits spendable coins; the lifetime total only ever grows and
// feeds the coin badges.
func (r *progressRepository) AddCoins(ctx context.Context, userID int64, amount int64) (*models.UserProgress, error) {
	now := time.Now()
	progress := &models.UserProgress{
		UserID:        userID,
		Coins:         amount,
		LifetimeCoins: amount,
		Level:         1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (user_id) DO UPDATE").
		Set("coins = user_progress.coins + EXCLUDED.coins").
		Set("lifetime_coins = user_progress.lifetime_coins + EXCLUDED.lifetime_coins").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to credit coins: %w", err)
	}

	return progress, nil
}

// DebitCoins subtracts amount (positive value) guarded against going
// negative. The bool reports whether the debit was applied; false with a nil
// error means the balance check or the row lookup failed the predicate.
func (r *progressRepository) DebitCoins(ctx context.Context, userID int64, amount int64) (*models.UserProgress, bool, error) {
	progress := new(models.UserProgress)
	res, err := r.db.NewUpdate().
		Model(progress).
		Set("coins = coins - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("coins - ? >= 0", amount).
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, false, fmt.Errorf("failed to debit coins: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, false, err
	}
	if rows == 0 {
		return nil, false, nil
	}

	return progress, true, nil
}

func (r *progressRepository) IncrementPurchases(ctx context.Context, userID int64) error {
	now := time.Now()
	progress := &models.UserProgress{
		UserID:        userID,
		Level:         1,
		PurchaseCount: 1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (user_id) DO UPDATE").
		Set("purchase_count = user_progress.purchase_count + 1").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

// RecordLogin advances the consecutive-day streak: same day is a no-op,
// yesterday extends, anything older resets to 1. One statement, so two
// instances recording the same login cannot double-extend.
func (r *progressRepository) RecordLogin(ctx context.Context, userID int64, today time.Time) (*models.UserProgress, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	progress := &models.UserProgress{
		UserID:        userID,
		Level:         1,
		Streak:        1,
		LastLoginDate: &day,
		CreatedAt:     today,
		UpdatedAt:     today,
	}

	_, err := r.db.NewInsert().
		Model(progress).
		On("CONFLICT (user_id) DO UPDATE").
		Set(`streak = CASE
			WHEN user_progress.last_login_date = EXCLUDED.last_login_date THEN user_progress.streak
			WHEN user_progress.last_login_date = EXCLUDED.last_login_date - INTERVAL '1 day' THEN user_progress.streak + 1
			ELSE 1 END`).
		Set("last_login_date = EXCLUDED.last_login_date").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)

	if err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}

	return progress, nil
}

// RecordGameScore keeps the best single-session score per game.
func (r *progressRepository) RecordGameScore(ctx context.Context, userID int64, game models.GameCode, score int64) error {
	entry := &models.GameScore{
		UserID:    userID,
		Game:      game,
		BestScore: score,
		UpdatedAt: time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(entry).
		On("CONFLICT (user_id, game) DO UPDATE").
		Set("best_score = GREATEST(game_scores.best_score, EXCLUDED.best_score)").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

func (r *progressRepository) GetBestScores(ctx context.Context, userID int64) (map[models.GameCode]int64, error) {
	var scores []*models.GameScore
	err := r.db.NewSelect().
		Model(&scores).
		Where("user_id = ?", userID).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	best := make(map[models.GameCode]int64, len(scores))
	for _, s := range scores {
		best[s.Game] = s.BestScore
	}
	return best, nil
}

// InsertXPTransaction appends an audit row. Failures are the caller's to log;
// the authoritative counters are already committed.
func (r *progressRepository) InsertXPTransaction(ctx context.Context, tx *models.XPTransaction) error {
	tx.CreatedAt = time.Now()
	_, err := r.db.NewInsert().Model(tx).Exec(ctx)
	if err != nil {
		slog.Error("Failed to insert xp transaction",
			slog.String("type", "db"),
			slog.String("reference", tx.Reference),
			slog.Int64("user_id", tx.UserID),
			slog.Any("error", err))
	}
	return err
}
