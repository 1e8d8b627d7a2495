package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/database/repositories"
)

// ProgressionService is the single place XP and coins are credited and the
// level is recomputed. Everything else posts rewards through it.
type ProgressionService struct {
	progressRepo repositories.ProgressRepository
}

func NewProgressionService(progressRepo repositories.ProgressRepository) *ProgressionService {
	return &ProgressionService{progressRepo: progressRepo}
}

// CreditResult reports the counters after a credit and whether the credit
// crossed a level boundary.
type CreditResult struct {
	XP        int64
	Level     int
	LeveledUp bool
}

// CreditXP atomically adds amount to the user's XP and merges the derived
// level upward. LeveledUp is derived from the returned XP, not from a
// separate read, so concurrent credits each report their own crossing.
func (s *ProgressionService) CreditXP(ctx context.Context, userID int64, amount int64, reason string) (*CreditResult, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("credit of %d xp: %w", amount, ErrInvalidAmount)
	}

	progress, err := s.progressRepo.AddXP(ctx, userID, amount)
	if err != nil {
		return nil, err
	}

	result := &CreditResult{
		XP:        progress.XP,
		Level:     progress.Level,
		LeveledUp: models.LevelForXP(progress.XP) > models.LevelForXP(progress.XP-amount),
	}

	// Audit trail only; the counters above are already committed.
	_ = s.progressRepo.InsertXPTransaction(ctx, &models.XPTransaction{
		Reference: uuid.NewString(),
		UserID:    userID,
		Amount:    amount,
		Reason:    reason,
	})

	if result.LeveledUp {
		slog.Info("User leveled up",
			slog.Int64("user_id", userID),
			slog.Int("level", result.Level),
			slog.String("reason", reason))
	}

	return result, nil
}

// CreditCoins adds amount to the spendable balance. Negative amounts are
// debits (shop purchases) and fail with ErrInsufficientBalance rather than
// driving the balance negative.
func (s *ProgressionService) CreditCoins(ctx context.Context, userID int64, amount int64) (int64, error) {
	if amount == 0 {
		return 0, fmt.Errorf("credit of 0 coins: %w", ErrInvalidAmount)
	}

	if amount > 0 {
		progress, err := s.progressRepo.AddCoins(ctx, userID, amount)
		if err != nil {
			return 0, err
		}
		return progress.Coins, nil
	}

	progress, ok, err := s.progressRepo.DebitCoins(ctx, userID, -amount)
	if err != nil {
		return 0, err
	}
	if !ok {
		existing, err := s.progressRepo.Get(ctx, userID)
		if err != nil {
			return 0, err
		}
		if existing == nil {
			return 0, fmt.Errorf("user %d: %w", userID, ErrNotFound)
		}
		return existing.Coins, fmt.Errorf("debit of %d coins: %w", -amount, ErrInsufficientBalance)
	}

	return progress.Coins, nil
}

// RecordPurchase bumps the shop-purchase counter that feeds purchase badges.
func (s *ProgressionService) RecordPurchase(ctx context.Context, userID int64) error {
	return s.progressRepo.IncrementPurchases(ctx, userID)
}

// RecordGameScore reports a finished game session; only a new personal best
// changes stored state.
func (s *ProgressionService) RecordGameScore(ctx context.Context, userID int64, game models.GameCode, score int64) error {
	if score < 0 {
		return fmt.Errorf("game score %d: %w", score, ErrInvalidAmount)
	}
	return s.progressRepo.RecordGameScore(ctx, userID, game, score)
}

// GetProgress returns the user's counters, or ErrNotFound for a user who has
// never earned anything.
func (s *ProgressionService) GetProgress(ctx context.Context, userID int64) (*models.UserProgress, error) {
	progress, err := s.progressRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	return progress, nil
}
