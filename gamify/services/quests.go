package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/database/repositories"
)

// QuestService tracks per-user progress against the quest catalog. Completion
// is silent; rewards only move on the explicit, at-most-once claim step.
type QuestService struct {
	questRepo   repositories.QuestRepository
	progression *ProgressionService
	badges      *BadgeService
	now         func() time.Time
}

func NewQuestService(questRepo repositories.QuestRepository, progression *ProgressionService, badges *BadgeService) *QuestService {
	return &QuestService{
		questRepo:   questRepo,
		progression: progression,
		badges:      badges,
		now:         time.Now,
	}
}

// QuestReward is the outcome of a successful claim.
type QuestReward struct {
	Coins     int64
	XP        int64
	XPResult  *CreditResult
	NewBadges []*GrantedBadge
}

// RecordProgress advances every live assignment tracking targetType by
// increment and reports the updated rows, then re-evaluates badges for
// completions. A single event can advance multiple quests.
func (s *QuestService) RecordProgress(ctx context.Context, userID int64, targetType models.TargetType, increment int) ([]*models.UserQuest, error) {
	if increment <= 0 {
		return nil, fmt.Errorf("progress increment %d: %w", increment, ErrInvalidAmount)
	}

	updated, err := s.questRepo.AdvanceProgress(ctx, userID, targetType, increment)
	if err != nil {
		return nil, err
	}

	completed := 0
	for _, uq := range updated {
		if uq.Completed {
			completed++
		}
	}

	if completed > 0 {
		slog.Info("Quests completed",
			slog.Int64("user_id", userID),
			slog.String("target_type", string(targetType)),
			slog.Int("count", completed))

		// Completion can satisfy quest-count badges immediately.
		if _, err := s.badges.EvaluateBadges(ctx, userID); err != nil {
			slog.Error("Failed to evaluate badges after quest completion",
				slog.Int64("user_id", userID),
				slog.Any("error", err))
		}
	}

	return updated, nil
}

// ClaimReward posts the reward for one completed assignment. Exactly one of N
// concurrent claims succeeds; the rest observe ErrAlreadyClaimed.
func (s *QuestService) ClaimReward(ctx context.Context, questRowID, userID int64) (*QuestReward, error) {
	assignment, err := s.questRepo.GetAssignment(ctx, questRowID)
	if err != nil {
		return nil, err
	}
	if assignment == nil {
		return nil, fmt.Errorf("assignment %d: %w", questRowID, ErrNotFound)
	}
	if assignment.UserID != userID {
		return nil, fmt.Errorf("assignment %d: %w", questRowID, ErrForbidden)
	}
	if assignment.RewardClaimed {
		// A posted reward stays claimed even after the window lapses.
		return nil, fmt.Errorf("assignment %d: %w", questRowID, ErrAlreadyClaimed)
	}
	if assignment.Expired(s.now()) {
		return nil, fmt.Errorf("assignment %d: %w", questRowID, ErrExpired)
	}
	if !assignment.Completed {
		return nil, fmt.Errorf("assignment %d: %w", questRowID, ErrNotCompleted)
	}
	if assignment.Quest == nil {
		return nil, fmt.Errorf("quest for assignment %d: %w", questRowID, ErrNotFound)
	}

	claimed, err := s.questRepo.ClaimAssignment(ctx, questRowID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		// Lost the conditional update to a concurrent claim.
		return nil, fmt.Errorf("assignment %d: %w", questRowID, ErrAlreadyClaimed)
	}

	reward := &QuestReward{
		Coins: assignment.Quest.CoinReward,
		XP:    assignment.Quest.XPReward,
	}

	if reward.Coins > 0 {
		if _, err := s.progression.CreditCoins(ctx, userID, reward.Coins); err != nil {
			return nil, fmt.Errorf("failed to credit quest coins: %w", err)
		}
	}
	if reward.XP > 0 {
		result, err := s.progression.CreditXP(ctx, userID, reward.XP, "quest:"+assignment.Quest.QuestID)
		if err != nil {
			return nil, fmt.Errorf("failed to credit quest xp: %w", err)
		}
		reward.XPResult = result
	}

	newBadges, err := s.badges.EvaluateBadges(ctx, userID)
	if err != nil {
		slog.Error("Failed to evaluate badges after claim",
			slog.Int64("user_id", userID),
			slog.Any("error", err))
	}
	reward.NewBadges = newBadges

	slog.Info("Quest reward claimed",
		slog.Int64("user_id", userID),
		slog.String("quest_id", assignment.Quest.QuestID),
		slog.Int64("coins", reward.Coins),
		slog.Int64("xp", reward.XP))

	return reward, nil
}

// AssignQuests gives the user the active catalog quests of a type, skipping
// ones already assigned and unexpired. Expiry is the type's next reset.
func (s *QuestService) AssignQuests(ctx context.Context, userID int64, questType models.QuestType) error {
	active, err := s.questRepo.GetActiveAssignments(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to get active assignments: %w", err)
	}

	assigned := make(map[int64]bool, len(active))
	for _, uq := range active {
		assigned[uq.QuestID] = true
	}

	catalog, err := s.questRepo.GetActiveQuestsByType(ctx, questType)
	if err != nil {
		return fmt.Errorf("failed to load quest catalog: %w", err)
	}

	expiresAt := s.nextReset(questType)
	for _, quest := range catalog {
		if assigned[quest.ID] {
			continue
		}

		assignment := &models.UserQuest{
			UserID:    userID,
			QuestID:   quest.ID,
			ExpiresAt: expiresAt,
		}
		if err := s.questRepo.CreateAssignment(ctx, assignment); err != nil {
			slog.Error("Failed to assign quest",
				slog.Int64("user_id", userID),
				slog.String("quest_id", quest.QuestID),
				slog.Any("error", err))
			continue
		}

		slog.Debug("Quest assigned",
			slog.Int64("user_id", userID),
			slog.String("quest_id", quest.QuestID))
	}

	return nil
}

// GetActiveQuests returns the user's live assignments for display.
func (s *QuestService) GetActiveQuests(ctx context.Context, userID int64) ([]*models.UserQuest, error) {
	return s.questRepo.GetActiveAssignments(ctx, userID)
}

// ExpireStaleAssignments removes expired unclaimed assignments; run from the
// periodic maintenance trigger.
func (s *QuestService) ExpireStaleAssignments(ctx context.Context) error {
	deleted, err := s.questRepo.DeleteExpiredUnclaimed(ctx)
	if err != nil {
		return err
	}
	if deleted > 0 {
		slog.Info("Expired quest assignments removed", slog.Int64("count", deleted))
	}
	return nil
}

// nextReset returns the expiry boundary for a quest type: next midnight, next
// Monday, or the first of next month, in the deployment's timezone.
func (s *QuestService) nextReset(questType models.QuestType) *time.Time {
	now := s.now()

	var reset time.Time
	switch questType {
	case models.QuestTypeDaily:
		reset = time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
	case models.QuestTypeWeekly:
		days := (8 - int(now.Weekday())) % 7
		if days == 0 {
			days = 7
		}
		reset = time.Date(now.Year(), now.Month(), now.Day()+days, 0, 0, 0, 0, now.Location())
	case models.QuestTypeMonthly:
		reset = time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
	default:
		// Special quests don't expire.
		return nil
	}

	return &reset
}
