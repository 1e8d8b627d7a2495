package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/database/repositories"
)

// ConditionKind tags how a badge threshold is evaluated. Badge conditions are
// a closed set; adding a badge means adding a rule here, not a string
// comparison somewhere in the evaluator.
type ConditionKind int

const (
	ConditionQuestCount ConditionKind = iota
	ConditionLifetimeCoins
	ConditionPurchaseCount
	ConditionGameScore
	ConditionCleanDays
)

// BadgeRule binds a catalog badge type to its unlock condition.
type BadgeRule struct {
	Kind      ConditionKind
	Threshold int64
	Game      models.GameCode // only for ConditionGameScore
}

// badgeRules is the static threshold table, evaluated in catalog order.
var badgeRules = map[models.BadgeType]BadgeRule{
	models.BadgeQuestMaster10:    {Kind: ConditionQuestCount, Threshold: 10},
	models.BadgeQuestMaster50:    {Kind: ConditionQuestCount, Threshold: 50},
	models.BadgeQuestMaster100:   {Kind: ConditionQuestCount, Threshold: 100},
	models.BadgeCoinCollector1K:  {Kind: ConditionLifetimeCoins, Threshold: 1000},
	models.BadgeCoinCollector10K: {Kind: ConditionLifetimeCoins, Threshold: 10000},
	models.BadgeShopRegular10:    {Kind: ConditionPurchaseCount, Threshold: 10},
	models.BadgeArcadeAce500:     {Kind: ConditionGameScore, Threshold: 500, Game: models.GameCalorieQuiz},
	models.BadgeStepMaster1K:     {Kind: ConditionGameScore, Threshold: 1000, Game: models.GameStepChallenge},
	models.BadgeCleanWeek:        {Kind: ConditionCleanDays, Threshold: 7},
	models.BadgeCleanMonth:       {Kind: ConditionCleanDays, Threshold: 30},
}

// userStats are the aggregate counters badge thresholds compare against.
type userStats struct {
	questsCompleted int
	lifetimeCoins   int64
	purchaseCount   int
	bestScores      map[models.GameCode]int64
	cleanDays       int64
}

// GrantedBadge is a badge granted by this evaluation call, for a one-shot
// notification.
type GrantedBadge struct {
	Badge    *models.Badge
	XPResult *CreditResult
}

// BadgeService grants each badge type at most once per user, crediting the
// badge's XP reward through the progression ledger on the winning grant.
type BadgeService struct {
	badgeRepo    repositories.BadgeRepository
	questRepo    repositories.QuestRepository
	progressRepo repositories.ProgressRepository
	crisisRepo   repositories.CrisisRepository
	progression  *ProgressionService
	now          func() time.Time
}

func NewBadgeService(
	badgeRepo repositories.BadgeRepository,
	questRepo repositories.QuestRepository,
	progressRepo repositories.ProgressRepository,
	crisisRepo repositories.CrisisRepository,
	progression *ProgressionService,
) *BadgeService {
	return &BadgeService{
		badgeRepo:    badgeRepo,
		questRepo:    questRepo,
		progressRepo: progressRepo,
		crisisRepo:   crisisRepo,
		progression:  progression,
		now:          time.Now,
	}
}

// EvaluateBadges checks the user's counters against every catalog threshold
// and grants what is newly satisfied. Only badges granted by this call are
// returned; re-running is a no-op for rewards already posted.
func (s *BadgeService) EvaluateBadges(ctx context.Context, userID int64) ([]*GrantedBadge, error) {
	stats, err := s.collectStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to collect user stats: %w", err)
	}

	held, err := s.badgeRepo.HeldBadgeIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	catalog, err := s.badgeRepo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	var granted []*GrantedBadge
	for _, badge := range catalog {
		rule, ok := badgeRules[badge.Type]
		if !ok || held[badge.ID] || !s.satisfied(rule, stats) {
			continue
		}

		g, err := s.grant(ctx, userID, badge)
		if err != nil {
			return granted, err
		}
		if g != nil {
			granted = append(granted, g)
		}
	}

	return granted, nil
}

// GrantBadge grants one specific badge type, used by the milestone engine for
// tier badges. Idempotent under the same insert-if-absent guard.
func (s *BadgeService) GrantBadge(ctx context.Context, userID int64, badgeType models.BadgeType) (*GrantedBadge, error) {
	badge, err := s.badgeRepo.GetByType(ctx, badgeType)
	if err != nil {
		return nil, err
	}
	if badge == nil {
		return nil, fmt.Errorf("badge %s: %w", badgeType, ErrNotFound)
	}

	return s.grant(ctx, userID, badge)
}

func (s *BadgeService) grant(ctx context.Context, userID int64, badge *models.Badge) (*GrantedBadge, error) {
	inserted, err := s.badgeRepo.Grant(ctx, userID, badge.ID)
	if err != nil {
		return nil, err
	}
	if !inserted {
		// A concurrent evaluation won the insert; its call reports the grant.
		return nil, nil
	}

	granted := &GrantedBadge{Badge: badge}
	if badge.XPReward > 0 {
		result, err := s.progression.CreditXP(ctx, userID, badge.XPReward, "badge:"+string(badge.Type))
		if err != nil {
			return nil, fmt.Errorf("failed to credit badge xp: %w", err)
		}
		granted.XPResult = result
	}

	slog.Info("Badge granted",
		slog.Int64("user_id", userID),
		slog.String("badge", string(badge.Type)))

	return granted, nil
}

func (s *BadgeService) collectStats(ctx context.Context, userID int64) (*userStats, error) {
	stats := &userStats{bestScores: map[models.GameCode]int64{}}

	questsCompleted, err := s.questRepo.CountCompleted(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.questsCompleted = questsCompleted

	progress, err := s.progressRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress != nil {
		stats.lifetimeCoins = progress.LifetimeCoins
		stats.purchaseCount = progress.PurchaseCount

		// Clean days anchor on the most recent logged crisis event; a user
		// with no events counts from when their progress row appeared.
		anchor := progress.CreatedAt
		lastEvent, err := s.crisisRepo.LastEventAt(ctx, userID)
		if err != nil {
			return nil, err
		}
		if lastEvent != nil {
			anchor = *lastEvent
		}
		stats.cleanDays = int64(s.now().Sub(anchor).Hours() / 24)
	}

	bestScores, err := s.progressRepo.GetBestScores(ctx, userID)
	if err != nil {
		return nil, err
	}
	stats.bestScores = bestScores

	return stats, nil
}

func (s *BadgeService) satisfied(rule BadgeRule, stats *userStats) bool {
	switch rule.Kind {
	case ConditionQuestCount:
		return int64(stats.questsCompleted) >= rule.Threshold
	case ConditionLifetimeCoins:
		return stats.lifetimeCoins >= rule.Threshold
	case ConditionPurchaseCount:
		return int64(stats.purchaseCount) >= rule.Threshold
	case ConditionGameScore:
		return stats.bestScores[rule.Game] >= rule.Threshold
	case ConditionCleanDays:
		return stats.cleanDays >= rule.Threshold
	default:
		return false
	}
}
