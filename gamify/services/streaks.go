package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/database/repositories"
)

// Reason codes on rate-limited crisis outcomes. The resolution itself still
// succeeded; clients show a reward banner only when XPAwarded > 0.
const (
	ReasonRewarded = "rewarded"
	ReasonDailyCap = "daily_cap"
	ReasonCooldown = "cooldown"
)

// CrisisPolicy are the anti-abuse knobs for crisis-resolution bonuses. All of
// its state lives in the durable store; nothing here is per-process.
type CrisisPolicy struct {
	Window   time.Duration // rolling window for the daily cap
	DailyCap int           // rewarded resolutions per window
	Cooldown time.Duration // minimum gap between rewarded resolutions
	BaseXP   int64         // first reward of the window
	StepXP   int64         // decay per rewarded resolution
	FloorXP  int64         // minimum non-zero reward
}

// DefaultCrisisPolicy: 50, 40, 30, 20, 10, then 0 for the rest of the day,
// with an hour between rewarded resolutions.
func DefaultCrisisPolicy() CrisisPolicy {
	return CrisisPolicy{
		Window:   24 * time.Hour,
		DailyCap: 5,
		Cooldown: time.Hour,
		BaseXP:   50,
		StepXP:   10,
		FloorXP:  10,
	}
}

// StreakService owns login streaks, streak-milestone claims, and the
// crisis-resolution bonus schedule.
type StreakService struct {
	progressRepo  repositories.ProgressRepository
	milestoneRepo repositories.MilestoneRepository
	crisisRepo    repositories.CrisisRepository
	progression   *ProgressionService
	badges        *BadgeService
	policy        CrisisPolicy
	now           func() time.Time
}

func NewStreakService(
	progressRepo repositories.ProgressRepository,
	milestoneRepo repositories.MilestoneRepository,
	crisisRepo repositories.CrisisRepository,
	progression *ProgressionService,
	badges *BadgeService,
	policy CrisisPolicy,
) *StreakService {
	return &StreakService{
		progressRepo:  progressRepo,
		milestoneRepo: milestoneRepo,
		crisisRepo:    crisisRepo,
		progression:   progression,
		badges:        badges,
		policy:        policy,
		now:           time.Now,
	}
}

// StreakResult reports the consecutive-day counter after a login.
type StreakResult struct {
	Streak             int
	ClaimableMilestone *models.StreakMilestone
}

// RecordLogin advances or resets the login streak and reports whether the new
// streak value lands on an unclaimed milestone tier.
func (s *StreakService) RecordLogin(ctx context.Context, userID int64) (*StreakResult, error) {
	progress, err := s.progressRepo.RecordLogin(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}

	result := &StreakResult{Streak: progress.Streak}
	if milestone, ok := models.MilestoneForStreak(progress.Streak); ok {
		result.ClaimableMilestone = &milestone
	}

	return result, nil
}

// MilestoneReward is the payout of a claimed streak tier.
type MilestoneReward struct {
	Milestone models.StreakMilestone
	Coins     int64
	XPResult  *CreditResult
	Badge     *GrantedBadge
}

// ClaimStreakMilestone pays out a streak tier at most once per user. The
// insert-if-absent claim record is the guard; the tier badge rides the badge
// evaluator's own idempotency.
func (s *StreakService) ClaimStreakMilestone(ctx context.Context, userID int64, streakDays int) (*MilestoneReward, error) {
	milestone, ok := models.MilestoneForStreak(streakDays)
	if !ok {
		return nil, fmt.Errorf("streak of %d days: %w", streakDays, ErrInvalidMilestone)
	}

	progress, err := s.progressRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		return nil, fmt.Errorf("user %d: %w", userID, ErrNotFound)
	}
	if progress.Streak < milestone.StreakDays {
		return nil, fmt.Errorf("streak %d below milestone %s: %w", progress.Streak, milestone.Key, ErrNotCompleted)
	}

	claimed, err := s.milestoneRepo.Claim(ctx, userID, milestone.Key)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("milestone %s: %w", milestone.Key, ErrAlreadyClaimed)
	}

	reward := &MilestoneReward{Milestone: milestone, Coins: milestone.CoinReward}
	if milestone.CoinReward > 0 {
		if _, err := s.progression.CreditCoins(ctx, userID, milestone.CoinReward); err != nil {
			return nil, fmt.Errorf("failed to credit milestone coins: %w", err)
		}
	}
	if milestone.XPReward > 0 {
		result, err := s.progression.CreditXP(ctx, userID, milestone.XPReward, "milestone:"+milestone.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to credit milestone xp: %w", err)
		}
		reward.XPResult = result
	}
	if milestone.BadgeType != "" {
		badge, err := s.badges.GrantBadge(ctx, userID, milestone.BadgeType)
		if err != nil {
			slog.Error("Failed to grant milestone badge",
				slog.Int64("user_id", userID),
				slog.String("badge", string(milestone.BadgeType)),
				slog.Any("error", err))
		}
		reward.Badge = badge
	}

	slog.Info("Streak milestone claimed",
		slog.Int64("user_id", userID),
		slog.String("milestone", milestone.Key),
		slog.Int("streak_days", milestone.StreakDays))

	return reward, nil
}

// CrisisOutcome reports a resolved crisis. Resolved is always true on a nil
// error; XPAwarded is 0 with a reason code when rate limits suppressed the
// reward.
type CrisisOutcome struct {
	Event         *models.CrisisEvent
	Resolved      bool
	XPAwarded     int64
	Reason        string
	WaitRemaining time.Duration
	XPResult      *CreditResult
}

// ResolveCrisis marks an urge/craving event handled and applies the decaying
// bonus schedule. The action always succeeds; only the reward is rate
// limited.
func (s *StreakService) ResolveCrisis(ctx context.Context, userID int64, trigger models.CrisisTrigger) (*CrisisOutcome, error) {
	now := s.now()

	event, err := s.crisisRepo.InsertResolved(ctx, userID, trigger, now)
	if err != nil {
		return nil, err
	}

	outcome := &CrisisOutcome{Event: event, Resolved: true}

	var wait time.Duration
	xp, reason, err := s.crisisRepo.AwardBonus(ctx, userID, event.ID, now, s.policy.Window,
		func(rewardedInWindow int, lastRewardedAt *time.Time) (int64, string) {
			if rewardedInWindow >= s.policy.DailyCap {
				return 0, ReasonDailyCap
			}
			if lastRewardedAt != nil {
				if since := now.Sub(*lastRewardedAt); since < s.policy.Cooldown {
					wait = s.policy.Cooldown - since
					return 0, ReasonCooldown
				}
			}
			return s.rewardFor(rewardedInWindow), ReasonRewarded
		})
	if err != nil {
		// The resolution is already recorded; the caller may retry the
		// bonus accounting, which re-reads the durable history.
		return nil, fmt.Errorf("failed to apply crisis bonus: %w", err)
	}

	outcome.XPAwarded = xp
	outcome.Reason = reason
	outcome.WaitRemaining = wait

	if xp > 0 {
		// The credit happened inside AwardBonus; report the level the same
		// way CreditXP derives it.
		progress, err := s.progressRepo.Get(ctx, userID)
		if err == nil && progress != nil {
			outcome.XPResult = &CreditResult{
				XP:        progress.XP,
				Level:     progress.Level,
				LeveledUp: models.LevelForXP(progress.XP) > models.LevelForXP(progress.XP-xp),
			}
		}
	}

	slog.Info("Crisis resolved",
		slog.Int64("user_id", userID),
		slog.String("trigger", string(trigger)),
		slog.Int64("xp_awarded", xp),
		slog.String("reason", reason))

	return outcome, nil
}

// rewardFor is the decaying schedule: base - step*n, floored, given n already
// rewarded resolutions inside the window.
func (s *StreakService) rewardFor(rewardedInWindow int) int64 {
	xp := s.policy.BaseXP - s.policy.StepXP*int64(rewardedInWindow)
	if xp < s.policy.FloorXP {
		xp = s.policy.FloorXP
	}
	return xp
}
