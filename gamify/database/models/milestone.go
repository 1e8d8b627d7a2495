package models

import (
	"time"

	"github.com/uptrace/bun"
)

// StreakMilestone is a static tier on the login-streak counter. Tiers live in
// code rather than the database: the schedule is part of the reward policy.
type StreakMilestone struct {
	Key        string
	StreakDays int
	CoinReward int64
	XPReward   int64
	BadgeType  BadgeType // empty when the tier carries no badge
}

// StreakMilestones is the tier table, ordered by streak_days ascending.
var StreakMilestones = []StreakMilestone{
	{Key: "streak_7", StreakDays: 7, CoinReward: 100, XPReward: 50, BadgeType: BadgeStreakBronze},
	{Key: "streak_14", StreakDays: 14, CoinReward: 250, XPReward: 120},
	{Key: "streak_30", StreakDays: 30, CoinReward: 600, XPReward: 300, BadgeType: BadgeStreakSilver},
	{Key: "streak_60", StreakDays: 60, CoinReward: 1500, XPReward: 700},
	{Key: "streak_100", StreakDays: 100, CoinReward: 3000, XPReward: 1500, BadgeType: BadgeStreakGold},
}

// MilestoneForStreak returns the tier matching an exact streak-day value.
func MilestoneForStreak(streakDays int) (StreakMilestone, bool) {
	for _, m := range StreakMilestones {
		if m.StreakDays == streakDays {
			return m, true
		}
	}
	return StreakMilestone{}, false
}

// UserMilestoneClaim records a paid (user, milestone) pair. The unique
// (user_id, milestone_key) constraint makes each tier claimable at most once.
type UserMilestoneClaim struct {
	bun.BaseModel `bun:"table:user_milestone_claims,alias:umc"`

	ID           int64     `bun:"id,pk,autoincrement"`
	UserID       int64     `bun:"user_id,notnull"`
	MilestoneKey string    `bun:"milestone_key,notnull"`
	ClaimedAt    time.Time `bun:"claimed_at,notnull"`
}
