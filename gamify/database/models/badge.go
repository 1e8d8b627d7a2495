package models

import (
	"time"

	"github.com/uptrace/bun"
)

// BadgeType is the unique catalog key of a badge.
type BadgeType string

const (
	BadgeQuestMaster10    BadgeType = "QUEST_MASTER_10"
	BadgeQuestMaster50    BadgeType = "QUEST_MASTER_50"
	BadgeQuestMaster100   BadgeType = "QUEST_MASTER_100"
	BadgeCoinCollector1K  BadgeType = "COIN_COLLECTOR_1000"
	BadgeCoinCollector10K BadgeType = "COIN_COLLECTOR_10000"
	BadgeShopRegular10    BadgeType = "SHOP_REGULAR_10"
	BadgeArcadeAce500     BadgeType = "ARCADE_ACE_500"
	BadgeStepMaster1K     BadgeType = "STEP_MASTER_1000"
	BadgeCleanWeek        BadgeType = "CLEAN_WEEK"
	BadgeCleanMonth       BadgeType = "CLEAN_MONTH"
	BadgeStreakBronze     BadgeType = "STREAK_BRONZE"
	BadgeStreakSilver     BadgeType = "STREAK_SILVER"
	BadgeStreakGold       BadgeType = "STREAK_GOLD"
)

// Badge is a catalog entry, seeded at init and read-only afterward.
type Badge struct {
	bun.BaseModel `bun:"table:badges,alias:b"`

	ID          int64     `bun:"id,pk,autoincrement"`
	Type        BadgeType `bun:"type,notnull,unique"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,notnull"`
	Icon        string    `bun:"icon"`
	XPReward    int64     `bun:"xp_reward,notnull,default:0"`
	CreatedAt   time.Time `bun:"created_at,notnull"`
}

// UserBadge joins a user to an earned badge. The (user_id, badge_id) unique
// constraint is the at-most-once guard for concurrent evaluation passes.
type UserBadge struct {
	bun.BaseModel `bun:"table:user_badges,alias:ub"`

	ID       int64     `bun:"id,pk,autoincrement"`
	UserID   int64     `bun:"user_id,notnull"`
	BadgeID  int64     `bun:"badge_id,notnull"`
	EarnedAt time.Time `bun:"earned_at,notnull"`

	Badge *Badge `bun:"rel:has-one,join:badge_id=id"`
}
