package models

import (
	"time"

	"github.com/uptrace/bun"
)

// UserQuest assigns a catalog quest to a user and tracks progress through the
// ASSIGNED -> COMPLETED -> CLAIMED state machine. There are no backward
// transitions; reward_claimed flips false -> true exactly once.
type UserQuest struct {
	bun.BaseModel `bun:"table:user_quests,alias:uq"`

	ID            int64      `bun:"id,pk,autoincrement"`
	UserID        int64      `bun:"user_id,notnull"`
	QuestID       int64      `bun:"quest_id,notnull"`
	Progress      int        `bun:"progress,notnull,default:0"`
	Completed     bool       `bun:"completed,notnull,default:false"`
	RewardClaimed bool       `bun:"reward_claimed,notnull,default:false"`
	CompletedAt   *time.Time `bun:"completed_at"`
	ClaimedAt     *time.Time `bun:"claimed_at"`
	ExpiresAt     *time.Time `bun:"expires_at"`
	CreatedAt     time.Time  `bun:"created_at,notnull"`
	UpdatedAt     time.Time  `bun:"updated_at,notnull"`

	Quest *Quest `bun:"rel:has-one,join:quest_id=id"`
}

// Expired reports whether the assignment's claim window has passed.
func (uq *UserQuest) Expired(now time.Time) bool {
	return uq.ExpiresAt != nil && now.After(*uq.ExpiresAt)
}

// ProgressPercentage returns completion as 0-100 for display.
func (uq *UserQuest) ProgressPercentage() float64 {
	if uq.Quest == nil || uq.Quest.TargetValue == 0 {
		return 0
	}
	pct := float64(uq.Progress) / float64(uq.Quest.TargetValue) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
