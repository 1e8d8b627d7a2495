package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Period selects a leaderboard ranking window.
type Period string

const (
	PeriodWeekly  Period = "WEEKLY"
	PeriodMonthly Period = "MONTHLY"
	PeriodAllTime Period = "ALL_TIME"
)

// Valid reports whether p is a known ranking window.
func (p Period) Valid() bool {
	switch p {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// GroupLeaderboardEntry is one row of a published ranking snapshot. The full
// (group_id, period) set is replaced in one transaction on recomputation, so
// readers never see rows from two different runs.
type GroupLeaderboardEntry struct {
	bun.BaseModel `bun:"table:group_leaderboard_entries,alias:gle"`

	ID            int64     `bun:"id,pk,autoincrement"`
	GroupID       int64     `bun:"group_id,notnull"`
	Period        Period    `bun:"period,notnull"`
	UserID        int64     `bun:"user_id,notnull"`
	Rank          int       `bun:"rank,notnull"`
	Score         int64     `bun:"score,notnull"`
	ActivityCount int       `bun:"activity_count,notnull,default:0"`
	ComputedAt    time.Time `bun:"computed_at,notnull"`
}

// ActivityKind classifies the underlying activity rows scores derive from.
type ActivityKind string

const (
	ActivityWeightLoss ActivityKind = "weight_loss"
	ActivityPost       ActivityKind = "post"
	ActivityComment    ActivityKind = "comment"
	ActivityLike       ActivityKind = "like"
)

// ActivityEvent is an append-only record of group-scoped member activity.
// Points carry the scoring weight (e.g. grams lost / 100 for weight entries).
type ActivityEvent struct {
	bun.BaseModel `bun:"table:activity_events,alias:ae"`

	ID        int64        `bun:"id,pk,autoincrement"`
	UserID    int64        `bun:"user_id,notnull"`
	GroupID   int64        `bun:"group_id,notnull"`
	Kind      ActivityKind `bun:"kind,notnull"`
	Points    int64        `bun:"points,notnull"`
	CreatedAt time.Time    `bun:"created_at,notnull"`
}
