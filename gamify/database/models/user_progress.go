package models

import (
	"math"
	"time"

	"github.com/uptrace/bun"
)

// UserProgress holds the per-user gamification counters. All mutations go
// through the progression repository as atomic SQL increments; nothing in the
// service layer does a read-modify-write on these columns.
type UserProgress struct {
	bun.BaseModel `bun:"table:user_progress,alias:up"`

	UserID        int64 `bun:"user_id,pk"`
	XP            int64 `bun:"xp,notnull,default:0"`
	Level         int   `bun:"level,notnull,default:1"`
	Coins         int64 `bun:"coins,notnull,default:0"`
	LifetimeCoins int64 `bun:"lifetime_coins,notnull,default:0"`
	PurchaseCount int   `bun:"purchase_count,notnull,default:0"`
	Streak        int   `bun:"streak,notnull,default:0"`

	LastLoginDate *time.Time `bun:"last_login_date,type:date"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// LevelForXP maps cumulative XP to a level: floor(sqrt(xp/100)) + 1.
// The stored level only ever moves up to this value, never down.
func LevelForXP(xp int64) int {
	if xp <= 0 {
		return 1
	}
	return int(math.Sqrt(float64(xp)/100)) + 1
}
