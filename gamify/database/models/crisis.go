package models

import (
	"time"

	"github.com/uptrace/bun"
)

// CrisisTrigger classifies what set off an urge/craving event.
type CrisisTrigger string

const (
	TriggerStress    CrisisTrigger = "stress"
	TriggerBoredom   CrisisTrigger = "boredom"
	TriggerSocial    CrisisTrigger = "social"
	TriggerHunger    CrisisTrigger = "hunger"
	TriggerEmotional CrisisTrigger = "emotional"
	TriggerOther     CrisisTrigger = "other"
)

// CrisisEvent records a resolved urge/craving event. XPAwarded stays 0 when
// the resolution fell under the daily cap or cooldown; the rolling-window
// reward accounting reads these rows, never process memory.
type CrisisEvent struct {
	bun.BaseModel `bun:"table:crisis_events,alias:ce"`

	ID         int64         `bun:"id,pk,autoincrement"`
	UserID     int64         `bun:"user_id,notnull"`
	Trigger    CrisisTrigger `bun:"trigger,notnull"`
	Resolved   bool          `bun:"resolved,notnull,default:false"`
	ResolvedAt *time.Time    `bun:"resolved_at"`
	XPAwarded  int64         `bun:"xp_awarded,notnull,default:0"`
	CreatedAt  time.Time     `bun:"created_at,notnull"`
}
