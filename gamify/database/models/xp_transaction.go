package models

import (
	"time"

	"github.com/uptrace/bun"
)

// XPTransaction is the audit trail of XP credits. It is written best-effort
// after the atomic counter update and is never read back for accounting.
type XPTransaction struct {
	bun.BaseModel `bun:"table:xp_transactions,alias:xt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Reference string    `bun:"reference,notnull,unique"`
	UserID    int64     `bun:"user_id,notnull"`
	Amount    int64     `bun:"amount,notnull"`
	Reason    string    `bun:"reason,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
