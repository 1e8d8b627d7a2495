package models

import (
	"time"

	"github.com/uptrace/bun"
)

// QuestType groups quests by their reset cadence.
type QuestType string

const (
	QuestTypeDaily   QuestType = "DAILY"
	QuestTypeWeekly  QuestType = "WEEKLY"
	QuestTypeMonthly QuestType = "MONTHLY"
	QuestTypeSpecial QuestType = "SPECIAL"
)

// TargetType is the application event kind a quest tracks.
type TargetType string

const (
	TargetLogMeal      TargetType = "log_meal"
	TargetLogWeight    TargetType = "log_weight"
	TargetLogExercise  TargetType = "log_exercise"
	TargetGiveLike     TargetType = "give_like"
	TargetWritePost    TargetType = "write_post"
	TargetWriteComment TargetType = "write_comment"
	TargetJoinGroup    TargetType = "join_group"
	TargetPlanApproved TargetType = "plan_approved"
	TargetGameSession  TargetType = "game_session"
)

// Quest is a catalog entry, seeded at init and read-only afterward.
type Quest struct {
	bun.BaseModel `bun:"table:quests,alias:q"`

	ID          int64                  `bun:"id,pk,autoincrement"`
	QuestID     string                 `bun:"quest_id,notnull,unique"`
	Name        string                 `bun:"name,notnull"`
	Description string                 `bun:"description,notnull"`
	Type        QuestType              `bun:"type,notnull"`
	Category    string                 `bun:"category,notnull"`
	TargetType  TargetType             `bun:"target_type,notnull"`
	TargetValue int                    `bun:"target_value,notnull"`
	CoinReward  int64                  `bun:"coin_reward,notnull,default:0"`
	XPReward    int64                  `bun:"xp_reward,notnull,default:0"`
	IsActive    bool                   `bun:"is_active,notnull,default:true"`
	Priority    int                    `bun:"priority,notnull,default:0"`
	Conditions  map[string]interface{} `bun:"conditions,type:jsonb"`
	CreatedAt   time.Time              `bun:"created_at,notnull"`
	UpdatedAt   time.Time              `bun:"updated_at,notnull"`
}

// Quest category constants.
const (
	QuestCategoryNutrition = "nutrition"
	QuestCategoryActivity  = "activity"
	QuestCategoryCommunity = "community"
	QuestCategorySpecial   = "special"
)
