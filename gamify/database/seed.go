package database

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/slimcircle/gamification/gamify/database/models"
)

// InitializeBadgeData inserts or updates the badge catalog.
func (db *DB) InitializeBadgeData(ctx context.Context) error {
	type badgeDef struct {
		Type        models.BadgeType
		Name        string
		Description string
		Icon        string
		XPReward    int64
	}

	badges := []badgeDef{
		{models.BadgeQuestMaster10, "Quest Apprentice", "Complete 10 quests", "quest_bronze", 100},
		{models.BadgeQuestMaster50, "Quest Veteran", "Complete 50 quests", "quest_silver", 300},
		{models.BadgeQuestMaster100, "Quest Master", "Complete 100 quests", "quest_gold", 500},
		{models.BadgeCoinCollector1K, "Coin Collector", "Earn 1,000 coins in total", "coins_bronze", 150},
		{models.BadgeCoinCollector10K, "Coin Magnate", "Earn 10,000 coins in total", "coins_gold", 400},
		{models.BadgeShopRegular10, "Shop Regular", "Make 10 shop purchases", "shop", 100},
		{models.BadgeArcadeAce500, "Arcade Ace", "Score 500+ in any mini-game", "arcade", 150},
		{models.BadgeStepMaster1K, "Step Master", "Score 1,000+ in the step challenge", "steps", 200},
		{models.BadgeCleanWeek, "Clean Week", "7 days without a crisis event", "clean_week", 150},
		{models.BadgeCleanMonth, "Clean Month", "30 days without a crisis event", "clean_month", 500},
		{models.BadgeStreakBronze, "Bronze Flame", "Reach a 7-day login streak", "flame_bronze", 0},
		{models.BadgeStreakSilver, "Silver Flame", "Reach a 30-day login streak", "flame_silver", 0},
		{models.BadgeStreakGold, "Golden Flame", "Reach a 100-day login streak", "flame_gold", 0},
	}

	insertSQL := `
        INSERT INTO badges (type, name, description, icon, xp_reward, created_at)
        VALUES ($1, $2, $3, $4, $5, CURRENT_TIMESTAMP)
        ON CONFLICT (type) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            icon = EXCLUDED.icon,
            xp_reward = EXCLUDED.xp_reward;
    `

	for _, b := range badges {
		if _, err := db.ExecWithLog(ctx, insertSQL,
			string(b.Type), b.Name, b.Description, b.Icon, b.XPReward,
		); err != nil {
			return fmt.Errorf("failed to upsert badge %s: %w", b.Type, err)
		}
	}

	slog.Info("Badge catalog initialized/updated successfully", slog.Int("count", len(badges)))
	return nil
}

// InitializeQuestData inserts or updates the default quest definitions.
func (db *DB) InitializeQuestData(ctx context.Context) error {
	type questDef struct {
		ID          string
		Name        string
		Description string
		Type        models.QuestType
		Category    string
		TargetType  models.TargetType
		TargetValue int
		CoinReward  int64
		XPReward    int64
		Priority    int
		Conditions  map[string]interface{}
	}

	quests := []questDef{
		// Daily
		{"daily_log_meals", "Three Square Meals", "Log 3 meals today", models.QuestTypeDaily, models.QuestCategoryNutrition, models.TargetLogMeal, 3, 20, 30, 1, nil},
		{"daily_log_weight", "Weigh In", "Log your weight once today", models.QuestTypeDaily, models.QuestCategoryNutrition, models.TargetLogWeight, 1, 10, 20, 2, nil},
		{"daily_exercise", "Move Your Body", "Log 1 exercise session", models.QuestTypeDaily, models.QuestCategoryActivity, models.TargetLogExercise, 1, 15, 25, 3, nil},
		{"daily_cheer", "Spread the Love", "Give 5 likes to community posts", models.QuestTypeDaily, models.QuestCategoryCommunity, models.TargetGiveLike, 5, 10, 15, 4, nil},
		{"daily_arcade", "Daily Arcade", "Play 1 mini-game session", models.QuestTypeDaily, models.QuestCategorySpecial, models.TargetGameSession, 1, 10, 15, 5, nil},

		// Weekly
		{"weekly_meal_habit", "Meal Tracker", "Log 15 meals this week", models.QuestTypeWeekly, models.QuestCategoryNutrition, models.TargetLogMeal, 15, 100, 150, 1, nil},
		{"weekly_exercise_habit", "Workout Week", "Log 4 exercise sessions this week", models.QuestTypeWeekly, models.QuestCategoryActivity, models.TargetLogExercise, 4, 120, 180, 2, nil},
		{"weekly_storyteller", "Storyteller", "Write 2 posts this week", models.QuestTypeWeekly, models.QuestCategoryCommunity, models.TargetWritePost, 2, 80, 120, 3, nil},
		{"weekly_supporter", "Supporter", "Write 5 comments this week", models.QuestTypeWeekly, models.QuestCategoryCommunity, models.TargetWriteComment, 5, 60, 90, 4, nil},

		// Monthly
		{"monthly_weigh_habit", "Scale Watcher", "Log your weight 20 times this month", models.QuestTypeMonthly, models.QuestCategoryNutrition, models.TargetLogWeight, 20, 400, 600, 1, nil},
		{"monthly_exercise_habit", "Iron Month", "Log 16 exercise sessions this month", models.QuestTypeMonthly, models.QuestCategoryActivity, models.TargetLogExercise, 16, 500, 750, 2, nil},
		{"monthly_plan_follow", "Plan Follower", "Get 4 meal plans approved this month", models.QuestTypeMonthly, models.QuestCategorySpecial, models.TargetPlanApproved, 4, 300, 450, 3, nil},

		// Special (no reset; assigned manually or by campaigns)
		{"special_first_group", "Finding Your Circle", "Join your first support group", models.QuestTypeSpecial, models.QuestCategoryCommunity, models.TargetJoinGroup, 1, 50, 100, 1, nil},
		{"special_first_post", "Breaking the Ice", "Write your first community post", models.QuestTypeSpecial, models.QuestCategoryCommunity, models.TargetWritePost, 1, 30, 60, 2, nil},
	}

	insertSQL := `
        INSERT INTO quests (
            quest_id, name, description, type, category,
            target_type, target_value, coin_reward, xp_reward,
            is_active, priority, conditions,
            created_at, updated_at
        ) VALUES (
            $1, $2, $3, $4, $5,
            $6, $7, $8, $9,
            true, $10, $11::jsonb,
            CURRENT_TIMESTAMP, CURRENT_TIMESTAMP
        ) ON CONFLICT (quest_id) DO UPDATE SET
            name = EXCLUDED.name,
            description = EXCLUDED.description,
            type = EXCLUDED.type,
            category = EXCLUDED.category,
            target_type = EXCLUDED.target_type,
            target_value = EXCLUDED.target_value,
            coin_reward = EXCLUDED.coin_reward,
            xp_reward = EXCLUDED.xp_reward,
            priority = EXCLUDED.priority,
            conditions = EXCLUDED.conditions,
            updated_at = CURRENT_TIMESTAMP;
    `

	for _, q := range quests {
		conditions := q.Conditions
		if conditions == nil {
			conditions = map[string]interface{}{}
		}
		condBytes, err := json.Marshal(conditions)
		if err != nil {
			return fmt.Errorf("failed to marshal quest conditions for %s: %w", q.ID, err)
		}

		if _, err := db.ExecWithLog(ctx, insertSQL,
			q.ID, q.Name, q.Description, string(q.Type), q.Category,
			string(q.TargetType), q.TargetValue, q.CoinReward, q.XPReward,
			q.Priority, string(condBytes),
		); err != nil {
			return fmt.Errorf("failed to upsert quest %s: %w", q.ID, err)
		}
	}

	slog.Info("Quest catalog initialized/updated successfully", slog.Int("count", len(quests)))
	return nil
}
