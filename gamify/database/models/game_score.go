package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GameCode names a mini-game tracked for score badges.
type GameCode string

const (
	GameStepChallenge GameCode = "step_challenge"
	GameCalorieQuiz   GameCode = "calorie_quiz"
	GameRecipeMatch   GameCode = "recipe_match"
)

// GameScore keeps the best single-session score per (user, game), upserted
// with GREATEST so concurrent session reports cannot lower the best.
type GameScore struct {
	bun.BaseModel `bun:"table:game_scores,alias:gs"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	Game      GameCode  `bun:"game,notnull"`
	BestScore int64     `bun:"best_score,notnull,default:0"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
