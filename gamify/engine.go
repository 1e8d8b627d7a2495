package gamify

import (
	"context"
	"fmt"

	"github.com/slimcircle/gamification/gamify/database"
	"github.com/slimcircle/gamification/gamify/database/repositories"
	"github.com/slimcircle/gamification/gamify/services"
)

func New(cfg Config, version string, commit string) *Engine {
	return &Engine{
		Cfg:     cfg,
		Version: version,
		Commit:  commit,
	}
}

// Engine bundles the repositories and services of the rewards engine. The
// host platform embeds it and calls the service methods directly; the only
// background work is the recompute scheduler.
type Engine struct {
	Cfg     Config
	Version string
	Commit  string
	DB      *database.DB

	ProgressRepository    repositories.ProgressRepository
	BadgeRepository       repositories.BadgeRepository
	QuestRepository       repositories.QuestRepository
	MilestoneRepository   repositories.MilestoneRepository
	CrisisRepository      repositories.CrisisRepository
	LeaderboardRepository repositories.LeaderboardRepository

	Progression *services.ProgressionService
	Badges      *services.BadgeService
	Quests      *services.QuestService
	Streaks     *services.StreakService
	Leaderboard *services.LeaderboardService
	Scheduler   *services.Scheduler
}

// Setup connects to the database and wires every repository and service.
// Call Scheduler.Start afterwards to enable periodic recomputation.
func (e *Engine) Setup(ctx context.Context, initSchema bool) error {
	db, err := database.New(ctx, e.Cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	e.DB = db

	if initSchema {
		if err := db.InitializeSchema(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	bunDB := db.BunDB()
	e.ProgressRepository = repositories.NewProgressRepository(bunDB)
	e.BadgeRepository = repositories.NewBadgeRepository(bunDB)
	e.QuestRepository = repositories.NewQuestRepository(bunDB)
	e.MilestoneRepository = repositories.NewMilestoneRepository(bunDB)
	e.CrisisRepository = repositories.NewCrisisRepository(bunDB)
	e.LeaderboardRepository = repositories.NewLeaderboardRepository(bunDB)

	e.Progression = services.NewProgressionService(e.ProgressRepository)
	e.Badges = services.NewBadgeService(e.BadgeRepository, e.QuestRepository, e.ProgressRepository, e.CrisisRepository, e.Progression)
	e.Quests = services.NewQuestService(e.QuestRepository, e.Progression, e.Badges)

	policy := services.DefaultCrisisPolicy()
	if e.Cfg.Engine.CrisisDailyCap > 0 {
		policy.DailyCap = e.Cfg.Engine.CrisisDailyCap
	}
	policy.Cooldown = e.Cfg.Engine.CrisisCooldown()
	e.Streaks = services.NewStreakService(e.ProgressRepository, e.MilestoneRepository, e.CrisisRepository, e.Progression, e.Badges, policy)

	e.Leaderboard = services.NewLeaderboardService(e.LeaderboardRepository, e.Cfg.Engine.RecomputeParallelism)
	e.Scheduler = services.NewScheduler(e.Leaderboard, e.Quests, e.Cfg.Engine.RecomputeInterval())

	return nil
}

// Close stops the scheduler and releases the database connections.
func (e *Engine) Close() {
	if e.Scheduler != nil {
		e.Scheduler.Stop()
	}
	if e.DB != nil {
		e.DB.Close()
	}
}
