package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/slimcircle/gamification/gamify/database/models"
	"github.com/slimcircle/gamification/gamify/database/repositories"
)

// In-memory repository fakes mirroring the SQL semantics of the real
// implementations: upsert counters, conflict-guarded inserts, predicate
// guards on claims.

type fakeProgressRepo struct {
	rows   map[int64]*models.UserProgress
	scores map[int64]map[models.GameCode]int64
	txs    []*models.XPTransaction
}

func newFakeProgressRepo() *fakeProgressRepo {
	return &fakeProgressRepo{
		rows:   map[int64]*models.UserProgress{},
		scores: map[int64]map[models.GameCode]int64{},
	}
}

func (f *fakeProgressRepo) ensure(userID int64, now time.Time) *models.UserProgress {
	p, ok := f.rows[userID]
	if !ok {
		p = &models.UserProgress{UserID: userID, Level: 1, CreatedAt: now, UpdatedAt: now}
		f.rows[userID] = p
	}
	return p
}

func (f *fakeProgressRepo) Get(_ context.Context, userID int64) (*models.UserProgress, error) {
	p, ok := f.rows[userID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgressRepo) AddXP(_ context.Context, userID int64, amount int64) (*models.UserProgress, error) {
	p := f.ensure(userID, time.Now())
	p.XP += amount
	if lvl := models.LevelForXP(p.XP); lvl > p.Level {
		p.Level = lvl
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProgressRepo) AddCoins(_ context.Context, userID int64, amount int64) (*models.UserProgress, error) {
	p := f.ensure(userID, time.Now())
	p.Coins += amount
	p.LifetimeCoins += amount
	cp := *p
	return &cp, nil
}

func (f *fakeProgressRepo) DebitCoins(_ context.Context, userID int64, amount int64) (*models.UserProgress, bool, error) {
	p, ok := f.rows[userID]
	if !ok || p.Coins-amount < 0 {
		return nil, false, nil
	}
	p.Coins -= amount
	cp := *p
	return &cp, true, nil
}

func (f *fakeProgressRepo) IncrementPurchases(_ context.Context, userID int64) error {
	p := f.ensure(userID, time.Now())
	p.PurchaseCount++
	return nil
}

func (f *fakeProgressRepo) RecordLogin(_ context.Context, userID int64, today time.Time) (*models.UserProgress, error) {
	day := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, today.Location())
	p := f.ensure(userID, today)
	switch {
	case p.LastLoginDate == nil:
		p.Streak = 1
	case p.LastLoginDate.Equal(day):
		// same day, streak unchanged
	case p.LastLoginDate.Equal(day.AddDate(0, 0, -1)):
		p.Streak++
	default:
		p.Streak = 1
	}
	p.LastLoginDate = &day
	cp := *p
	return &cp, nil
}

func (f *fakeProgressRepo) RecordGameScore(_ context.Context, userID int64, game models.GameCode, score int64) error {
	if f.scores[userID] == nil {
		f.scores[userID] = map[models.GameCode]int64{}
	}
	if score > f.scores[userID][game] {
		f.scores[userID][game] = score
	}
	return nil
}

func (f *fakeProgressRepo) GetBestScores(_ context.Context, userID int64) (map[models.GameCode]int64, error) {
	best := map[models.GameCode]int64{}
	for game, score := range f.scores[userID] {
		best[game] = score
	}
	return best, nil
}

func (f *fakeProgressRepo) InsertXPTransaction(_ context.Context, tx *models.XPTransaction) error {
	f.txs = append(f.txs, tx)
	return nil
}

type fakeBadgeRepo struct {
	catalog []*models.Badge
	earned  map[int64]map[int64]bool
}

func newFakeBadgeRepo(catalog []*models.Badge) *fakeBadgeRepo {
	return &fakeBadgeRepo{catalog: catalog, earned: map[int64]map[int64]bool{}}
}

func (f *fakeBadgeRepo) GetByType(_ context.Context, badgeType models.BadgeType) (*models.Badge, error) {
	for _, b := range f.catalog {
		if b.Type == badgeType {
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeBadgeRepo) GetAll(_ context.Context) ([]*models.Badge, error) {
	return f.catalog, nil
}

func (f *fakeBadgeRepo) GetUserBadges(_ context.Context, userID int64) ([]*models.UserBadge, error) {
	var earned []*models.UserBadge
	for badgeID := range f.earned[userID] {
		earned = append(earned, &models.UserBadge{UserID: userID, BadgeID: badgeID})
	}
	return earned, nil
}

func (f *fakeBadgeRepo) HeldBadgeIDs(_ context.Context, userID int64) (map[int64]bool, error) {
	held := map[int64]bool{}
	for id := range f.earned[userID] {
		held[id] = true
	}
	return held, nil
}

func (f *fakeBadgeRepo) Grant(_ context.Context, userID int64, badgeID int64) (bool, error) {
	if f.earned[userID] == nil {
		f.earned[userID] = map[int64]bool{}
	}
	if f.earned[userID][badgeID] {
		return false, nil
	}
	f.earned[userID][badgeID] = true
	return true, nil
}

type fakeQuestRepo struct {
	quests      map[int64]*models.Quest
	assignments map[int64]*models.UserQuest
	nextID      int64
	now         func() time.Time
}

func newFakeQuestRepo() *fakeQuestRepo {
	return &fakeQuestRepo{
		quests:      map[int64]*models.Quest{},
		assignments: map[int64]*models.UserQuest{},
		now:         time.Now,
	}
}

func (f *fakeQuestRepo) addQuest(q *models.Quest) {
	f.quests[q.ID] = q
}

func (f *fakeQuestRepo) addAssignment(uq *models.UserQuest) *models.UserQuest {
	f.nextID++
	uq.ID = f.nextID
	f.assignments[uq.ID] = uq
	return uq
}

func (f *fakeQuestRepo) GetQuest(_ context.Context, id int64) (*models.Quest, error) {
	return f.quests[id], nil
}

func (f *fakeQuestRepo) GetActiveQuestsByType(_ context.Context, questType models.QuestType) ([]*models.Quest, error) {
	var quests []*models.Quest
	for _, q := range f.quests {
		if q.Type == questType && q.IsActive {
			quests = append(quests, q)
		}
	}
	sort.Slice(quests, func(i, j int) bool { return quests[i].ID < quests[j].ID })
	return quests, nil
}

func (f *fakeQuestRepo) CreateAssignment(_ context.Context, assignment *models.UserQuest) error {
	f.addAssignment(assignment)
	return nil
}

func (f *fakeQuestRepo) GetAssignment(_ context.Context, id int64) (*models.UserQuest, error) {
	uq, ok := f.assignments[id]
	if !ok {
		return nil, nil
	}
	cp := *uq
	cp.Quest = f.quests[uq.QuestID]
	return &cp, nil
}

func (f *fakeQuestRepo) GetActiveAssignments(_ context.Context, userID int64) ([]*models.UserQuest, error) {
	now := f.now()
	var live []*models.UserQuest
	for _, uq := range f.assignments {
		if uq.UserID != userID || uq.Expired(now) {
			continue
		}
		cp := *uq
		cp.Quest = f.quests[uq.QuestID]
		live = append(live, &cp)
	}
	sort.Slice(live, func(i, j int) bool { return live[i].QuestID < live[j].QuestID })
	return live, nil
}

func (f *fakeQuestRepo) AdvanceProgress(_ context.Context, userID int64, targetType models.TargetType, increment int) ([]*models.UserQuest, error) {
	now := f.now()
	var updated []*models.UserQuest
	for _, uq := range f.assignments {
		quest := f.quests[uq.QuestID]
		if quest == nil || uq.UserID != userID || quest.TargetType != targetType ||
			!quest.IsActive || uq.Completed || uq.Expired(now) {
			continue
		}
		uq.Progress += increment
		if uq.Progress >= quest.TargetValue {
			uq.Completed = true
			uq.CompletedAt = &now
		}
		uq.UpdatedAt = now
		cp := *uq
		updated = append(updated, &cp)
	}
	return updated, nil
}

func (f *fakeQuestRepo) ClaimAssignment(_ context.Context, id int64) (bool, error) {
	uq, ok := f.assignments[id]
	if !ok || !uq.Completed || uq.RewardClaimed {
		return false, nil
	}
	now := f.now()
	uq.RewardClaimed = true
	uq.ClaimedAt = &now
	return true, nil
}

func (f *fakeQuestRepo) CountCompleted(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, uq := range f.assignments {
		if uq.UserID == userID && uq.Completed {
			count++
		}
	}
	return count, nil
}

func (f *fakeQuestRepo) DeleteExpiredUnclaimed(_ context.Context) (int64, error) {
	now := f.now()
	var deleted int64
	for id, uq := range f.assignments {
		if uq.ExpiresAt != nil && uq.ExpiresAt.Before(now) && !uq.RewardClaimed {
			delete(f.assignments, id)
			deleted++
		}
	}
	return deleted, nil
}

type fakeMilestoneRepo struct {
	claims map[string]bool
}

func newFakeMilestoneRepo() *fakeMilestoneRepo {
	return &fakeMilestoneRepo{claims: map[string]bool{}}
}

func (f *fakeMilestoneRepo) Claim(_ context.Context, userID int64, milestoneKey string) (bool, error) {
	key := fmt.Sprintf("%d/%s", userID, milestoneKey)
	if f.claims[key] {
		return false, nil
	}
	f.claims[key] = true
	return true, nil
}

func (f *fakeMilestoneRepo) GetClaims(_ context.Context, userID int64) ([]*models.UserMilestoneClaim, error) {
	var claims []*models.UserMilestoneClaim
	for key := range f.claims {
		var id int64
		var milestone string
		if _, err := fmt.Sscanf(key, "%d/%s", &id, &milestone); err == nil && id == userID {
			claims = append(claims, &models.UserMilestoneClaim{UserID: id, MilestoneKey: milestone})
		}
	}
	return claims, nil
}

type fakeCrisisRepo struct {
	events   []*models.CrisisEvent
	nextID   int64
	progress *fakeProgressRepo
}

func newFakeCrisisRepo(progress *fakeProgressRepo) *fakeCrisisRepo {
	return &fakeCrisisRepo{progress: progress}
}

func (f *fakeCrisisRepo) InsertResolved(_ context.Context, userID int64, trigger models.CrisisTrigger, now time.Time) (*models.CrisisEvent, error) {
	f.nextID++
	resolvedAt := now
	event := &models.CrisisEvent{
		ID:         f.nextID,
		UserID:     userID,
		Trigger:    trigger,
		Resolved:   true,
		ResolvedAt: &resolvedAt,
		CreatedAt:  now,
	}
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeCrisisRepo) AwardBonus(ctx context.Context, userID, eventID int64, now time.Time, window time.Duration, decide repositories.DecideBonusFunc) (int64, string, error) {
	rewarded := 0
	var lastAt *time.Time
	cutoff := now.Add(-window)
	for _, e := range f.events {
		if e.UserID != userID || e.XPAwarded <= 0 || e.ResolvedAt == nil {
			continue
		}
		if !e.ResolvedAt.Before(cutoff) {
			rewarded++
		}
		if lastAt == nil || e.ResolvedAt.After(*lastAt) {
			t := *e.ResolvedAt
			lastAt = &t
		}
	}

	xp, reason := decide(rewarded, lastAt)
	if xp <= 0 {
		return xp, reason, nil
	}

	if _, err := f.progress.AddXP(ctx, userID, xp); err != nil {
		return 0, "", err
	}
	for _, e := range f.events {
		if e.ID == eventID {
			e.XPAwarded = xp
		}
	}
	return xp, reason, nil
}

func (f *fakeCrisisRepo) LastEventAt(_ context.Context, userID int64) (*time.Time, error) {
	var last *time.Time
	for _, e := range f.events {
		if e.UserID != userID {
			continue
		}
		if last == nil || e.CreatedAt.After(*last) {
			t := e.CreatedAt
			last = &t
		}
	}
	return last, nil
}

func (f *fakeCrisisRepo) CountResolvedSince(_ context.Context, userID int64, since time.Time) (int, error) {
	count := 0
	for _, e := range f.events {
		if e.UserID == userID && e.Resolved && e.ResolvedAt != nil && !e.ResolvedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

type fakeLeaderboardRepo struct {
	events    []*models.ActivityEvent
	snapshots map[string][]*models.GroupLeaderboardEntry
}

func newFakeLeaderboardRepo() *fakeLeaderboardRepo {
	return &fakeLeaderboardRepo{snapshots: map[string][]*models.GroupLeaderboardEntry{}}
}

func snapshotKey(groupID int64, period models.Period) string {
	return fmt.Sprintf("%d/%s", groupID, period)
}

func (f *fakeLeaderboardRepo) InsertActivity(_ context.Context, event *models.ActivityEvent) error {
	f.events = append(f.events, event)
	return nil
}

func (f *fakeLeaderboardRepo) AggregateScores(_ context.Context, groupID int64, since *time.Time) ([]repositories.MemberScore, error) {
	totals := map[int64]*repositories.MemberScore{}
	for _, e := range f.events {
		if e.GroupID != groupID {
			continue
		}
		if since != nil && e.CreatedAt.Before(*since) {
			continue
		}
		ms, ok := totals[e.UserID]
		if !ok {
			ms = &repositories.MemberScore{UserID: e.UserID}
			totals[e.UserID] = ms
		}
		ms.Score += e.Points
		ms.ActivityCount++
	}

	scores := make([]repositories.MemberScore, 0, len(totals))
	for _, ms := range totals {
		scores = append(scores, *ms)
	}
	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		if scores[i].ActivityCount != scores[j].ActivityCount {
			return scores[i].ActivityCount > scores[j].ActivityCount
		}
		return scores[i].UserID < scores[j].UserID
	})
	return scores, nil
}

func (f *fakeLeaderboardRepo) ReplaceSnapshot(_ context.Context, groupID int64, period models.Period, entries []*models.GroupLeaderboardEntry) error {
	f.snapshots[snapshotKey(groupID, period)] = entries
	return nil
}

func (f *fakeLeaderboardRepo) GetEntry(_ context.Context, userID, groupID int64, period models.Period) (*models.GroupLeaderboardEntry, error) {
	for _, e := range f.snapshots[snapshotKey(groupID, period)] {
		if e.UserID == userID {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeLeaderboardRepo) GetTop(_ context.Context, groupID int64, period models.Period, limit int) ([]*models.GroupLeaderboardEntry, error) {
	entries := f.snapshots[snapshotKey(groupID, period)]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (f *fakeLeaderboardRepo) ActiveGroupIDs(_ context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, e := range f.events {
		if !seen[e.GroupID] {
			seen[e.GroupID] = true
			ids = append(ids, e.GroupID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
