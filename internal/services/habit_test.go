package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/streak"
	"github.com/yungbote/librarium-backend/internal/types"
)

// ---- fakes ----

type fakeHabitRepo struct {
	habits map[uuid.UUID]*types.Habit
}

func (f *fakeHabitRepo) Create(ctx context.Context, tx *gorm.DB, habit *types.Habit) error {
	f.habits[habit.ID] = habit
	return nil
}

func (f *fakeHabitRepo) GetByID(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) (*types.Habit, error) {
	habit, ok := f.habits[habitID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return habit, nil
}

func (f *fakeHabitRepo) GetOwned(ctx context.Context, tx *gorm.DB, habitID, userID uuid.UUID) (*types.Habit, error) {
	habit, ok := f.habits[habitID]
	if !ok || habit.UserID != userID {
		return nil, gorm.ErrRecordNotFound
	}
	return habit, nil
}

func (f *fakeHabitRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, filters repos.HabitFilters) ([]*types.Habit, error) {
	var out []*types.Habit
	for _, habit := range f.habits {
		if habit.UserID == userID {
			out = append(out, habit)
		}
	}
	return out, nil
}

func (f *fakeHabitRepo) ListActiveByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Habit, error) {
	return f.ListByUser(ctx, tx, userID, repos.HabitFilters{})
}

func (f *fakeHabitRepo) Save(ctx context.Context, tx *gorm.DB, habit *types.Habit) error {
	f.habits[habit.ID] = habit
	return nil
}

func (f *fakeHabitRepo) Delete(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) error {
	delete(f.habits, habitID)
	return nil
}

func (f *fakeHabitRepo) UpdateStreakCache(ctx context.Context, tx *gorm.DB, habitID uuid.UUID, current, longest, totalCompletions int, completionRate float64) error {
	habit, ok := f.habits[habitID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	habit.StreakCurrent = current
	habit.StreakLongest = longest
	habit.TotalCompletions = totalCompletions
	habit.CompletionRate = completionRate
	return nil
}

type fakeCompletionRepo struct {
	byHabit map[uuid.UUID][]streak.Day
	byUser  map[uuid.UUID][]streak.Day

	// When set, Append fails with this error without writing anything.
	appendErr error
	// When set, GetDaysByUser fails with this error.
	userDaysErr error
	// Per-user counts served by CountByUserBetween, for battle scoring.
	countsBetween map[uuid.UUID]int64
}

func (f *fakeCompletionRepo) Append(ctx context.Context, tx *gorm.DB, completion *types.Completion) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	day := streak.DayOf(completion.Day)
	for _, existing := range f.byHabit[completion.HabitID] {
		if existing == day {
			return repos.ErrDuplicateCompletion
		}
	}
	f.byHabit[completion.HabitID] = append(f.byHabit[completion.HabitID], day)
	f.byUser[completion.UserID] = append(f.byUser[completion.UserID], day)
	return nil
}

func (f *fakeCompletionRepo) GetDaysByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) ([]streak.Day, error) {
	return f.byHabit[habitID], nil
}

func (f *fakeCompletionRepo) GetDaysByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]streak.Day, error) {
	if f.userDaysErr != nil {
		return nil, f.userDaysErr
	}
	seen := map[streak.Day]struct{}{}
	var out []streak.Day
	for _, d := range f.byUser[userID] {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeCompletionRepo) GetLastDayByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID) (*streak.Day, error) {
	days := f.byHabit[habitID]
	if len(days) == 0 {
		return nil, nil
	}
	last := days[0]
	for _, d := range days[1:] {
		if last.Before(d) {
			last = d
		}
	}
	return &last, nil
}

func (f *fakeCompletionRepo) ListByHabit(ctx context.Context, tx *gorm.DB, habitID uuid.UUID, from, to *time.Time, limit int) ([]*types.Completion, error) {
	return nil, nil
}

func (f *fakeCompletionRepo) ListByUserSince(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since time.Time) ([]*types.Completion, error) {
	return nil, nil
}

func (f *fakeCompletionRepo) CountByUserBetween(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) (int64, error) {
	return f.countsBetween[userID], nil
}

func (f *fakeCompletionRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	return int64(len(f.byUser[userID])), nil
}

func (f *fakeCompletionRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Completion, error) {
	return nil, nil
}

func (f *fakeCompletionRepo) BreakdownByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, since *time.Time) ([]repos.CompletionBucket, error) {
	return nil, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User
}

func (f *fakeUserRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.User, error) {
	user, ok := f.users[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUserRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, tx, email)
	return err == nil, nil
}

func (f *fakeUserRepo) UsernameExists(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	for _, user := range f.users {
		if user.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) Search(ctx context.Context, tx *gorm.DB, query string, limit int) ([]*types.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) UpdateXPAndLevel(ctx context.Context, tx *gorm.DB, userID uuid.UUID, xp, level int) error {
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.XP = xp
	user.Level = level
	return nil
}

func (f *fakeUserRepo) UpdateStreak(ctx context.Context, tx *gorm.DB, userID uuid.UUID, current, longest int) error {
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.StreakCurrent = current
	user.StreakLongest = longest
	return nil
}

func (f *fakeUserRepo) UpdateTitle(ctx context.Context, tx *gorm.DB, userID uuid.UUID, avatarTier, title string) error {
	user, ok := f.users[userID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.AvatarTier = avatarTier
	user.Title = title
	return nil
}

func (f *fakeUserRepo) UpdatePreferences(ctx context.Context, tx *gorm.DB, userID uuid.UUID, updates map[string]any) error {
	return nil
}

func (f *fakeUserRepo) TouchActivity(ctx context.Context, tx *gorm.DB, userID uuid.UUID) error {
	return nil
}

func (f *fakeUserRepo) Ranking(ctx context.Context, tx *gorm.DB, limit int) ([]*types.User, error) {
	return nil, nil
}

func (f *fakeUserRepo) CountWithMoreXP(ctx context.Context, tx *gorm.DB, xp int) (int64, error) {
	return 0, nil
}

type fakeMessageRepo struct {
	created []*types.Message
}

func (f *fakeMessageRepo) Create(ctx context.Context, tx *gorm.DB, message *types.Message) error {
	f.created = append(f.created, message)
	return nil
}

func (f *fakeMessageRepo) GetByID(ctx context.Context, tx *gorm.DB, messageID uuid.UUID) (*types.Message, error) {
	for _, m := range f.created {
		if m.ID == messageID {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMessageRepo) Conversation(ctx context.Context, tx *gorm.DB, userA, userB uuid.UUID, limit int) ([]*types.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) ListInbox(ctx context.Context, tx *gorm.DB, userID uuid.UUID, unreadOnly bool) ([]*types.Message, error) {
	return nil, nil
}

func (f *fakeMessageRepo) MarkRead(ctx context.Context, tx *gorm.DB, messageID, recipientID uuid.UUID) error {
	return nil
}

func (f *fakeMessageRepo) MarkConversationRead(ctx context.Context, tx *gorm.DB, recipientID, senderID uuid.UUID) error {
	return nil
}

func (f *fakeMessageRepo) UnreadCount(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	return int64(len(f.created)), nil
}

func (f *fakeMessageRepo) ListInvolving(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Message, error) {
	return f.created, nil
}

type fakeAchievementRepo struct {
	held map[uuid.UUID]map[string]*types.Achievement
}

func (f *fakeAchievementRepo) Create(ctx context.Context, tx *gorm.DB, achievement *types.Achievement) error {
	if f.held[achievement.UserID] == nil {
		f.held[achievement.UserID] = map[string]*types.Achievement{}
	}
	f.held[achievement.UserID][achievement.Code] = achievement
	return nil
}

func (f *fakeAchievementRepo) ListByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.Achievement, error) {
	var out []*types.Achievement
	for _, a := range f.held[userID] {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAchievementRepo) ListRecentByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID, limit int) ([]*types.Achievement, error) {
	return f.ListByUser(ctx, tx, userID)
}

func (f *fakeAchievementRepo) CodesByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (map[string]struct{}, error) {
	out := map[string]struct{}{}
	for code := range f.held[userID] {
		out[code] = struct{}{}
	}
	return out, nil
}

func (f *fakeAchievementRepo) CountByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (int64, error) {
	return int64(len(f.held[userID])), nil
}

type recordingNotifier struct {
	habitCompletions int
	levelUps         int
	battlesResolved  int
	achievements     []string
}

func (n *recordingNotifier) HabitCompleted(userID uuid.UUID, habit *types.Habit, xpEarned int) {
	n.habitCompletions++
}
func (n *recordingNotifier) AchievementUnlocked(userID uuid.UUID, achievement *types.Achievement) {
	n.achievements = append(n.achievements, achievement.Code)
}
func (n *recordingNotifier) LevelUp(userID uuid.UUID, level int, title string)                 { n.levelUps++ }
func (n *recordingNotifier) MessageReceived(recipientID uuid.UUID, message *types.Message)     {}
func (n *recordingNotifier) BattleInvite(recipientID uuid.UUID, battle *types.Battle)          {}
func (n *recordingNotifier) BattleResolved(userID uuid.UUID, battle *types.Battle) {
	n.battlesResolved++
}
func (n *recordingNotifier) ChallengeReceived(recipientID uuid.UUID, ch *types.Challenge)      {}
func (n *recordingNotifier) FriendRequest(recipientID uuid.UUID, friendship *types.Friendship) {}

// ---- harness ----

type habitHarness struct {
	service     *habitService
	habits      *fakeHabitRepo
	completions *fakeCompletionRepo
	users       *fakeUserRepo
	messages    *fakeMessageRepo
	notifier    *recordingNotifier
	userID      uuid.UUID
	habitID     uuid.UUID
}

func newHabitHarness(t *testing.T, now time.Time) *habitHarness {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}

	habits := &fakeHabitRepo{habits: map[uuid.UUID]*types.Habit{}}
	completions := &fakeCompletionRepo{
		byHabit: map[uuid.UUID][]streak.Day{},
		byUser:  map[uuid.UUID][]streak.Day{},
	}
	users := &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
	messages := &fakeMessageRepo{}
	achievements := &fakeAchievementRepo{held: map[uuid.UUID]map[string]*types.Achievement{}}
	notifier := &recordingNotifier{}

	achievementService := NewAchievementService(db, log, achievements)
	service := NewHabitService(db, log, habits, completions, users, messages, achievementService, notifier).(*habitService)
	service.now = func() time.Time { return now }

	userID := uuid.New()
	users.users[userID] = &types.User{
		ID:       userID,
		Email:    "arise@example.com",
		Username: "arise",
		Level:    1,
		Title:    "Aspirant",
	}
	habitID := uuid.New()
	habits.habits[habitID] = &types.Habit{
		ID:         habitID,
		UserID:     userID,
		Title:      "Read 20 pages",
		Rule:       string(streak.RuleDaily),
		Difficulty: types.DifficultyMedium,
		XPReward:   20,
		Active:     true,
		CreatedAt:  now.AddDate(0, 0, -10),
	}

	return &habitHarness{
		service:     service,
		habits:      habits,
		completions: completions,
		users:       users,
		messages:    messages,
		notifier:    notifier,
		userID:      userID,
		habitID:     habitID,
	}
}

// ---- tests ----

func TestCompleteFirstTime(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 30, 0, 0, time.UTC)
	h := newHabitHarness(t, now)

	result, err := h.service.Complete(context.Background(), h.userID, h.habitID, "felt great")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}

	if result.Habit.StreakCurrent != 1 || result.Habit.StreakLongest != 1 {
		t.Errorf("habit streak = %d/%d, want 1/1", result.Habit.StreakCurrent, result.Habit.StreakLongest)
	}
	if result.XPEarned != 20 {
		t.Errorf("xp earned = %d, want 20", result.XPEarned)
	}
	if result.Level != 1 || result.LeveledUp {
		t.Errorf("level = %d leveledUp=%v, want 1/false", result.Level, result.LeveledUp)
	}
	if result.UserStreak.Current != 1 {
		t.Errorf("user streak = %d, want 1", result.UserStreak.Current)
	}

	user := h.users.users[h.userID]
	if user.XP != 20 {
		t.Errorf("user xp = %d, want 20", user.XP)
	}

	found := false
	for _, a := range result.Achievements {
		if a.Code == "first_completion" {
			found = true
		}
	}
	if !found {
		t.Errorf("first_completion not unlocked; got %v", result.Achievements)
	}
	if h.notifier.habitCompletions != 1 {
		t.Errorf("notifier completions = %d, want 1", h.notifier.habitCompletions)
	}

	// The unlock also lands in the inbox as a persisted message.
	var unlockMessages int
	for _, m := range h.messages.created {
		if m.Kind == types.MessageKindAchievement && m.RecipientID == h.userID {
			unlockMessages++
		}
	}
	if unlockMessages != len(result.Achievements) {
		t.Errorf("achievement messages = %d, want %d", unlockMessages, len(result.Achievements))
	}
}

func TestCompleteExtendsStreak(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)

	// Three prior consecutive days already on record.
	for i := 3; i >= 1; i-- {
		day := streak.DayOf(now.AddDate(0, 0, -i))
		h.completions.byHabit[h.habitID] = append(h.completions.byHabit[h.habitID], day)
		h.completions.byUser[h.userID] = append(h.completions.byUser[h.userID], day)
	}

	result, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if result.Habit.StreakCurrent != 4 {
		t.Errorf("streak = %d, want 4", result.Habit.StreakCurrent)
	}
}

func TestCompleteLockedSameDay(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)

	if _, err := h.service.Complete(context.Background(), h.userID, h.habitID, ""); err != nil {
		t.Fatalf("first complete: %v", err)
	}

	_, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	locked, ok := AsHabitLocked(err)
	if !ok {
		t.Fatalf("want HabitLockedError, got %v", err)
	}
	wantUnlock := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	if !locked.UnlocksAt.Equal(wantUnlock) {
		t.Errorf("unlocksAt = %s, want %s", locked.UnlocksAt, wantUnlock)
	}

	// Only one completion may exist.
	if got := len(h.completions.byHabit[h.habitID]); got != 1 {
		t.Errorf("completions = %d, want 1", got)
	}
}

// Two concurrent requests can both pass the eligibility read; the store's
// unique index rejects the second append, and the loser must see the same
// locked error the winner's completion produces, not a storage error.
func TestCompleteAppendRaceLoser(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)

	// No prior completion is visible to the eligibility check, yet the
	// append collides, as happens when the winner commits in between.
	h.completions.appendErr = repos.ErrDuplicateCompletion

	_, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	locked, ok := AsHabitLocked(err)
	if !ok {
		t.Fatalf("want HabitLockedError, got %v", err)
	}
	wantUnlock := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	if !locked.UnlocksAt.Equal(wantUnlock) {
		t.Errorf("unlocksAt = %s, want %s", locked.UnlocksAt, wantUnlock)
	}
	if errors.Is(err, repos.ErrDuplicateCompletion) {
		t.Errorf("storage error leaked to the caller: %v", err)
	}
	if got := len(h.completions.byHabit[h.habitID]); got != 0 {
		t.Errorf("completions = %d, want 0", got)
	}
	if h.notifier.habitCompletions != 0 {
		t.Errorf("notifier completions = %d, want 0", h.notifier.habitCompletions)
	}
}

func TestCompleteWeeklyLockWindow(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)
	h.habits.habits[h.habitID].Rule = string(streak.RuleWeekly)

	// Completed 3 days ago: a weekly habit is still locked.
	day := streak.DayOf(now.AddDate(0, 0, -3))
	h.completions.byHabit[h.habitID] = []streak.Day{day}

	_, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	locked, ok := AsHabitLocked(err)
	if !ok {
		t.Fatalf("want HabitLockedError, got %v", err)
	}
	wantUnlock := day.Time().AddDate(0, 0, 7)
	if !locked.UnlocksAt.Equal(wantUnlock) {
		t.Errorf("unlocksAt = %s, want %s", locked.UnlocksAt, wantUnlock)
	}
}

// The aggregate streak recompute is best-effort: a failure there must not
// roll back or fail the completion itself.
func TestCompleteAggregateStreakBestEffort(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)
	h.users.users[h.userID].StreakCurrent = 2
	h.users.users[h.userID].StreakLongest = 5
	h.completions.userDaysErr = errors.New("aggregate scan timed out")

	result, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if got := len(h.completions.byHabit[h.habitID]); got != 1 {
		t.Errorf("completions = %d, want 1", got)
	}
	// The response falls back to the cached aggregate values.
	if result.UserStreak.Current != 2 || result.UserStreak.Longest != 5 {
		t.Errorf("user streak = %d/%d, want cached 2/5", result.UserStreak.Current, result.UserStreak.Longest)
	}
	if h.users.users[h.userID].StreakCurrent != 2 {
		t.Errorf("cached streak overwritten to %d", h.users.users[h.userID].StreakCurrent)
	}
}

func TestCompleteLevelUp(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)
	h.users.users[h.userID].XP = 95

	result, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !result.LeveledUp || result.Level != 2 {
		t.Errorf("level = %d leveledUp=%v, want 2/true", result.Level, result.LeveledUp)
	}
	if h.notifier.levelUps != 1 {
		t.Errorf("levelUp notifications = %d, want 1", h.notifier.levelUps)
	}
}

func TestCompleteArchivedHabit(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)
	h.habits.habits[h.habitID].Active = false

	_, err := h.service.Complete(context.Background(), h.userID, h.habitID, "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
}

func TestCompleteNotOwned(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	h := newHabitHarness(t, now)

	_, err := h.service.Complete(context.Background(), uuid.New(), h.habitID, "")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}
