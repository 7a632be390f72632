package repos

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/streak"
	"github.com/yungbote/librarium-backend/internal/types"
)

// The production schema leans on Postgres defaults, so tests create the two
// tables they need by hand. The unique pair index matches production.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared&_fk=1"), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ddl := []string{
		`DROP TABLE IF EXISTS completion`,
		`DROP TABLE IF EXISTS habit`,
		`CREATE TABLE habit (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT,
			rule TEXT NOT NULL DEFAULT 'daily',
			category TEXT NOT NULL DEFAULT 'personal',
			difficulty TEXT NOT NULL DEFAULT 'medium',
			xp_reward INTEGER NOT NULL DEFAULT 0,
			icon TEXT NOT NULL DEFAULT 'sword',
			color TEXT NOT NULL DEFAULT '#8B5CF6',
			active NUMERIC NOT NULL DEFAULT 1,
			target_weekdays TEXT,
			reminder_time TEXT,
			streak_current INTEGER NOT NULL DEFAULT 0,
			streak_longest INTEGER NOT NULL DEFAULT 0,
			total_completions INTEGER NOT NULL DEFAULT 0,
			total_missed INTEGER NOT NULL DEFAULT 0,
			completion_rate REAL NOT NULL DEFAULT 0,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE completion (
			id TEXT PRIMARY KEY,
			habit_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			day DATE NOT NULL,
			note TEXT,
			xp_earned INTEGER NOT NULL DEFAULT 0,
			difficulty TEXT NOT NULL DEFAULT 'medium',
			created_at DATETIME
		)`,
		`CREATE UNIQUE INDEX idx_completion_habit_day ON completion(habit_id, day)`,
	}
	for _, stmt := range ddl {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("ddl: %v", err)
		}
	}
	return db
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

func mkCompletion(habitID, userID uuid.UUID, day time.Time) *types.Completion {
	return &types.Completion{
		ID:         uuid.New(),
		HabitID:    habitID,
		UserID:     userID,
		Day:        day,
		XPEarned:   20,
		Difficulty: types.DifficultyMedium,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestAppendRejectsSameDayDuplicate(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompletionRepo(db, testLogger(t))
	ctx := context.Background()

	habitID := uuid.New()
	userID := uuid.New()
	day := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	if err := repo.Append(ctx, nil, mkCompletion(habitID, userID, day)); err != nil {
		t.Fatalf("first append: %v", err)
	}
	err := repo.Append(ctx, nil, mkCompletion(habitID, userID, day))
	if !errors.Is(err, ErrDuplicateCompletion) {
		t.Fatalf("second append: want ErrDuplicateCompletion, got %v", err)
	}

	// A different habit may share the day.
	if err := repo.Append(ctx, nil, mkCompletion(uuid.New(), userID, day)); err != nil {
		t.Fatalf("other habit same day: %v", err)
	}
}

func TestGetDaysByHabitSortedDistinct(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompletionRepo(db, testLogger(t))
	ctx := context.Background()

	habitID := uuid.New()
	userID := uuid.New()
	dates := []time.Time{
		time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC),
	}
	for _, d := range dates {
		if err := repo.Append(ctx, nil, mkCompletion(habitID, userID, d)); err != nil {
			t.Fatalf("append %s: %v", d, err)
		}
	}
	// Noise from another habit must not leak in.
	if err := repo.Append(ctx, nil, mkCompletion(uuid.New(), userID, dates[0])); err != nil {
		t.Fatalf("append noise: %v", err)
	}

	days, err := repo.GetDaysByHabit(ctx, nil, habitID)
	if err != nil {
		t.Fatalf("get days: %v", err)
	}
	want := []streak.Day{
		streak.DayOf(dates[1]),
		streak.DayOf(dates[2]),
		streak.DayOf(dates[0]),
	}
	if len(days) != len(want) {
		t.Fatalf("got %d days, want %d", len(days), len(want))
	}
	for i := range want {
		if days[i] != want[i] {
			t.Errorf("day[%d] = %s, want %s", i, days[i], want[i])
		}
	}
}

func TestGetLastDayByHabit(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompletionRepo(db, testLogger(t))
	ctx := context.Background()

	habitID := uuid.New()
	userID := uuid.New()

	last, err := repo.GetLastDayByHabit(ctx, nil, habitID)
	if err != nil {
		t.Fatalf("empty habit: %v", err)
	}
	if last != nil {
		t.Fatalf("empty habit: want nil, got %s", *last)
	}

	for _, d := range []time.Time{
		time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
	} {
		if err := repo.Append(ctx, nil, mkCompletion(habitID, userID, d)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	last, err = repo.GetLastDayByHabit(ctx, nil, habitID)
	if err != nil {
		t.Fatalf("get last: %v", err)
	}
	want := streak.DayOf(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC))
	if last == nil || *last != want {
		t.Fatalf("last day = %v, want %s", last, want)
	}
}

func TestGetDaysByUserSpansHabits(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompletionRepo(db, testLogger(t))
	ctx := context.Background()

	userID := uuid.New()
	habitA := uuid.New()
	habitB := uuid.New()
	day1 := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)

	// Both habits completed on day1: the user's day set still has it once.
	if err := repo.Append(ctx, nil, mkCompletion(habitA, userID, day1)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, nil, mkCompletion(habitB, userID, day1)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Append(ctx, nil, mkCompletion(habitB, userID, day2)); err != nil {
		t.Fatal(err)
	}

	days, err := repo.GetDaysByUser(ctx, nil, userID)
	if err != nil {
		t.Fatalf("get days by user: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("got %d days, want 2 (%v)", len(days), days)
	}
	if days[0] != streak.DayOf(day1) || days[1] != streak.DayOf(day2) {
		t.Fatalf("days = %v", days)
	}
}
