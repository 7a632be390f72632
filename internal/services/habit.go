package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/observability"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/streak"
	"github.com/yungbote/librarium-backend/internal/types"
)

// HabitInput carries the caller-editable habit fields.
type HabitInput struct {
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	Rule           string                `json:"rule"`
	Category       string                `json:"category"`
	Difficulty     types.HabitDifficulty `json:"difficulty"`
	Icon           string                `json:"icon"`
	Color          string                `json:"color"`
	TargetWeekdays []byte                `json:"target_weekdays,omitempty"`
	ReminderTime   string                `json:"reminder_time,omitempty"`
}

// HabitView is a habit plus its live recurrence state.
type HabitView struct {
	*types.Habit
	Eligibility streak.Eligibility `json:"eligibility"`
}

// CompletionResult is everything a completion changed, returned in one shot
// so the client can animate streaks, XP and unlocks without refetching.
type CompletionResult struct {
	Completion   *types.Completion    `json:"completion"`
	Habit        *types.Habit         `json:"habit"`
	XPEarned     int                  `json:"xp_earned"`
	Level        int                  `json:"level"`
	LeveledUp    bool                 `json:"leveled_up"`
	Title        string               `json:"title"`
	UserStreak   streak.State         `json:"user_streak"`
	Achievements []*types.Achievement `json:"achievements,omitempty"`
}

type HabitService interface {
	Create(ctx context.Context, userID uuid.UUID, input HabitInput) (*types.Habit, error)
	Get(ctx context.Context, userID, habitID uuid.UUID) (*HabitView, error)
	List(ctx context.Context, userID uuid.UUID, filters repos.HabitFilters) ([]*HabitView, error)
	Update(ctx context.Context, userID, habitID uuid.UUID, input HabitInput) (*types.Habit, error)
	SetActive(ctx context.Context, userID, habitID uuid.UUID, active bool) (*types.Habit, error)
	Delete(ctx context.Context, userID, habitID uuid.UUID) error
	Complete(ctx context.Context, userID, habitID uuid.UUID, note string) (*CompletionResult, error)
	History(ctx context.Context, userID, habitID uuid.UUID, from, to *time.Time, limit int) ([]*types.Completion, error)
}

type habitService struct {
	db                 *gorm.DB
	log                *logger.Logger
	habitRepo          repos.HabitRepo
	completionRepo     repos.CompletionRepo
	userRepo           repos.UserRepo
	messageRepo        repos.MessageRepo
	achievementService AchievementService
	notifier           GameNotifier
	now                func() time.Time
}

func NewHabitService(
	db *gorm.DB,
	log *logger.Logger,
	habitRepo repos.HabitRepo,
	completionRepo repos.CompletionRepo,
	userRepo repos.UserRepo,
	messageRepo repos.MessageRepo,
	achievementService AchievementService,
	notifier GameNotifier,
) HabitService {
	return &habitService{
		db:                 db,
		log:                log.With("service", "HabitService"),
		habitRepo:          habitRepo,
		completionRepo:     completionRepo,
		userRepo:           userRepo,
		messageRepo:        messageRepo,
		achievementService: achievementService,
		notifier:           notifier,
		now:                func() time.Time { return time.Now().UTC() },
	}
}

func (hs *habitService) validateInput(input *HabitInput) error {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return validationError("title is required")
	}
	if input.Rule == "" {
		input.Rule = string(streak.RuleDaily)
	}
	if _, err := streak.ParseRule(input.Rule); err != nil {
		return validationError("rule must be daily, weekly or monthly")
	}
	if input.Difficulty == "" {
		input.Difficulty = types.DifficultyMedium
	}
	if !input.Difficulty.Valid() {
		return validationError("difficulty must be easy, medium, hard or legendary")
	}
	return nil
}

func (hs *habitService) Create(ctx context.Context, userID uuid.UUID, input HabitInput) (*types.Habit, error) {
	if err := hs.validateInput(&input); err != nil {
		return nil, err
	}

	habit := &types.Habit{
		ID:          uuid.New(),
		UserID:      userID,
		Title:       input.Title,
		Description: input.Description,
		Rule:        input.Rule,
		Difficulty:  input.Difficulty,
		XPReward:    input.Difficulty.XPReward(),
		Active:      true,
	}
	if input.Category != "" {
		habit.Category = input.Category
	} else {
		habit.Category = "personal"
	}
	if input.Icon != "" {
		habit.Icon = input.Icon
	} else {
		habit.Icon = "sword"
	}
	if input.Color != "" {
		habit.Color = input.Color
	} else {
		habit.Color = "#8B5CF6"
	}
	if len(input.TargetWeekdays) > 0 {
		habit.TargetWeekdays = input.TargetWeekdays
	}
	habit.ReminderTime = input.ReminderTime

	if err := hs.habitRepo.Create(ctx, nil, habit); err != nil {
		return nil, fmt.Errorf("create habit: %w", err)
	}
	hs.log.Info("habit created", "habitID", habit.ID, "userID", userID, "rule", habit.Rule)
	return habit, nil
}

func (hs *habitService) Get(ctx context.Context, userID, habitID uuid.UUID) (*HabitView, error) {
	habit, err := hs.habitRepo.GetOwned(ctx, nil, habitID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hs.annotate(ctx, habit)
}

func (hs *habitService) List(ctx context.Context, userID uuid.UUID, filters repos.HabitFilters) ([]*HabitView, error) {
	habits, err := hs.habitRepo.ListByUser(ctx, nil, userID, filters)
	if err != nil {
		return nil, err
	}
	views := make([]*HabitView, 0, len(habits))
	for _, habit := range habits {
		view, err := hs.annotate(ctx, habit)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}
	return views, nil
}

// annotate attaches the habit's current eligibility window, derived from its
// most recent completion day.
func (hs *habitService) annotate(ctx context.Context, habit *types.Habit) (*HabitView, error) {
	last, err := hs.completionRepo.GetLastDayByHabit(ctx, nil, habit.ID)
	if err != nil {
		return nil, fmt.Errorf("load last completion: %w", err)
	}
	rule, _ := streak.ParseRule(habit.Rule)
	return &HabitView{
		Habit:       habit,
		Eligibility: streak.ComputeEligibility(rule, last, hs.now()),
	}, nil
}

func (hs *habitService) Update(ctx context.Context, userID, habitID uuid.UUID, input HabitInput) (*types.Habit, error) {
	if err := hs.validateInput(&input); err != nil {
		return nil, err
	}

	var updated *types.Habit
	err := hs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habit, err := hs.habitRepo.GetOwned(ctx, tx, habitID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		habit.Title = input.Title
		habit.Description = input.Description
		habit.Rule = input.Rule
		habit.Difficulty = input.Difficulty
		habit.XPReward = input.Difficulty.XPReward()
		if input.Category != "" {
			habit.Category = input.Category
		}
		if input.Icon != "" {
			habit.Icon = input.Icon
		}
		if input.Color != "" {
			habit.Color = input.Color
		}
		if len(input.TargetWeekdays) > 0 {
			habit.TargetWeekdays = input.TargetWeekdays
		}
		habit.ReminderTime = input.ReminderTime

		if err := hs.habitRepo.Save(ctx, tx, habit); err != nil {
			return fmt.Errorf("save habit: %w", err)
		}
		updated = habit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (hs *habitService) SetActive(ctx context.Context, userID, habitID uuid.UUID, active bool) (*types.Habit, error) {
	var updated *types.Habit
	err := hs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habit, err := hs.habitRepo.GetOwned(ctx, tx, habitID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		habit.Active = active
		if err := hs.habitRepo.Save(ctx, tx, habit); err != nil {
			return err
		}
		updated = habit
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (hs *habitService) Delete(ctx context.Context, userID, habitID uuid.UUID) error {
	return hs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := hs.habitRepo.GetOwned(ctx, tx, habitID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		return hs.habitRepo.Delete(ctx, tx, habitID)
	})
}

// Complete records today's completion and rolls its consequences forward:
// habit streak, aggregate streak, XP, level, title and achievement unlocks.
// The recurrence check is advisory; the (habit_id, day) unique index is what
// actually decides a same-day race, so two concurrent requests yield exactly
// one completion and one locked error.
func (hs *habitService) Complete(ctx context.Context, userID, habitID uuid.UUID, note string) (*CompletionResult, error) {
	ctx, span := otel.Tracer("services").Start(ctx, "habit.complete")
	defer span.End()
	span.SetAttributes(attribute.String("habit.id", habitID.String()))

	now := hs.now()
	today := streak.DayOf(now)

	var result *CompletionResult
	err := hs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		habit, err := hs.habitRepo.GetOwned(ctx, tx, habitID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !habit.Active {
			return fmt.Errorf("%w: habit is archived", ErrConflict)
		}

		rule, _ := streak.ParseRule(habit.Rule)
		last, err := hs.completionRepo.GetLastDayByHabit(ctx, tx, habitID)
		if err != nil {
			return fmt.Errorf("load last completion: %w", err)
		}
		if el := streak.ComputeEligibility(rule, last, now); el.Locked {
			return &HabitLockedError{UnlocksAt: *el.UnlocksAt}
		}

		completion := &types.Completion{
			ID:         uuid.New(),
			HabitID:    habitID,
			UserID:     userID,
			Day:        today.Time(),
			Note:       strings.TrimSpace(note),
			XPEarned:   habit.XPReward,
			Difficulty: habit.Difficulty,
		}
		if err := hs.completionRepo.Append(ctx, tx, completion); err != nil {
			if errors.Is(err, repos.ErrDuplicateCompletion) {
				// Lost the race: report the same lock the winner produced.
				el := streak.ComputeEligibility(rule, &today, now)
				return &HabitLockedError{UnlocksAt: *el.UnlocksAt}
			}
			return fmt.Errorf("append completion: %w", err)
		}

		// The stored streak columns are a cache; the completion set is the
		// source of truth, so both streaks are recomputed from scratch.
		habitDays, err := hs.completionRepo.GetDaysByHabit(ctx, tx, habitID)
		if err != nil {
			return fmt.Errorf("load habit days: %w", err)
		}
		habitStreak := streak.Compute(habitDays, today)
		rate := completionRate(rule, habit.CreatedAt, now, len(habitDays))
		if err := hs.habitRepo.UpdateStreakCache(ctx, tx, habitID, habitStreak.Current, habitStreak.Longest, len(habitDays), rate); err != nil {
			return fmt.Errorf("update habit cache: %w", err)
		}
		habit.StreakCurrent = habitStreak.Current
		habit.StreakLongest = habitStreak.Longest
		habit.TotalCompletions = len(habitDays)
		habit.CompletionRate = rate

		user, err := hs.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}
		newXP := user.XP + habit.XPReward
		newLevel := LevelForXP(newXP)
		leveledUp := newLevel > user.Level
		if err := hs.userRepo.UpdateXPAndLevel(ctx, tx, userID, newXP, newLevel); err != nil {
			return fmt.Errorf("update xp: %w", err)
		}
		title := user.Title
		if leveledUp {
			tier, newTitle := TierForLevel(newLevel)
			title = newTitle
			if tier != user.AvatarTier {
				if err := hs.userRepo.UpdateTitle(ctx, tx, userID, tier, newTitle); err != nil {
					return fmt.Errorf("update title: %w", err)
				}
			}
		}
		if err := hs.userRepo.TouchActivity(ctx, tx, userID); err != nil {
			return fmt.Errorf("touch activity: %w", err)
		}

		totalCompletions, err := hs.completionRepo.CountByUser(ctx, tx, userID)
		if err != nil {
			return fmt.Errorf("count completions: %w", err)
		}
		unlocked, err := hs.achievementService.Evaluate(ctx, tx, userID, UnlockStats{
			TotalCompletions: totalCompletions,
			StreakCurrent:    habitStreak.Current,
			StreakLongest:    habitStreak.Longest,
			Level:            newLevel,
		})
		if err != nil {
			return fmt.Errorf("evaluate achievements: %w", err)
		}
		for _, achievement := range unlocked {
			notice := &types.Message{
				ID:          uuid.New(),
				SenderID:    userID,
				RecipientID: userID,
				Body:        fmt.Sprintf("Achievement unlocked: %s! %s", achievement.Title, achievement.Description),
				Kind:        types.MessageKindAchievement,
			}
			if err := hs.messageRepo.Create(ctx, tx, notice); err != nil {
				return fmt.Errorf("record achievement message: %w", err)
			}
		}

		result = &CompletionResult{
			Completion:   completion,
			Habit:        habit,
			XPEarned:     habit.XPReward,
			Level:        newLevel,
			LeveledUp:    leveledUp,
			Title:        title,
			UserStreak:   streak.State{Current: user.StreakCurrent, Longest: user.StreakLongest},
			Achievements: unlocked,
		}
		return nil
	})
	if err != nil {
		if _, locked := AsHabitLocked(err); locked {
			observability.Current().IncHabitLocked()
		}
		return nil, err
	}

	// The aggregate streak spans every habit the user owns; recomputing it is
	// best-effort and must never fail the completion that just committed.
	if userDays, derr := hs.completionRepo.GetDaysByUser(ctx, nil, userID); derr != nil {
		hs.log.Warn("aggregate streak recompute failed", "userID", userID, "error", derr)
	} else {
		userStreak := streak.Compute(userDays, today)
		result.UserStreak = userStreak
		if uerr := hs.userRepo.UpdateStreak(ctx, nil, userID, userStreak.Current, userStreak.Longest); uerr != nil {
			hs.log.Warn("aggregate streak persist failed", "userID", userID, "error", uerr)
		}
	}

	if metrics := observability.Current(); metrics != nil {
		metrics.IncHabitCompletion(result.Habit.Rule, string(result.Habit.Difficulty))
		metrics.AddXPAwarded("habit", result.XPEarned)
		if result.LeveledUp {
			metrics.IncLevelUp()
		}
		for _, achievement := range result.Achievements {
			metrics.IncAchievementUnlock(achievement.Rarity)
		}
	}

	hs.log.Info("habit completed",
		"habitID", habitID,
		"userID", userID,
		"day", today.String(),
		"streak", result.Habit.StreakCurrent,
		"xp", result.XPEarned,
	)
	hs.notifier.HabitCompleted(userID, result.Habit, result.XPEarned)
	if result.LeveledUp {
		hs.notifier.LevelUp(userID, result.Level, result.Title)
	}
	for _, achievement := range result.Achievements {
		hs.notifier.AchievementUnlocked(userID, achievement)
	}
	return result, nil
}

func (hs *habitService) History(ctx context.Context, userID, habitID uuid.UUID, from, to *time.Time, limit int) ([]*types.Completion, error) {
	if _, err := hs.habitRepo.GetOwned(ctx, nil, habitID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return hs.completionRepo.ListByHabit(ctx, nil, habitID, from, to, limit)
}

// completionRate compares recorded completions against the periods elapsed
// since the habit was created, capped at 1.
func completionRate(rule streak.Rule, createdAt, now time.Time, completions int) float64 {
	elapsedDays := int(now.Sub(createdAt).Hours()/24) + 1
	if elapsedDays < 1 {
		elapsedDays = 1
	}
	periods := elapsedDays
	switch rule {
	case streak.RuleWeekly:
		periods = (elapsedDays + 6) / 7
	case streak.RuleMonthly:
		periods = (elapsedDays + 29) / 30
	}
	if periods < 1 {
		periods = 1
	}
	rate := float64(completions) / float64(periods)
	if rate > 1 {
		rate = 1
	}
	return rate
}
