package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/repos"
	"github.com/yungbote/librarium-backend/internal/streak"
	"github.com/yungbote/librarium-backend/internal/types"
)

// Dashboard is the single payload the home screen renders from.
type Dashboard struct {
	User               *types.User          `json:"user"`
	Habits             []*HabitView         `json:"habits"`
	UnreadMessages     int64                `json:"unread_messages"`
	PendingBattles     []*types.Battle      `json:"pending_battles"`
	PendingChallenges  []*types.Challenge   `json:"pending_challenges"`
	PendingFriendships []*types.Friendship  `json:"pending_friendships"`
	RecentAchievements []*types.Achievement `json:"recent_achievements"`
}

// UserStats aggregates a player's whole history, optionally restricted to a
// trailing period for the breakdown maps.
type UserStats struct {
	TotalCompletions int64            `json:"total_completions"`
	ActiveHabits     int              `json:"active_habits"`
	Streak           streak.State     `json:"streak"`
	Level            int              `json:"level"`
	XP               int              `json:"xp"`
	XPToNextLevel    int              `json:"xp_to_next_level"`
	Achievements     int64            `json:"achievements"`
	BattlesWon       int64            `json:"battles_won"`
	RankPosition     int64            `json:"rank_position"`
	ByCategory       map[string]int64 `json:"by_category"`
	ByDifficulty     map[string]int64 `json:"by_difficulty"`
	HabitStreaks     []HabitStreak    `json:"habit_streaks"`
}

// HabitStreak is one habit's cached streak pair, for the stats screen.
type HabitStreak struct {
	HabitID uuid.UUID    `json:"habit_id"`
	Title   string       `json:"title"`
	Streak  streak.State `json:"streak"`
}

// RankedUser is one row of the global leaderboard.
type RankedUser struct {
	Position int `json:"position"`
	types.PublicUser
}

// PreferencesInput uses pointers so absent fields stay untouched.
type PreferencesInput struct {
	NotificationsEnabled *bool   `json:"notifications_enabled,omitempty"`
	Theme                *string `json:"theme,omitempty"`
	Language             *string `json:"language,omitempty"`
}

// UserExport is the player's full data, shaped for a portable download.
type UserExport struct {
	ExportedAt   time.Time            `json:"exported_at"`
	User         *types.User          `json:"user"`
	Habits       []*types.Habit       `json:"habits"`
	Completions  []*types.Completion  `json:"completions"`
	Achievements []*types.Achievement `json:"achievements"`
}

type UserService interface {
	GetMe(ctx context.Context, userID uuid.UUID) (*types.User, error)
	GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error)
	GetStats(ctx context.Context, userID uuid.UUID, periodDays int) (*UserStats, error)
	GetRanking(ctx context.Context, limit int) ([]RankedUser, error)
	UpdatePreferences(ctx context.Context, userID uuid.UUID, input PreferencesInput) (*types.User, error)
	EvolveAvatar(ctx context.Context, userID uuid.UUID) (*types.User, error)
	Search(ctx context.Context, query string, limit int) ([]types.PublicUser, error)
	Export(ctx context.Context, userID uuid.UUID) (*UserExport, error)
}

type userService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	habitService   HabitService
	habitRepo      repos.HabitRepo
	completionRepo repos.CompletionRepo
	messageRepo    repos.MessageRepo
	battleRepo     repos.BattleRepo
	challengeRepo  repos.ChallengeRepo
	friendshipRepo repos.FriendshipRepo
	achievementRepo repos.AchievementRepo
}

func NewUserService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	habitService HabitService,
	habitRepo repos.HabitRepo,
	completionRepo repos.CompletionRepo,
	messageRepo repos.MessageRepo,
	battleRepo repos.BattleRepo,
	challengeRepo repos.ChallengeRepo,
	friendshipRepo repos.FriendshipRepo,
	achievementRepo repos.AchievementRepo,
) UserService {
	return &userService{
		db:              db,
		log:             log.With("service", "UserService"),
		userRepo:        userRepo,
		habitService:    habitService,
		habitRepo:       habitRepo,
		completionRepo:  completionRepo,
		messageRepo:     messageRepo,
		battleRepo:      battleRepo,
		challengeRepo:   challengeRepo,
		friendshipRepo:  friendshipRepo,
		achievementRepo: achievementRepo,
	}
}

func (us *userService) GetMe(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	user, err := us.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetDashboard fans the independent reads out concurrently; none of them
// depend on each other and the home screen wants all of them at once.
func (us *userService) GetDashboard(ctx context.Context, userID uuid.UUID) (*Dashboard, error) {
	dashboard := &Dashboard{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := us.GetMe(gctx, userID)
		if err != nil {
			return err
		}
		dashboard.User = user
		return nil
	})
	g.Go(func() error {
		active := true
		habits, err := us.habitService.List(gctx, userID, repos.HabitFilters{Active: &active})
		if err != nil {
			return fmt.Errorf("list habits: %w", err)
		}
		dashboard.Habits = habits
		return nil
	})
	g.Go(func() error {
		unread, err := us.messageRepo.UnreadCount(gctx, nil, userID)
		if err != nil {
			return fmt.Errorf("unread count: %w", err)
		}
		dashboard.UnreadMessages = unread
		return nil
	})
	g.Go(func() error {
		battles, err := us.battleRepo.ListPendingForUser(gctx, nil, userID)
		if err != nil {
			return fmt.Errorf("pending battles: %w", err)
		}
		dashboard.PendingBattles = battles
		return nil
	})
	g.Go(func() error {
		challenges, err := us.challengeRepo.ListByUser(gctx, nil, userID, types.ChallengeStatusPending)
		if err != nil {
			return fmt.Errorf("pending challenges: %w", err)
		}
		dashboard.PendingChallenges = challenges
		return nil
	})
	g.Go(func() error {
		friendships, err := us.friendshipRepo.ListPendingFor(gctx, nil, userID)
		if err != nil {
			return fmt.Errorf("pending friendships: %w", err)
		}
		dashboard.PendingFriendships = friendships
		return nil
	})
	g.Go(func() error {
		achievements, err := us.achievementRepo.ListRecentByUser(gctx, nil, userID, 5)
		if err != nil {
			return fmt.Errorf("recent achievements: %w", err)
		}
		dashboard.RecentAchievements = achievements
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return dashboard, nil
}

func (us *userService) GetStats(ctx context.Context, userID uuid.UUID, periodDays int) (*UserStats, error) {
	user, err := us.GetMe(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{
		Level:         user.Level,
		XP:            user.XP,
		XPToNextLevel: user.Level*100 - user.XP,
		Streak:        streak.State{Current: user.StreakCurrent, Longest: user.StreakLongest},
		ByCategory:    map[string]int64{},
		ByDifficulty:  map[string]int64{},
	}
	var since *time.Time
	if periodDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -periodDays)
		since = &cutoff
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		total, err := us.completionRepo.CountByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		stats.TotalCompletions = total
		return nil
	})
	g.Go(func() error {
		habits, err := us.habitRepo.ListActiveByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		stats.ActiveHabits = len(habits)
		streaks := make([]HabitStreak, 0, len(habits))
		for _, habit := range habits {
			streaks = append(streaks, HabitStreak{
				HabitID: habit.ID,
				Title:   habit.Title,
				Streak:  streak.State{Current: habit.StreakCurrent, Longest: habit.StreakLongest},
			})
		}
		stats.HabitStreaks = streaks
		return nil
	})
	g.Go(func() error {
		buckets, err := us.completionRepo.BreakdownByUser(gctx, nil, userID, since)
		if err != nil {
			return err
		}
		for _, bucket := range buckets {
			category := bucket.Category
			if category == "" {
				category = "uncategorized"
			}
			stats.ByCategory[category] += bucket.Count
			stats.ByDifficulty[bucket.Difficulty] += bucket.Count
		}
		return nil
	})
	g.Go(func() error {
		count, err := us.achievementRepo.CountByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		stats.Achievements = count
		return nil
	})
	g.Go(func() error {
		won, err := us.battleRepo.CountWonByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		stats.BattlesWon = won
		return nil
	})
	g.Go(func() error {
		ahead, err := us.userRepo.CountWithMoreXP(gctx, nil, user.XP)
		if err != nil {
			return err
		}
		stats.RankPosition = ahead + 1
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (us *userService) GetRanking(ctx context.Context, limit int) ([]RankedUser, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	users, err := us.userRepo.Ranking(ctx, nil, limit)
	if err != nil {
		return nil, err
	}
	ranked := make([]RankedUser, 0, len(users))
	for i, user := range users {
		ranked = append(ranked, RankedUser{Position: i + 1, PublicUser: user.Public()})
	}
	return ranked, nil
}

var validThemes = map[string]struct{}{
	"dark":   {},
	"light":  {},
	"system": {},
}

func (us *userService) UpdatePreferences(ctx context.Context, userID uuid.UUID, input PreferencesInput) (*types.User, error) {
	updates := map[string]any{}
	if input.NotificationsEnabled != nil {
		updates["notifications_enabled"] = *input.NotificationsEnabled
	}
	if input.Theme != nil {
		theme := strings.ToLower(strings.TrimSpace(*input.Theme))
		if _, ok := validThemes[theme]; !ok {
			return nil, validationError("theme must be dark, light or system")
		}
		updates["theme"] = theme
	}
	if input.Language != nil {
		lang := strings.ToLower(strings.TrimSpace(*input.Language))
		if len(lang) != 2 {
			return nil, validationError("language must be a two-letter code")
		}
		updates["language"] = lang
	}
	if len(updates) == 0 {
		return us.GetMe(ctx, userID)
	}

	var updated *types.User
	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := us.userRepo.UpdatePreferences(ctx, tx, userID, updates); err != nil {
			return err
		}
		user, err := us.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EvolveAvatar re-derives the avatar tier and title from the current level.
// Normally the completion workflow keeps them in sync; this exists for
// accounts whose tier predates a threshold change.
func (us *userService) EvolveAvatar(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	var updated *types.User
	err := us.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := us.userRepo.GetByID(ctx, tx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		tier, title := TierForLevel(user.Level)
		if tier != user.AvatarTier || title != user.Title {
			if err := us.userRepo.UpdateTitle(ctx, tx, userID, tier, title); err != nil {
				return err
			}
			user.AvatarTier = tier
			user.Title = title
			us.log.Info("avatar evolved", "userID", userID, "tier", tier)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (us *userService) Search(ctx context.Context, query string, limit int) ([]types.PublicUser, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, validationError("search query must be at least 2 characters")
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	users, err := us.userRepo.Search(ctx, nil, query, limit)
	if err != nil {
		return nil, err
	}
	out := make([]types.PublicUser, 0, len(users))
	for _, user := range users {
		out = append(out, user.Public())
	}
	return out, nil
}

func (us *userService) Export(ctx context.Context, userID uuid.UUID) (*UserExport, error) {
	export := &UserExport{ExportedAt: time.Now().UTC()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		user, err := us.GetMe(gctx, userID)
		if err != nil {
			return err
		}
		export.User = user
		return nil
	})
	g.Go(func() error {
		habits, err := us.habitRepo.ListByUser(gctx, nil, userID, repos.HabitFilters{})
		if err != nil {
			return err
		}
		export.Habits = habits
		return nil
	})
	g.Go(func() error {
		completions, err := us.completionRepo.ListByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		export.Completions = completions
		return nil
	})
	g.Go(func() error {
		achievements, err := us.achievementRepo.ListByUser(gctx, nil, userID)
		if err != nil {
			return err
		}
		export.Achievements = achievements
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return export, nil
}
