package app

import (
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/services"
	"github.com/yungbote/librarium-backend/internal/sse"
)

type Services struct {
	Auth        services.AuthService
	User        services.UserService
	Habit       services.HabitService
	Achievement services.AchievementService
	Battle      services.BattleService
	Challenge   services.ChallengeService
	Message     services.MessageService
	Friendship  services.FriendshipService
	Notifier    services.GameNotifier
	SSEBus      services.SSEBus
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, hub *sse.SSEHub) (Services, error) {
	log.Info("Wiring services...")

	// With Redis configured, events go through the bus so every replica's hub
	// sees them. Without it, the local hub is the whole fan-out.
	var emitter services.SSEEmitter = &services.HubEmitter{Hub: hub}
	var bus services.SSEBus
	if strings.TrimSpace(os.Getenv("REDIS_ADDR")) != "" {
		redisBus, err := services.NewRedisSSEBus(log)
		if err != nil {
			return Services{}, err
		}
		bus = redisBus
		emitter = &services.RedisEmitter{Bus: redisBus}
	}
	notifier := services.NewGameNotifier(emitter)

	authService := services.NewAuthService(db, log, r.User, r.UserToken, cfg.JWTSecretKey, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	achievementService := services.NewAchievementService(db, log, r.Achievement)
	habitService := services.NewHabitService(db, log, r.Habit, r.Completion, r.User, r.Message, achievementService, notifier)
	userService := services.NewUserService(db, log, r.User, habitService, r.Habit, r.Completion, r.Message, r.Battle, r.Challenge, r.Friendship, r.Achievement)
	battleService := services.NewBattleService(db, log, r.Battle, r.Completion, r.Friendship, r.User, r.Message, notifier)
	challengeService := services.NewChallengeService(db, log, r.Challenge, r.Friendship, r.Message, notifier)
	messageService := services.NewMessageService(db, log, r.Message, r.Friendship, r.User, notifier)
	friendshipService := services.NewFriendshipService(db, log, r.Friendship, r.User, r.Message, notifier)

	return Services{
		Auth:        authService,
		User:        userService,
		Habit:       habitService,
		Achievement: achievementService,
		Battle:      battleService,
		Challenge:   challengeService,
		Message:     messageService,
		Friendship:  friendshipService,
		Notifier:    notifier,
		SSEBus:      bus,
	}, nil
}
