package app

import (
	"github.com/yungbote/librarium-backend/internal/handlers"
	"github.com/yungbote/librarium-backend/internal/logger"
	"github.com/yungbote/librarium-backend/internal/sse"
)

type Handlers struct {
	Auth       *handlers.AuthHandler
	User       *handlers.UserHandler
	Habit      *handlers.HabitHandler
	Battle     *handlers.BattleHandler
	Challenge  *handlers.ChallengeHandler
	Message    *handlers.MessageHandler
	Friendship *handlers.FriendshipHandler
	SSE        *handlers.SSEHandler
}

func wireHandlers(log *logger.Logger, s Services, hub *sse.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Auth:       handlers.NewAuthHandler(s.Auth),
		User:       handlers.NewUserHandler(s.User, s.Achievement),
		Habit:      handlers.NewHabitHandler(s.Habit),
		Battle:     handlers.NewBattleHandler(s.Battle),
		Challenge:  handlers.NewChallengeHandler(s.Challenge),
		Message:    handlers.NewMessageHandler(s.Message),
		Friendship: handlers.NewFriendshipHandler(s.Friendship),
		SSE:        handlers.NewSSEHandler(log, hub),
	}
}
