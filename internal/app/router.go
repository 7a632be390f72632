package app

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/librarium-backend/internal/observability"
	"github.com/yungbote/librarium-backend/internal/server"
)

func wireRouter(cfg Config, h Handlers, m Middleware, metrics *observability.Metrics) *gin.Engine {
	return server.NewRouter(server.RouterConfig{
		AuthHandler:       h.Auth,
		AuthMiddleware:    m.Auth,
		UserHandler:       h.User,
		HabitHandler:      h.Habit,
		BattleHandler:     h.Battle,
		ChallengeHandler:  h.Challenge,
		MessageHandler:    h.Message,
		FriendshipHandler: h.Friendship,
		SSEHandler:        h.SSE,
		Metrics:           metrics,
		AllowedOrigins:    cfg.AllowedOrigins,
	})
}
