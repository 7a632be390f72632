package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/yungbote/librarium-backend/internal/handlers"
	"github.com/yungbote/librarium-backend/internal/middleware"
	"github.com/yungbote/librarium-backend/internal/observability"
)

type RouterConfig struct {
	AuthHandler       *handlers.AuthHandler
	AuthMiddleware    *middleware.AuthMiddleware
	UserHandler       *handlers.UserHandler
	HabitHandler      *handlers.HabitHandler
	BattleHandler     *handlers.BattleHandler
	ChallengeHandler  *handlers.ChallengeHandler
	MessageHandler    *handlers.MessageHandler
	FriendshipHandler *handlers.FriendshipHandler
	SSEHandler        *handlers.SSEHandler
	Metrics           *observability.Metrics
	AllowedOrigins    []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("librarium"))
	router.Use(middleware.Metrics(cfg.Metrics))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5174",
		}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	// ===============
	// || Public    ||
	// ===============
	router.GET("/healthcheck", handlers.HealthCheck)
	router.POST("/api/auth/register", cfg.AuthHandler.Register)
	router.POST("/api/auth/login", cfg.AuthHandler.Login)

	// ===============
	// || Protected ||
	// ===============
	protected := router.Group("/api")
	protected.Use(cfg.AuthMiddleware.RequireAuth())

	// Auth
	protected.POST("/auth/refresh", cfg.AuthHandler.Refresh)
	protected.POST("/auth/logout", cfg.AuthHandler.Logout)

	// SSE
	protected.GET("/sse/stream", cfg.SSEHandler.SSEStream)
	protected.POST("/sse/subscribe", cfg.SSEHandler.SSESubscribe)
	protected.POST("/sse/unsubscribe", cfg.SSEHandler.SSEUnsubscribe)

	// User
	protected.GET("/user", cfg.UserHandler.GetMe)
	protected.GET("/user/dashboard", cfg.UserHandler.Dashboard)
	protected.GET("/user/stats", cfg.UserHandler.Stats)
	protected.GET("/user/achievements", cfg.UserHandler.Achievements)
	protected.GET("/user/export", cfg.UserHandler.Export)
	protected.PUT("/user/preferences", cfg.UserHandler.UpdatePreferences)
	protected.PUT("/user/avatar/evolve", cfg.UserHandler.EvolveAvatar)

	// Habits
	protected.POST("/habits", cfg.HabitHandler.Create)
	protected.GET("/habits", cfg.HabitHandler.List)
	protected.GET("/habits/:id", cfg.HabitHandler.Get)
	protected.PUT("/habits/:id", cfg.HabitHandler.Update)
	protected.PATCH("/habits/:id/active", cfg.HabitHandler.SetActive)
	protected.DELETE("/habits/:id", cfg.HabitHandler.Delete)
	protected.POST("/habits/:id/complete", cfg.HabitHandler.Complete)
	protected.GET("/habits/:id/progress", cfg.HabitHandler.History)

	// Social
	social := protected.Group("/social")
	social.GET("/ranking", cfg.UserHandler.Ranking)
	social.GET("/users/search", cfg.UserHandler.Search)

	social.POST("/battles", cfg.BattleHandler.Invite)
	social.GET("/battles", cfg.BattleHandler.List)
	social.GET("/battles/:id", cfg.BattleHandler.Get)
	social.POST("/battles/:id/accept", cfg.BattleHandler.Accept)
	social.POST("/battles/:id/decline", cfg.BattleHandler.Decline)
	social.POST("/battles/:id/finish", cfg.BattleHandler.Finish)

	social.POST("/challenges", cfg.ChallengeHandler.Send)
	social.GET("/challenges", cfg.ChallengeHandler.List)
	social.POST("/challenges/:id/accept", cfg.ChallengeHandler.Accept)
	social.POST("/challenges/:id/decline", cfg.ChallengeHandler.Decline)

	social.POST("/messages", cfg.MessageHandler.Send)
	social.GET("/messages", cfg.MessageHandler.Inbox)
	social.GET("/messages/conversations", cfg.MessageHandler.Conversations)
	social.GET("/messages/unread", cfg.MessageHandler.UnreadCount)
	social.GET("/messages/with/:userId", cfg.MessageHandler.Conversation)
	social.POST("/messages/:id/read", cfg.MessageHandler.MarkRead)

	social.POST("/friends/requests", cfg.FriendshipHandler.Request)
	social.GET("/friends", cfg.FriendshipHandler.ListFriends)
	social.GET("/friends/pending", cfg.FriendshipHandler.ListPending)
	social.GET("/friends/sent", cfg.FriendshipHandler.ListSent)
	social.POST("/friends/requests/:id/accept", cfg.FriendshipHandler.Accept)
	social.POST("/friends/requests/:id/reject", cfg.FriendshipHandler.Reject)
	social.DELETE("/friends/:userId", cfg.FriendshipHandler.Remove)

	return router
}
