package api

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"eventchat/internal/auth"
	"eventchat/internal/config"
)

func SetupRouter(cfg *config.Config, rdb *redis.Client, engine TurnProcessor) *gin.Engine {
	r := gin.Default()
	subpath := cfg.Server.Subpath // e.g. "/eventchat" or any custom path, always starts with '/'

	r.GET(subpath+"/", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, path.Join(subpath, "health"))
	})

	// API routes
	group := r.Group(subpath)
	{
		group.GET("/health", healthHandler)
		group.GET("/config", configHandler(cfg))

		// Setup: only if no users
		group.POST("/setup", SetupHandler())

		// Auth
		group.POST("/auth/signup", SignupHandler())
		group.POST("/auth/login", LoginHandler(cfg, rdb))
		group.POST("/auth/logout", auth.AuthMiddleware(cfg, rdb, false), LogoutHandler(rdb))
		group.GET("/auth/me", auth.AuthMiddleware(cfg, rdb, false), MeHandler())
		group.PUT("/users/me/location", auth.AuthMiddleware(cfg, rdb, false), UpdateLocationHandler())
		group.GET("/users/online", OnlineUserCountHandler(rdb))

		// Chat
		group.POST("/chat", auth.AuthMiddleware(cfg, rdb, false), ChatHandler(engine))
		group.GET("/ws/chat", WSChatHandler(cfg, rdb, engine))

		// Conversations
		group.GET("/conversations", auth.AuthMiddleware(cfg, rdb, false), ListConversationsHandler())
		group.GET("/conversations/:session/messages", auth.AuthMiddleware(cfg, rdb, false), ListConversationMessagesHandler())
		group.DELETE("/conversations/:session", auth.AuthMiddleware(cfg, rdb, false), DeleteConversationHandler())

		// Events
		group.GET("/events", auth.AuthMiddleware(cfg, rdb, false), ListEventsHandler())
		group.GET("/events/:id", auth.AuthMiddleware(cfg, rdb, false), GetEventHandler())
		group.DELETE("/events/:id", auth.AuthMiddleware(cfg, rdb, false), DeleteEventHandler())
		group.POST("/events/:id/save", auth.AuthMiddleware(cfg, rdb, false), SaveEventHandler())
		group.POST("/events/:id/remind-later", auth.AuthMiddleware(cfg, rdb, false), RemindLaterHandler())
	}
	return r
}
