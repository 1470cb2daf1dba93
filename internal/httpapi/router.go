package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/suPer8Hu/n8n-chat/internal/common"
	"github.com/suPer8Hu/n8n-chat/internal/httpapi/handlers"
	"github.com/suPer8Hu/n8n-chat/internal/httpapi/middleware"
	"github.com/suPer8Hu/n8n-chat/internal/log"
)

func NewRouter(h *handlers.Handler) *gin.Engine {
	cfg := h.Cfg

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(log.GinMiddleware(log.L()))
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	if h.Metrics != nil {
		r.Use(h.Metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/ping", h.Ping)
	r.GET("/api/health", h.Health)

	// auth
	r.POST("/auth/signup", h.Signup)
	r.POST("/auth/login", h.Login)

	// webhook relay
	r.POST("/api/ask", h.Ask)
	r.POST("/api/chat", middleware.OptionalAuth(cfg.JWTSecret), h.Chat)

	// n8n -> app
	r.POST("/api/channel/messages", middleware.ChannelSecretRequired(cfg.ChannelSecret), h.ChannelMessage)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)

	// session store (JWT required)
	authGroup.GET("/api/conversations", h.ListConversations)
	authGroup.POST("/api/conversations", h.CreateConversation)
	authGroup.PATCH("/api/conversations/:id", h.UpdateConversation)
	authGroup.DELETE("/api/conversations/:id", h.DeleteConversation)
	authGroup.GET("/api/conversations/:id/messages", h.ListMessages)
	authGroup.POST("/api/conversations/:id/messages", h.InsertMessage)
	return r
}
