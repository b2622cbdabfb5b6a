package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/BLKOUTUK/comms-blkout-sub001/infrastructure/realtime"
	httpHandler "github.com/BLKOUTUK/comms-blkout-sub001/interfaces/http"
	"github.com/BLKOUTUK/comms-blkout-sub001/interfaces/middleware"
)

func InitiateRouter(
	socialAuthHandler httpHandler.ISocialAuthHandler,
	publishHandler httpHandler.IPublishHandler,
	hub *realtime.Hub,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"https://blkoutuk.com", "https://admin.blkoutuk.com", "http://localhost:4200", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// OAuth routes stay public: the browser redirect carries no session token.
	router.GET("/auth/:platform", socialAuthHandler.GetAuthURL)
	router.GET("/auth/:platform/callback", socialAuthHandler.Callback)

	api := router.Group("api")
	api.Use(middleware.Auth())

	social := api.Group("/social")
	{
		social.GET("/statuses", publishHandler.Statuses)
		social.GET("/:platform/status", socialAuthHandler.Status)
		social.DELETE("/:platform/connection", socialAuthHandler.Disconnect)
		social.POST("/publish", publishHandler.Publish)
		social.POST("/validate-media", publishHandler.ValidateMedia)
		social.GET("/records", publishHandler.Records)
	}

	if hub != nil {
		api.GET("/social/stream", hub.Serve)
	}

	return router
}
