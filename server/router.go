package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpHandler "terastream/interfaces/http"
	"terastream/interfaces/middleware"
)

func InitiateRouter(
	resolveHandler httpHandler.IResolveHandler,
	streamHandler httpHandler.IStreamHandler,
	adminHandler httpHandler.IAdminHandler,
	adminSecret string,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Range", "If-Range", "If-Modified-Since", "If-None-Match"},
		ExposeHeaders:    []string{"Content-Length", "Content-Range", "Accept-Ranges", "ETag", "Last-Modified"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("api")
	{
		api.GET("/resolve", resolveHandler.Resolve)
		api.GET("/lookup", resolveHandler.Lookup)
		api.GET("/file", resolveHandler.File)
		api.GET("/stream", streamHandler.Manifest)
		api.GET("/stream/segment", streamHandler.Segment)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.AdminAuth(adminSecret))
	{
		admin.DELETE("/cache", adminHandler.PurgeCache)
		admin.GET("/history", adminHandler.History)
	}

	return router
}
