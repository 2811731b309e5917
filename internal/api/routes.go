package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ha-backupper/internal/api/handlers"
	"github.com/yourusername/ha-backupper/internal/api/middleware"
	"github.com/yourusername/ha-backupper/internal/backup"
	"github.com/yourusername/ha-backupper/internal/config"
	"github.com/yourusername/ha-backupper/internal/logging"
)

// SetupRouter configures and returns the HTTP router
func SetupRouter(cfg *config.Config, engine *backup.Engine, activity *logging.ActivityLogger) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	backupHandler := handlers.NewBackupHandler(engine, activity)

	api := router.Group("/api/v1")
	if cfg.Server.APIToken != "" {
		api.Use(middleware.TokenAuth(cfg.Server.APIToken))
	}
	backupHandler.RegisterRoutes(api)

	return router
}
