package api

import (
	"github.com/gin-gonic/gin"
	"github.com/saifjishan/chatmeme/internal/api/handler"
	"github.com/saifjishan/chatmeme/internal/api/middleware"
	"github.com/saifjishan/chatmeme/internal/config"
	"github.com/saifjishan/chatmeme/internal/logger"
	"github.com/saifjishan/chatmeme/internal/repository"
	"github.com/saifjishan/chatmeme/internal/service"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	orchestrator *service.OrchestratorService,
	historyRepo *repository.HistoryRepository,
	log *logger.Logger,
	cfg *config.ServerConfig,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	chatHandler := handler.NewChatHandler(orchestrator)
	historyHandler := handler.NewHistoryHandler(historyRepo)

	// Health check
	r.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Chat turns
		v1.POST("/chat", chatHandler.Chat)

		// Sidebar history
		v1.GET("/history", historyHandler.List)
		v1.DELETE("/history", historyHandler.Clear)
	}

	return r
}
