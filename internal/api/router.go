package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/hotelrank/internal/api/handler"
	"github.com/timmy/hotelrank/internal/api/middleware"
	"github.com/timmy/hotelrank/internal/logger"
	"github.com/timmy/hotelrank/internal/service"
)

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	Mode string
	CORS middleware.CORSConfig
	Auth middleware.AuthConfig
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	scrapeService *service.ScrapeService,
	consolidationService *service.ConsolidationService,
	log *logger.Logger,
	cfg *RouterConfig,
) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(scrapeService.Platforms(), cfg.Auth.Enabled)
	scraperHandler := handler.NewScraperHandler(scrapeService, consolidationService)

	r.GET("/", healthHandler.Info)
	r.GET("/health", healthHandler.Health)

	scraper := r.Group("/scraper", middleware.APIKeyAuth(cfg.Auth))
	{
		scraper.POST("/start", scraperHandler.Start)
		scraper.GET("/status/:job_id", scraperHandler.Status)
		scraper.GET("/result/:job_id", scraperHandler.Result)
		scraper.POST("/consolidate", scraperHandler.Consolidate)
		scraper.GET("/jobs", scraperHandler.ListJobs)
		scraper.DELETE("/jobs/:job_id", scraperHandler.DeleteJob)
	}

	return r
}
