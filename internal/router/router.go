package router

import (
	"net/http"
	"time"

	ratelimit "github.com/JGLTechnologies/gin-rate-limit"
	"github.com/gin-gonic/gin"
	"github.com/unrolled/secure"
	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/config"
	"github.com/ReadyPlayerEmma/looplace/internal/handlers"
	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/readiness"
	"github.com/ReadyPlayerEmma/looplace/internal/session"
)

func keyFunc(c *gin.Context) string {
	return c.ClientIP()
}

func errorHandler(c *gin.Context, info ratelimit.Info) {
	c.String(http.StatusTooManyRequests, "Too many requests. Try again later.")
}

func Setup(log *zap.Logger, catalog *models.Catalog, manager *session.Manager) *gin.Engine {
	// Set up a new Gin router, add recovery middleware and request logging.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLogger(log))

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
	})
	router.Use(func(c *gin.Context) {
		err := secureMiddleware.Process(c.Writer, c.Request)
		if err != nil {
			c.Abort()
			return
		}
	})

	// Handlers and routes
	resultsHandler := handlers.NewResultsHandler(log, config.Conf.PVT.MinReactionTrials)
	chartsHandler := handlers.NewChartsHandler(log, catalog)
	readinessHandler := handlers.NewReadinessHandler(log, readiness.Policy{
		PVTIntervalHours:   config.Conf.Readiness.PVTIntervalHours,
		NBackIntervalHours: config.Conf.Readiness.NBackIntervalHours,
	})
	sessionsHandler := handlers.NewSessionsHandler(log, manager)

	// Submissions are rate limited per client; polling and reads are not.
	rateLimitStore := ratelimit.InMemoryStore(&ratelimit.InMemoryOptions{
		Rate:  time.Minute,
		Limit: 30,
	})
	limiter := ratelimit.RateLimiter(rateLimitStore, &ratelimit.Options{
		ErrorHandler: errorHandler,
		KeyFunc:      keyFunc,
	})

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.GET("/tasks", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"tasks": catalog.Tasks})
		})

		api.POST("/results/pvt", limiter, resultsHandler.SubmitPVT)
		api.POST("/results/nback", limiter, resultsHandler.SubmitNBack)
		api.GET("/results", resultsHandler.ListResults)
		api.GET("/results/timeline", chartsHandler.Timeline)

		api.GET("/readiness/:task", readinessHandler.Check)

		sessionRoutes := api.Group("/sessions")
		{
			sessionRoutes.POST("", limiter, sessionsHandler.Create)
			sessionRoutes.GET("/:id", sessionsHandler.Show)
			sessionRoutes.POST("/:id/start", sessionsHandler.StartRun)
			sessionRoutes.POST("/:id/response", sessionsHandler.Respond)
			sessionRoutes.POST("/:id/abort", sessionsHandler.Abort)
		}
	}

	return router
}
