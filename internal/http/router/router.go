package router

import (
	"context"
	"net/http"

	"barberosa_backend/internal/config"
	apphttp "barberosa_backend/internal/http"
	"barberosa_backend/platform/httpkit"
	"barberosa_backend/platform/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// HealthChecker exposes minimal functionality for readiness checks.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// New assembles the gin engine: recovery, request logging, security headers,
// CORS, health endpoint, and every domain module's routes under /api/v1.
func New(cfg *config.Config, log *logger.Logger, health HealthChecker, modules ...apphttp.Module) *gin.Engine {
	if !gin.IsDebugging() || cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(recovery(log))
	engine.Use(httpkit.RequestLogger(log))
	engine.Use(httpkit.SecurityHeaders())
	engine.Use(corsMiddleware(cfg))

	engine.GET("/api/health", func(c *gin.Context) {
		if health != nil {
			if err := health.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": "down"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	routerCtx := &apphttp.RouterContext{
		Engine:            engine,
		V1:                engine.Group("/api/v1"),
		SubmitRateLimiter: httpkit.NewIPRateLimiter(5, 10, log),
	}

	for _, m := range modules {
		m.RegisterRoutes(routerCtx)
		log.Info("module routes registered", "module", m.Name())
	}

	return engine
}

// recovery converts panics into the funnel's generic 500 response. An
// uncaught panic anywhere in a handler must still produce a parseable
// {success:false} body for the front-end.
func recovery(log *logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("panic_recovered", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, httpkit.ErrorResponse{
			Success: false,
			Error:   "Произошла ошибка при обработке запроса",
		})
	})
}

func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if cfg.CORSAllowAll {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept"}
	return cors.New(corsConfig)
}
