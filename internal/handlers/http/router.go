package http

import (
	"cohortcast/internal/infrastructure/middleware"
	"cohortcast/internal/infrastructure/monitoring"
	"cohortcast/pkg/config"
	"cohortcast/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterDeps carries everything the HTTP surface is built from.
type RouterDeps struct {
	Config     *config.Config
	Logger     *logger.ContextLogger
	Auth       *AuthHandler
	Recordings *RecordingHandler
	Health     *HealthHandler
	Metrics    *monitoring.PrometheusCollector
	Gatherer   prometheus.Gatherer
}

// NewRouter assembles the gin engine with the middleware chain and all routes.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()
	if err := router.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		// Validate rejects malformed entries; trust nothing if one slips through.
		_ = router.SetTrustedProxies(nil)
	}

	var observer middleware.HTTPObserver
	if deps.Metrics != nil {
		observer = deps.Metrics
	}

	router.Use(
		middleware.RecoveryMiddleware(deps.Logger),
		middleware.RequestIDMiddleware(),
		middleware.TracingMiddleware(),
		middleware.LoggingMiddleware(deps.Logger, observer),
		middleware.CORSMiddleware(deps.Config.Server.AllowedOrigins),
		middleware.ErrorHandlerMiddleware(deps.Logger),
		middleware.NewHTTPRateLimitMiddleware(deps.Config),
	)

	deps.Health.SetupRoutes(router)
	deps.Auth.SetupRoutes(router)
	if deps.Recordings != nil {
		deps.Recordings.SetupRoutes(router)
	}

	if deps.Config.Monitoring.PrometheusEnabled && deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	return router
}
