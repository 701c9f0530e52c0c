package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/register-api/internal/config"
	"github.com/jwalitptl/register-api/internal/handler/health"
	keyHandler "github.com/jwalitptl/register-api/internal/handler/key"
	passwordHandler "github.com/jwalitptl/register-api/internal/handler/password"
	promhandler "github.com/jwalitptl/register-api/internal/handler/prometheus"
	"github.com/jwalitptl/register-api/internal/keygen"
	"github.com/jwalitptl/register-api/internal/middleware"
	"github.com/jwalitptl/register-api/internal/router"
	keyService "github.com/jwalitptl/register-api/internal/service/key"
	passwordService "github.com/jwalitptl/register-api/internal/service/password"
	"github.com/jwalitptl/register-api/pkg/logger"
	"github.com/jwalitptl/register-api/pkg/metrics"
	"github.com/jwalitptl/register-api/pkg/passwordcheck"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	logger.NewLogger(&logger.Config{
		Level:      logger.ParseLevel(cfg.Log.Level),
		TimeFormat: time.RFC3339,
		Output:     os.Stdout,
		JSON:       cfg.Log.Format == "json",
	}).SetGlobal()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Metrics.Namespace, registry)

	// Password engine
	requirements, err := cfg.Password.Requirements()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid password requirements")
	}
	checker, err := passwordcheck.New(requirements)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create password checker")
	}

	// Key generation
	gen, err := keygen.NewGenerator(cfg.Keygen.ToGeneratorConfig(), keygen.WithMetrics(m))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create key generator")
	}

	// Initialize services
	passwordSvc := passwordService.NewService(checker, m)
	keySvc := keyService.NewService(gen, cfg.Keygen.QRSize, m)

	// Initialize handlers
	healthH := health.NewHandler(health.Check{Name: "keygen", Probe: keySvc.Health})
	passwordH := passwordHandler.NewHandler(passwordSvc)
	keyH := keyHandler.NewHandler(keySvc)

	var metricsH *promhandler.Handler
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsH = promhandler.New(registry, m)
		metricsPath = cfg.Metrics.Path
	}

	routerCfg := router.RouterConfig{
		Mode:        cfg.Server.Mode,
		BasePath:    "/api/v1",
		Security:    middleware.DefaultSecurityConfig(),
		CORS:        middleware.DefaultCORSConfig(),
		SizeLimit:   middleware.DefaultSizeLimitConfig(),
		Timeout:     middleware.TimeoutConfig{Duration: cfg.Server.RequestTimeout},
		Validation:  router.WithMnemonic(middleware.DefaultValidationConfig(), keyHandler.ValidateMnemonic),
		MetricsPath: metricsPath,
	}
	routerCfg.CORS.AllowOrigins = cfg.CORS.AllowedOrigins
	routerCfg.SizeLimit.MaxBodySize = cfg.Server.MaxBodyBytes
	if cfg.RateLimit.Enabled {
		routerCfg.RateLimit = &middleware.RateLimiterConfig{
			Rate:  rate.Limit(cfg.RateLimit.RequestsPerSecond),
			Burst: cfg.RateLimit.Burst,
		}
	}

	// Setup router
	r := router.NewRouter(routerCfg, healthH, metricsH, passwordH, keyH)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().
			Str("addr", srv.Addr).
			Str("mode", gin.Mode()).
			Str("keygen_source", cfg.Keygen.Source).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
