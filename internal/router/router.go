package router

import (
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	promhandler "github.com/jwalitptl/register-api/internal/handler/prometheus"
	"github.com/jwalitptl/register-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type RouterConfig struct {
	Mode     string
	BasePath string

	Security   middleware.SecurityConfig
	CORS       middleware.CORSConfig
	SizeLimit  middleware.SizeLimitConfig
	Timeout    middleware.TimeoutConfig
	Validation middleware.ValidationConfig
	// RateLimit is nil when rate limiting is disabled.
	RateLimit *middleware.RateLimiterConfig

	// MetricsPath is empty when metrics are not exposed.
	MetricsPath string
}

type Router struct {
	engine    *gin.Engine
	config    RouterConfig
	health    Handler
	sensitive []Handler
	metrics   *promhandler.Handler
}

// NewRouter builds the engine and its middleware chain. Routes of the
// sensitive handlers carry passwords or keys and are never cached.
func NewRouter(config RouterConfig, health Handler, metrics *promhandler.Handler, sensitive ...Handler) *Router {
	if config.Mode != "" {
		gin.SetMode(config.Mode)
	}
	if config.BasePath == "" {
		config.BasePath = "/api/v1"
	}

	engine := gin.New()

	r := &Router{
		engine:    engine,
		config:    config,
		health:    health,
		sensitive: sensitive,
		metrics:   metrics,
	}

	skip := []string{config.BasePath + "/health/live", config.BasePath + "/health/ready"}
	if config.MetricsPath != "" {
		skip = append(skip, config.MetricsPath)
	}

	// Order matters: outer middleware observe what the inner ones wrote.
	engine.Use(
		middleware.Recovery(),
		middleware.RequestID(),
		middleware.Logger(middleware.LoggerConfig{SkipPaths: skip}),
	)
	if metrics != nil {
		engine.Use(metrics.Middleware())
	}
	engine.Use(
		middleware.SecurityHeaders(config.Security),
		middleware.CORS(config.CORS),
		middleware.SizeLimit(config.SizeLimit),
		middleware.Timeout(config.Timeout),
		middleware.ErrorHandler(),
		middleware.Validation(config.Validation),
	)

	if config.RateLimit != nil {
		engine.Use(middleware.NewRateLimiter(*config.RateLimit).RateLimit())
	}

	return r
}

// WithMnemonic adds the "mnemonic" binding tag to a validation config.
func WithMnemonic(config middleware.ValidationConfig, fn validator.Func) middleware.ValidationConfig {
	if config.CustomValidators == nil {
		config.CustomValidators = make(map[string]validator.Func)
	}
	config.CustomValidators["mnemonic"] = fn
	return config
}

func (r *Router) Setup() {
	if r.metrics != nil && r.config.MetricsPath != "" {
		r.engine.GET(r.config.MetricsPath, r.metrics.Handler())
	}

	api := r.engine.Group(r.config.BasePath)
	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	sensitive := api.Group("")
	sensitive.Use(middleware.NoStore())
	for _, h := range r.sensitive {
		h.RegisterRoutes(sensitive)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
