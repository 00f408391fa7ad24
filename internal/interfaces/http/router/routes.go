package router

import (
	"github.com/gin-gonic/gin"
	"github.com/storefront/fulfillment/internal/infrastructure/config"
	"github.com/storefront/fulfillment/internal/infrastructure/logger"
	"github.com/storefront/fulfillment/internal/interfaces/http/handler"
	"github.com/storefront/fulfillment/internal/interfaces/http/middleware"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Handlers are the HTTP handlers served by the engine
type Handlers struct {
	System   *handler.SystemHandler
	Auth     *handler.AuthHandler
	Shipping *handler.ShippingHandler
	Checkout *handler.CheckoutHandler
	Order    *handler.OrderHandler
	Webhook  *handler.WebhookHandler
}

// Options configure the middleware chain
type Options struct {
	Logger      *zap.Logger
	HTTP        config.HTTPConfig
	ServiceName string
	Tracing     bool
	Meter       metric.Meter // nil disables HTTP metrics
	JWT         middleware.JWTMiddlewareConfig
	Security    middleware.SecurityConfig
}

// NewEngine builds the gin engine. Every request passes request id,
// recovery, access log, tracing, metrics, security headers, CORS and the body
// limit; /api is also rate limited per client, and the order and revoke
// routes need an admin token.
func NewEngine(opts Options, h Handlers) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.HTTP.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.Tracing(middleware.TracingConfig{ServiceName: opts.ServiceName, Enabled: opts.Tracing}),
		middleware.SpanAttributes(),
		middleware.HTTPMetrics(opts.Meter, log),
		middleware.SecureWithConfig(opts.Security),
		middleware.CORSWithConfig(corsConfig(opts.HTTP)),
	)
	if opts.HTTP.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.HTTP.MaxBodySize))
	}

	var routerOpts []RouterOption
	if opts.HTTP.RateLimitEnabled && opts.HTTP.RateLimitRequests > 0 {
		limiter := middleware.NewRateLimiter(opts.HTTP.RateLimitRequests, opts.HTTP.RateLimitWindow)
		routerOpts = append(routerOpts, WithAPIMiddleware(middleware.RateLimit(limiter)))
	}

	r := NewRouter(engine, routerOpts...)
	admin := []gin.HandlerFunc{middleware.JWTAuth(opts.JWT), middleware.RequireAdmin()}

	if h.System != nil {
		r.RegisterRoot(NewDomainGroup("system", "").
			GET("/health", h.System.Health).
			GET("/ready", h.System.Ready))
	}
	if h.Webhook != nil {
		r.RegisterRoot(NewDomainGroup("webhooks", "/webhooks").
			POST("/stripe", h.Webhook.Stripe).
			POST("/shipstation", h.Webhook.ShipStation).
			POST("/tracking", h.Webhook.Tracking))
	}
	if h.Auth != nil {
		auth := NewDomainGroup("auth", "/auth").
			POST("/token", h.Auth.IssueToken)
		auth.Group("auth-admin", "").Use(admin...).
			POST("/revoke", h.Auth.RevokeToken)
		r.Register(auth)
	}
	if h.Shipping != nil {
		r.Register(NewDomainGroup("shipping", "/shipping").
			POST("/quote", h.Shipping.Quote).
			POST("/rates", h.Shipping.Rates))
	}
	if h.Checkout != nil {
		r.Register(NewDomainGroup("checkout", "/checkout").
			POST("/sessions", h.Checkout.CreateSession))
	}
	if h.Order != nil {
		r.Register(NewDomainGroup("orders", "/orders").Use(admin...).
			GET("", h.Order.List).
			GET("/:id", h.Order.Get).
			PATCH("/:id/status", h.Order.UpdateStatus))
	}
	r.Setup()

	return engine, nil
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}
