package api

import (
	"fmt"
	"net"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	"github.com/linkloot/affiliate-api/internal/api/handler"
	"github.com/linkloot/affiliate-api/internal/api/middleware"
	"github.com/linkloot/affiliate-api/internal/api/view"
	"github.com/linkloot/affiliate-api/internal/core/domain"
	"github.com/linkloot/affiliate-api/internal/core/ports"
	_ "github.com/linkloot/affiliate-api/internal/docs"
	"github.com/linkloot/affiliate-api/internal/infrastructure/http/handlers"
)

// Services are the core services the routes are served from.
type Services struct {
	Accounts ports.AccountService
	Catalog  ports.CatalogService
	Ledger   ports.LedgerService
	// Sales may be nil, in which case the sale ingestion routes are not registered.
	Sales handler.SaleDispatcher
}

// RouterConfig carries the transport-level settings.
type RouterConfig struct {
	// AdminJWTSecret enables the admin routes when non-empty.
	AdminJWTSecret string
	DegradeTxList  bool
	CORSOrigins    []string

	// AuthLimiter throttles /signup and /login per client IP. Nil disables it.
	AuthLimiter echomiddleware.RateLimiterStore

	// TrustedProxies lists the CIDRs allowed to set X-Forwarded-For. When
	// empty the client IP is the connection's remote address.
	TrustedProxies []string

	HealthChecks map[string]handlers.Check

	// Registerer and Gatherer back the HTTP metrics and GET /metrics. When
	// Registerer is nil no HTTP metrics are collected.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer

	Swagger bool
	Logger  zerolog.Logger
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(svc Services, cfg RouterConfig) (*echo.Echo, error) {
	renderer, err := view.NewRenderer()
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	ipExtractor, err := newIPExtractor(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("router: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = ipExtractor
	e.Validator = handler.NewValidator()
	e.Renderer = renderer
	e.HTTPErrorHandler = NewHTTPErrorHandler(cfg.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestIDWithConfig(echomiddleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(requestLogger(cfg.Logger))
	if len(cfg.CORSOrigins) > 0 {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.CORSOrigins}))
	}
	if cfg.Registerer != nil {
		e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
			Subsystem:  "http",
			Registerer: cfg.Registerer,
		}))
		gatherer := cfg.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}
		e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	}

	// --- Handlers ---
	accountHandler := handler.NewAccountHandler(svc.Accounts)
	productHandler := handler.NewProductHandler(svc.Catalog)
	ledgerHandler := handler.NewLedgerHandler(svc.Ledger, cfg.Logger,
		handler.WithDegradedTransactionList(cfg.DegradeTxList))

	// --- Accounts ---
	var authMW []echo.MiddlewareFunc
	if cfg.AuthLimiter != nil {
		authMW = append(authMW, middleware.RateLimit(cfg.AuthLimiter))
	}
	e.POST("/signup", accountHandler.Signup, authMW...)
	e.POST("/login", accountHandler.Login, authMW...)
	e.GET("/get_user/:id", accountHandler.GetUser)

	// --- Products ---
	e.POST("/add_product", productHandler.AddProduct)
	e.DELETE("/delete_product/:id", productHandler.DeleteProduct)
	e.GET("/get_products/:userId", productHandler.GetProducts)
	e.GET("/showcase/:username", productHandler.Showcase)

	// --- Ledger ---
	e.POST("/redeem", ledgerHandler.Redeem)
	e.GET("/get_transactions/:userId", ledgerHandler.GetTransactions)

	// --- Operator routes (admin JWT) ---
	if cfg.AdminJWTSecret != "" {
		admin := []echo.MiddlewareFunc{middleware.Auth(cfg.AdminJWTSecret), middleware.RequireRole(domain.RoleAdmin)}

		e.POST("/add_points", ledgerHandler.AddPoints, admin...)
		e.POST("/admin/transactions/:id/complete", ledgerHandler.CompleteRedemption, admin...)

		if svc.Sales != nil {
			saleHandler := handler.NewSaleHandler(svc.Sales)
			events := e.Group("/events", admin...)
			events.POST("/sales", saleHandler.Receive)
			events.POST("/sales/batch", saleHandler.ReceiveBatch)
		}
	}

	// --- Health probes (no auth required) ---
	e.GET("/health", handlers.NewHealthHandler().Liveness)
	e.GET("/health/ready", handlers.NewHealthDependenciesHandler(cfg.HealthChecks).Readiness)

	if cfg.Swagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e, nil
}

// newIPExtractor trusts X-Forwarded-For only from the listed proxy ranges.
func newIPExtractor(trusted []string) (echo.IPExtractor, error) {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect(), nil
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, cidr := range trusted {
		_, ipNet, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", cidr, err)
		}
		opts = append(opts, echo.TrustIPRange(ipNet))
	}
	return echo.ExtractIPFromXFFHeader(opts...), nil
}

// requestLogger writes one zerolog line per request.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := log.Info()
			if v.Status >= 500 {
				ev = log.Error().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
