// Command server runs the affiliate API.
//
//	@title						LinkLoot Affiliate API
//	@version					1.0
//	@description				Accounts, product links, reward points and payout requests.
//	@BasePath					/
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
package main

//go:generate swag init -g cmd/server/main.go -d ../../ -o ../../internal/docs --outputTypes go --parseInternal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/linkloot/affiliate-api/internal/api"
	"github.com/linkloot/affiliate-api/internal/api/middleware"
	"github.com/linkloot/affiliate-api/internal/core/ports"
	"github.com/linkloot/affiliate-api/internal/core/service"
	"github.com/linkloot/affiliate-api/internal/infrastructure/affiliate"
	"github.com/linkloot/affiliate-api/internal/infrastructure/config"
	"github.com/linkloot/affiliate-api/internal/infrastructure/db/memory"
	mongostore "github.com/linkloot/affiliate-api/internal/infrastructure/db/mongo"
	redisstore "github.com/linkloot/affiliate-api/internal/infrastructure/db/redis"
	"github.com/linkloot/affiliate-api/internal/infrastructure/http/handlers"
	"github.com/linkloot/affiliate-api/internal/infrastructure/notify"
	"github.com/linkloot/affiliate-api/internal/infrastructure/queue"
	"github.com/linkloot/affiliate-api/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "affiliate-api: %v\n", err)
		os.Exit(1)
	}
}

type repositories struct {
	accounts ports.AccountRepository
	products ports.ProductRepository
	ledger   ports.LedgerRepository
}

func run() error {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "affiliate-api",
		Env:     cfg.Env,
	})

	checks := map[string]handlers.Check{}
	var cleanups []func(context.Context)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i](shutdownCtx)
		}
	}()

	// --- Stores ---
	var repos repositories
	switch cfg.Store {
	case "memory":
		store := memory.NewStore()
		repos = repositories{
			accounts: memory.NewAccountRepository(store),
			products: memory.NewProductRepository(store),
			ledger:   memory.NewLedgerRepository(store),
		}
		checks["store"] = store.Ping
		log.Warn().Msg("using in-memory store, data is lost on restart")
	case "mongo":
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				log.Error().Err(err).Msg("mongo disconnect")
			}
		})
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			return fmt.Errorf("mongo indexes: %w", err)
		}
		repos = repositories{
			accounts: mongostore.NewAccountRepository(db),
			products: mongostore.NewProductRepository(db),
			ledger:   mongostore.NewLedgerRepository(db),
		}
		checks["mongodb"] = handlers.MongoCheck(db)
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
	default:
		return fmt.Errorf("unknown STORE %q", cfg.Store)
	}

	var dedup ports.CreditDedup
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func(context.Context) { _ = rdb.Close() })
		dedup = redisstore.NewCreditDedup(rdb, redisstore.DefaultCreditTTL)
		checks["redis"] = handlers.RedisCheck(rdb)
	} else {
		log.Warn().Msg("REDIS_ADDR not set, sale reference dedup disabled")
	}

	// --- Collaborators ---
	mailer, err := notify.NewMailer(notify.Config{
		Host:       cfg.SMTP.Host,
		Port:       cfg.SMTP.Port,
		Username:   cfg.SMTP.Username,
		Password:   cfg.SMTP.Password,
		AdminEmail: cfg.SMTP.AdminEmail,
		Timeout:    cfg.SMTP.Timeout,
	})
	if err != nil {
		return err
	}
	if !mailer.Configured() {
		log.Warn().Msg("email credentials not configured, payout notifications will be skipped")
	}

	rewriter := affiliate.NewClient(cfg.Affiliate.APIURL, cfg.Affiliate.APIKey, cfg.Affiliate.Timeout)
	if !rewriter.Configured() {
		log.Warn().Msg("affiliate api key not configured, products keep their original url")
	}

	// --- Core services ---
	accounts := service.NewAccountService(repos.accounts, logger.Component("accounts"))
	catalog := service.NewCatalogService(repos.products, repos.accounts, rewriter, logger.Component("catalog"))
	ledger := service.NewLedgerService(repos.accounts, repos.ledger, mailer, dedup,
		cfg.Ledger.MinRedeemPoints, logger.Component("ledger"))
	sales := service.NewSaleService(ledger, logger.Component("sales"))

	// Cleanups run after the HTTP server has drained, so every accepted sale
	// event is credited before the stores close.
	dispatcher := queue.NewDispatcher(cfg.Workers, sales, logger.Component("dispatcher"))
	dispatcher.Start(context.Background())
	cleanups = append(cleanups, func(context.Context) {
		dispatcher.Stop()
		dispatcher.Wait()
		log.Info().Msg("sale dispatcher drained")
	})

	limiter := middleware.NewRateLimitStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	if cfg.AdminJWTSecret == "" {
		log.Warn().Msg("ADMIN_JWT_SECRET not set, admin and sale ingestion routes are disabled")
	}

	// --- HTTP ---
	e, err := api.NewRouter(api.Services{
		Accounts: accounts,
		Catalog:  catalog,
		Ledger:   ledger,
		Sales:    dispatcher,
	}, api.RouterConfig{
		AdminJWTSecret: cfg.AdminJWTSecret,
		DegradeTxList:  cfg.Ledger.DegradeTxList,
		CORSOrigins:    cfg.CORSOrigins,
		AuthLimiter:    limiter,
		TrustedProxies: cfg.TrustedProxies,
		HealthChecks:   checks,
		Registerer:     prometheus.DefaultRegisterer,
		Gatherer:       prometheus.DefaultGatherer,
		Swagger:        !cfg.IsProduction(),
		Logger:         logger.Component("http"),
	})
	if err != nil {
		return err
	}

	return serve(ctx, e, ":"+cfg.Port, log)
}

type server interface {
	Start(address string) error
	Shutdown(ctx context.Context) error
}

// serve runs srv until ctx is cancelled, then drains in-flight requests.
func serve(ctx context.Context, srv server, addr string, log zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
