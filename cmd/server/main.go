// Command server runs the marketplace HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/database"
	"github.com/iliyamo/service-marketplace/internal/handler"
	"github.com/iliyamo/service-marketplace/internal/logger"
	"github.com/iliyamo/service-marketplace/internal/middleware"
	"github.com/iliyamo/service-marketplace/internal/queue"
	"github.com/iliyamo/service-marketplace/internal/repository"
	"github.com/iliyamo/service-marketplace/internal/router"
	"github.com/iliyamo/service-marketplace/internal/service"
	"github.com/iliyamo/service-marketplace/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	l := logger.New(cfg.Env, cfg.LogLevel)
	if err := run(cfg, l); err != nil {
		l.Fatal().Err(err).Msg("server stopped")
	}
}

func run(cfg config.Config, l zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db, l); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(cfg.Redis, l)
	if rdb != nil {
		defer rdb.Close()
	}

	files, err := storage.New(ctx, cfg.Storage, l)
	if err != nil {
		return err
	}
	events := queue.NewPublisher(cfg.RabbitMQURL, l)

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	offers := repository.NewOfferRepo(db)
	orders := repository.NewOrderRepo(db)
	reviews := repository.NewReviewRepo(db)

	accounts := service.NewAccountService(users, tokens, events,
		service.TokenConfig{
			Secret:     cfg.JWTSecret,
			AccessTTL:  time.Duration(cfg.AccessTTLMin) * time.Minute,
			RefreshTTL: time.Duration(cfg.RefreshTTLDays) * 24 * time.Hour,
			BcryptCost: cfg.BcryptCost,
		},
		service.ActivationConfig{FrontendBaseURL: cfg.FrontendBaseURL, Required: cfg.RequireActivation},
		l)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.ErrorHandler

	metrics := middleware.NewMetrics()
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(
		echomw.Recover(),
		middleware.RequestID(),
		middleware.ContextLogger(l),
		middleware.RequestLogger(),
		metrics.Middleware(),
		echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.CORSOrigins}),
	)
	if local, ok := files.(*storage.Local); ok && strings.HasPrefix(cfg.Storage.PublicBaseURL, "/") {
		e.Static(cfg.Storage.PublicBaseURL, local.Root())
	}

	router.RegisterRoutes(e, handler.Health(db), metrics)
	v1 := e.Group(handler.APIPrefix,
		middleware.OptionalJWT(cfg.JWTSecret),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, l),
	)
	router.RegisterAuth(v1, handler.NewAuthHandler(accounts))
	router.RegisterMarketplace(v1, router.Marketplace{
		Offers:  handler.NewOfferHandler(service.NewOfferService(offers, profiles, files, l)),
		Orders:  handler.NewOrderHandler(service.NewOrderService(orders, offers, profiles, events, l)),
		Reviews: handler.NewReviewHandler(service.NewReviewService(reviews, orders, profiles, events, l)),
		Stats:   handler.NewStatsHandler(service.NewStatsService(reviews, offers, orders, profiles)),
	}, middleware.NewRedisCache(cfg.Cache, rdb, l))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		l.Info().Str("addr", srv.Addr).Str("storage", cfg.Storage.Driver).Msg("listening")
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	l.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
