// Command notifier consumes marketplace events from RabbitMQ and appends
// them to the notification log.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/iliyamo/service-marketplace/internal/config"
	"github.com/iliyamo/service-marketplace/internal/logger"
	"github.com/iliyamo/service-marketplace/internal/queue"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	l := logger.New(cfg.Env, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.RabbitMQURL, LogPath: cfg.LogPath, Log: l}
	l.Info().Str("log_path", cfg.LogPath).Msg("notifier started")
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		l.Fatal().Err(err).Msg("notifier stopped")
	}
	l.Info().Msg("notifier stopped")
}
