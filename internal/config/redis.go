package config

// Redis backs distributed rate limiting and the statistics response cache.
// When the server cannot be reached at startup NewRedisClient returns nil and
// both middlewares degrade to no-ops.

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig is read from REDIS_ADDR (or REDIS_HOST + REDIS_PORT),
// REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
type RedisConfig struct {
	Addr     string `koanf:"redis_addr"`
	Host     string `koanf:"redis_host"`
	Port     string `koanf:"redis_port"`
	Password string `koanf:"redis_password"`
	DB       int    `koanf:"redis_db"`
	TLS      bool   `koanf:"redis_tls"`
}

func defaultRedis() RedisConfig { return RedisConfig{Addr: "localhost:6379"} }

// Address resolves host/port, which take precedence over REDIS_ADDR.
func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	if c.Addr == "" {
		return "localhost:6379"
	}
	return c.Addr
}

// NewRedisClient connects and pings with a short timeout. The returned client
// is nil if the server is unreachable.
func NewRedisClient(cfg RedisConfig, log zerolog.Logger) *redis.Client {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.Address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("addr", cfg.Address()).Msg("redis unavailable, rate limit and cache disabled")
		_ = client.Close()
		return nil
	}
	return client
}
