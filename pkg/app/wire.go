package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/weathergate/weathergate/internal/admission"
	"github.com/weathergate/weathergate/internal/cache"
	"github.com/weathergate/weathergate/internal/config"
	"github.com/weathergate/weathergate/internal/gateway"
	"github.com/weathergate/weathergate/internal/pipeline"
	"github.com/weathergate/weathergate/internal/region"
	"github.com/weathergate/weathergate/internal/session"
	"github.com/weathergate/weathergate/internal/sweep"
	"github.com/weathergate/weathergate/modules/answer/openai"
)

// services holds everything Run starts and stops.
type services struct {
	gateway *gateway.Server
	sweeper *sweep.Sweeper
	redis   *redis.Client
}

// pingTimeout bounds the startup Redis reachability probe.
const pingTimeout = 3 * time.Second

// buildServices wires the full service graph from configuration. Storage
// backends are chosen once at startup: Redis when configured and reachable,
// in-process fallbacks otherwise.
func buildServices(cfg *config.Config, version string, logger *slog.Logger) (*services, error) {
	aliases := region.New(cfg.Regions)
	logger.Info("region aliases loaded", "regions", aliases.Len())

	limiter, err := admission.NewLimiter(cfg.Concurrency.MaxConcurrent, cfg.Concurrency.AcquireTimeout.Std())
	if err != nil {
		return nil, err
	}

	redisClient := connectRedis(cfg.Redis, logger)

	var replyCache cache.Cache
	var sessions session.Store
	sweeper := sweep.New(cfg.Sweep.Schedule, logger)

	if redisClient != nil {
		replyCache = cache.NewRedisCache(redisClient, aliases, cfg.Cache.KeyPrefix, cfg.Cache.TTL.Std(), logger)
		sessions = session.NewRedisStore(redisClient, cfg.Session.MaxTurns, cfg.Session.IdleTTL.Std(), logger)
	} else {
		// Redis handles expiry natively; only the in-process stores need
		// the background sweep.
		memCache := cache.NewMemoryCache(aliases, cfg.Cache.TTL.Std())
		memSessions := session.NewMemoryStore(cfg.Session.MaxTurns, cfg.Session.IdleTTL.Std())
		if err := sweeper.Register("cache", memCache); err != nil {
			return nil, err
		}
		if err := sweeper.Register("sessions", memSessions); err != nil {
			return nil, err
		}
		replyCache = memCache
		sessions = memSessions
	}

	answerer := openai.New(openai.Config{
		APIKey:       cfg.Answer.APIKey,
		BaseURL:      cfg.Answer.BaseURL,
		Model:        cfg.Answer.Model,
		SystemPrompt: cfg.Answer.SystemPrompt,
		Timeout:      cfg.Answer.Timeout.Std(),
	}, logger)

	pipe := pipeline.New(limiter, replyCache, sessions, answerer, cfg.Cache.TTL.Std(), logger)

	srv := gateway.New(gateway.Config{
		Bind:            cfg.Server.Bind,
		ReadTimeout:     cfg.Server.ReadTimeout.Std(),
		WriteTimeout:    cfg.Server.WriteTimeout.Std(),
		ShutdownTimeout: cfg.Server.ShutdownTimeout.Std(),
		APIKey:          cfg.Server.APIKey,
		MaxTurns:        cfg.Session.MaxTurns,
		IdleTTL:         cfg.Session.IdleTTL.Std(),
	}, gateway.Deps{
		Pipeline: pipe,
		Limiter:  limiter,
		Cache:    replyCache,
		Sessions: sessions,
		Logger:   logger,
		Version:  version,
	})

	return &services{
		gateway: srv,
		sweeper: sweeper,
		redis:   redisClient,
	}, nil
}

// connectRedis returns a verified client or nil. An unreachable Redis at
// startup downgrades to the in-process stores rather than failing the boot.
func connectRedis(cfg config.RedisConfig, logger *slog.Logger) *redis.Client {
	if !cfg.Configured() {
		logger.Info("redis not configured, using in-process cache and sessions")
		return nil
	}

	var client *redis.Client
	if cfg.URL != "" {
		opts, err := redis.ParseURL(cfg.URL)
		if err != nil {
			logger.Warn("invalid redis url, using in-process fallback", "error", err)
			return nil
		}
		client = redis.NewClient(opts)
	} else {
		client = redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unreachable, using in-process fallback", "error", err)
		_ = client.Close()
		return nil
	}

	logger.Info("redis connected")
	return client
}
