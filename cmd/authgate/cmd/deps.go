package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/authgate"
	"github.com/MrEthical07/authgate/internal/config"
	"github.com/MrEthical07/authgate/userstore/bolt"
	"github.com/MrEthical07/authgate/userstore/memory"
	"github.com/MrEthical07/authgate/userstore/postgres"
)

// userStore is what the commands need beyond authgate.UserStore.
type userStore interface {
	authgate.UserStore
	SetRole(ctx context.Context, id, role string) error
}

func openRedis(ctx context.Context, cfg config.Redis, logger *zap.Logger) (redis.UniversalClient, func(), error) {
	if cfg.Addr == config.RedisMemory {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("starting embedded redis: %w", err)
		}
		logger.Warn("using embedded redis; sessions are lost on exit", zap.String("addr", mr.Addr()))
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Addr},
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.Addr, err)
	}
	return client, func() { _ = client.Close() }, nil
}

func openStore(ctx context.Context, cfg config.Store, logger *zap.Logger) (userStore, func(), error) {
	switch cfg.Driver {
	case config.StorePostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil

	case config.StoreBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.BoltPath), 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		s, err := bolt.Open(cfg.BoltPath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil

	default:
		logger.Warn("using in-memory user store; accounts are lost on exit")
		return memory.New(), func() {}, nil
	}
}

func buildEngine(cfg *config.Config, rdb redis.UniversalClient, users authgate.UserStore, logger *zap.Logger) (*authgate.Engine, error) {
	ec, err := cfg.Engine()
	if err != nil {
		return nil, err
	}

	b := authgate.New().
		WithConfig(ec).
		WithRedis(rdb).
		WithUserStore(users).
		WithLogger(logger)
	if ec.Audit.Enabled {
		b = b.WithAuditSink(authgate.NewZapSink(logger))
	}
	return b.Build()
}
