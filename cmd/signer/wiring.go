package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/zarvd/token-signer/internal/cache"
	"github.com/zarvd/token-signer/internal/clock"
	"github.com/zarvd/token-signer/internal/config"
	"github.com/zarvd/token-signer/internal/key"
	"github.com/zarvd/token-signer/internal/server"
	"github.com/zarvd/token-signer/internal/token"
)

// keySource is a ring the server can sign with and publish.
type keySource interface {
	token.KeyRing
	server.KeySet
	Close() error
}

type staticRing struct {
	*key.Ring
}

func (staticRing) Close() error {
	return nil
}

func loadConfig(globals *Globals) (*config.Config, error) {
	cfg, err := config.Load(globals.Config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newKeySource(logger *slog.Logger, cfg *config.Config) (keySource, error) {
	defs, err := cfg.Definitions()
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}
	if !cfg.Rotation.Enabled {
		logger.Info("using static keys", slog.Int("num-keys", len(defs)))
		return staticRing{key.NewRing(defs...)}, nil
	}

	rotatorCfg, err := cfg.RotatorConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to configure rotation: %w", err)
	}
	rotator, err := key.NewRotator(logger, defs, rotatorCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create key rotator: %w", err)
	}
	return rotator, nil
}

// newStaticRing builds a ring from the configured keys only. Rotated keys
// live in the serving process and cannot be shared with the CLI.
func newStaticRing(cfg *config.Config) (*key.Ring, error) {
	defs, err := cfg.Definitions()
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}
	if len(defs) == 0 {
		return nil, errors.New("no static keys configured")
	}
	return key.NewRing(defs...), nil
}

func newCache(cfg *config.Config) (cache.Cache, func() error, error) {
	noClose := func() error { return nil }
	switch cfg.Cache.Type {
	case config.CacheNone:
		return cache.Noop{}, noClose, nil
	case config.CacheMemory:
		return cache.NewMemory(clock.UTC{}), noClose, nil
	case config.CacheRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		return cache.NewRedis(client, cfg.Cache.Redis.Prefix, clock.UTC{}), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache type %q", cfg.Cache.Type)
	}
}
