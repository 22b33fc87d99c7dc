// Package app wires the storage, codec, mapper and event bus that the API
// server and the CLI share.
package app

import (
	"context"
	"fmt"

	"github.com/campaign-vault/backend/internal/config"
	"github.com/campaign-vault/backend/internal/db"
	"github.com/campaign-vault/backend/internal/encryption"
	"github.com/campaign-vault/backend/internal/events"
	"github.com/campaign-vault/backend/internal/mapping"
	"github.com/campaign-vault/backend/internal/repositories"
	"github.com/campaign-vault/backend/internal/repositories/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Deps struct {
	Store      repositories.Store
	Codec      *encryption.Codec
	Mapper     *mapping.Mapper
	Redis      *redis.Client // nil without REDIS_URL
	Publisher  events.Publisher
	Subscriber events.Subscriber
}

// Close releases the store and the redis client.
func (d *Deps) Close() {
	if d.Store != nil {
		d.Store.Close()
	}
	if d.Redis != nil {
		_ = d.Redis.Close()
	}
}

// OpenStore connects the configured storage driver and brings its schema up
// to date.
func OpenStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (repositories.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
			pool.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return repositories.NewPGStore(pool), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// New builds every shared dependency. On error nothing is left open.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Deps, error) {
	codec, err := encryption.NewCodecFromHex(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	aliases, err := mapping.LoadAliasFile(cfg.FieldAliasesFile)
	if err != nil {
		return nil, err
	}

	deps := &Deps{
		Codec:  codec,
		Mapper: mapping.NewMapper(aliases),
	}

	if cfg.RedisURL != "" {
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
		if err != nil {
			return nil, err
		}
		deps.Redis = rdb
		deps.Publisher = events.NewRedisPublisher(rdb, log)
		deps.Subscriber = events.NewRedisSubscriber(rdb, log)
	} else {
		bus := events.NewLocalBus(log)
		deps.Publisher = bus
		deps.Subscriber = bus
	}

	store, err := OpenStore(ctx, cfg, log)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Store = store

	return deps, nil
}
