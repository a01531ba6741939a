package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/config"
	"github.com/MrSnakeDoc/bookmarks/internal/consumer"
	"github.com/MrSnakeDoc/bookmarks/internal/store/dynamo"
	"github.com/MrSnakeDoc/bookmarks/internal/store/memory"
	"github.com/MrSnakeDoc/bookmarks/internal/store/postgres"
	redisstore "github.com/MrSnakeDoc/bookmarks/internal/store/redis"
)

// bookmarkStore is what the consumer writes to and readyz pings.
type bookmarkStore interface {
	consumer.Store
	Ping(ctx context.Context) error
}

// openStore builds the store selected by BOOKMARKS_STORE_DRIVER.
// The returned closer is never nil.
func openStore(ctx context.Context, cfg *config.Config, redisClient *goredis.Client) (bookmarkStore, func(), error) {
	noop := func() {}

	switch cfg.StoreDriver {
	case config.DriverMemory:
		return memory.New(), noop, nil

	case config.DriverRedis:
		return redisstore.NewStore(redisClient, cfg.Table), noop, nil

	case config.DriverPostgres:
		s, err := postgres.New(ctx, cfg.DatabaseURL, cfg.Table)
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil

	case config.DriverDynamoDB:
		opts := []dynamo.Option{dynamo.WithRegion(cfg.DynamoRegion)}
		if cfg.DynamoEndpoint != "" {
			opts = append(opts, dynamo.WithEndpoint(cfg.DynamoEndpoint))
		}
		s, err := dynamo.New(cfg.Table, opts...)
		if err != nil {
			return nil, noop, err
		}
		return s, noop, nil
	}

	return nil, noop, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
