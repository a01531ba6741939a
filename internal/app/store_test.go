package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/config"
	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/store/memory"
	redisstore "github.com/MrSnakeDoc/bookmarks/internal/store/redis"
)

func TestOpenStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		s, closeFn, err := openStore(ctx, &config.Config{StoreDriver: config.DriverMemory, Table: "bookmarks"}, client)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &memory.Store{}, s)
	})

	t.Run("redis", func(t *testing.T) {
		s, closeFn, err := openStore(ctx, &config.Config{StoreDriver: config.DriverRedis, Table: "bookmarks"}, client)
		require.NoError(t, err)
		defer closeFn()
		assert.IsType(t, &redisstore.Store{}, s)

		require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "1", Name: "Paper"}))
		assert.True(t, mr.Exists("bookmarks:bookmark:1"))
		assert.NoError(t, s.Ping(ctx))
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, closeFn, err := openStore(ctx, &config.Config{StoreDriver: "sqlite"}, client)
		assert.Error(t, err)
		assert.NotNil(t, closeFn)
	})
}
