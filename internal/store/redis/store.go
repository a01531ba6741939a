package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Store persists bookmarks as JSON strings in Redis, one key per record,
// plus a set indexing every ID. Records never expire.
type Store struct {
	client *redis.Client
	keys   Keys
}

// NewStore creates a Redis bookmark store for table.
func NewStore(client *redis.Client, table string) *Store {
	return &Store{
		client: client,
		keys:   NewKeys(table),
	}
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis store ping: %w", err)
	}
	return nil
}

// Count returns the number of stored bookmarks.
func (s *Store) Count(ctx context.Context) (int64, error) {
	n, err := s.client.SCard(ctx, s.keys.All()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count bookmarks: %w", err)
	}
	return n, nil
}
