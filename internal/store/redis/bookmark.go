package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// ErrNotFound is returned by Get when no record exists for the ID.
var ErrNotFound = errors.New("bookmark not found")

// Put stores bookmark, replacing any record with the same ID.
func (s *Store) Put(ctx context.Context, bookmark *domain.Bookmark) error {
	data, err := json.Marshal(bookmark)
	if err != nil {
		return fmt.Errorf("failed to marshal bookmark: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.keys.Bookmark(bookmark.ID), data, 0)
		pipe.SAdd(ctx, s.keys.All(), bookmark.ID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save bookmark %s: %w", bookmark.ID, err)
	}

	return nil
}

// Delete removes the record for id. A missing record is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.keys.Bookmark(id))
		pipe.SRem(ctx, s.keys.All(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to delete bookmark %s: %w", id, err)
	}

	return nil
}

// Get retrieves a bookmark by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Bookmark, error) {
	data, err := s.client.Get(ctx, s.keys.Bookmark(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to get bookmark: %w", err)
	}

	var bookmark domain.Bookmark
	if err := json.Unmarshal(data, &bookmark); err != nil {
		return nil, fmt.Errorf("failed to unmarshal bookmark: %w", err)
	}

	return &bookmark, nil
}

// All retrieves every stored bookmark. IDs whose record vanished between
// the set read and the fetch are skipped.
func (s *Store) All(ctx context.Context) ([]*domain.Bookmark, error) {
	ids, err := s.client.SMembers(ctx, s.keys.All()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get bookmark IDs: %w", err)
	}

	bookmarks := make([]*domain.Bookmark, 0, len(ids))
	for _, id := range ids {
		bookmark, err := s.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		bookmarks = append(bookmarks, bookmark)
	}

	return bookmarks, nil
}
