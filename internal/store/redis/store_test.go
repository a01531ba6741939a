package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, "Bookmarks"), mr
}

func TestStore_PutAndGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	b := &domain.Bookmark{ID: "1", Name: "Paper", Description: "desc", URL: "http://x"}
	require.NoError(t, s.Put(ctx, b))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, *b, *got)

	assert.True(t, mr.Exists("Bookmarks:bookmark:1"))
	assert.Zero(t, mr.TTL("Bookmarks:bookmark:1"))
	members, err := mr.SMembers("Bookmarks:bookmarks:all")
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, members)
}

func TestStore_PutReplacesWholeRecord(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "1", Name: "Paper", URL: "http://x"}))
	require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "1", Name: "Renamed"}))

	got, err := s.Get(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, domain.Bookmark{ID: "1", Name: "Renamed"}, *got)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestStore_Delete(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "1"}))
	require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "2"}))

	require.NoError(t, s.Delete(ctx, "1"))
	require.NoError(t, s.Delete(ctx, "ghost"))

	_, err := s.Get(ctx, "1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, mr.Exists("Bookmarks:bookmark:1"))

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "2", all[0].ID)
}

func TestStore_AllSkipsVanishedRecords(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "1"}))
	require.NoError(t, s.Put(ctx, &domain.Bookmark{ID: "2"}))
	mr.Del("Bookmarks:bookmark:2")

	all, err := s.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "1", all[0].ID)
}

func TestStore_ErrorsWhenRedisDown(t *testing.T) {
	s, mr := newTestStore(t)
	mr.Close()

	ctx := context.Background()
	assert.Error(t, s.Put(ctx, &domain.Bookmark{ID: "1"}))
	assert.Error(t, s.Delete(ctx, "1"))
	assert.Error(t, s.Ping(ctx))
}

func TestKeys(t *testing.T) {
	k := NewKeys("T")
	assert.Equal(t, "T:bookmark:abc", k.Bookmark("abc"))
	assert.Equal(t, "T:bookmarks:all", k.All())
}
