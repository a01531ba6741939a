package bus

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

type recorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *recorder) Deliver(_ context.Context, evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func newTestBus(t *testing.T, opts Options) (*RedisBus, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisBus(client, opts, logger.Nop()), mr
}

func entry(detailType, detail string) events.PutEventsEntry {
	return events.PutEventsEntry{
		EventBusName: domain.DefaultEventBus,
		Source:       domain.EventSource,
		DetailType:   detailType,
		Detail:       detail,
	}
}

func putEvents(t *testing.T, b *RedisBus, entries ...events.PutEventsEntry) events.PutEventsResponse {
	t.Helper()
	res, err := b.PutEvents(context.Background(), events.PutEventsRequest{Entries: entries})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var resp events.PutEventsResponse
	require.NoError(t, json.Unmarshal(res.Body, &resp))
	return resp
}

func TestPutEvents_ReportsPerEntryFailures(t *testing.T) {
	b, _ := newTestBus(t, Options{})

	bad := entry("createBookmark", `{"id":"1"}`)
	bad.EventBusName = "other"
	noSource := entry("createBookmark", `{"id":"1"}`)
	noSource.Source = ""

	resp := putEvents(t, b,
		entry("createBookmark", `{"id":"1"}`),
		bad,
		noSource,
		entry("deleteBookmark", `not json`),
		entry("deleteBookmark", `["array"]`),
	)

	assert.Equal(t, 4, resp.FailedEntryCount)
	require.Len(t, resp.Entries, 5)
	assert.NotEmpty(t, resp.Entries[0].EventID)
	assert.Empty(t, resp.Entries[0].ErrorCode)
	assert.Equal(t, ErrCodeResourceNotFound, resp.Entries[1].ErrorCode)
	assert.Equal(t, ErrCodeInvalidArgument, resp.Entries[2].ErrorCode)
	assert.Equal(t, ErrCodeMalformedDetail, resp.Entries[3].ErrorCode)
	assert.Equal(t, ErrCodeMalformedDetail, resp.Entries[4].ErrorCode)

	n, err := b.client.XLen(context.Background(), DefaultStream).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestPutEvents_EmptyBusNameMeansDefault(t *testing.T) {
	b, _ := newTestBus(t, Options{})
	e := entry("createBookmark", `{"id":"1"}`)
	e.EventBusName = ""

	resp := putEvents(t, b, e)
	assert.Zero(t, resp.FailedEntryCount)
}

func TestPutEvents_NoEntries(t *testing.T) {
	b, _ := newTestBus(t, Options{})

	res, err := b.PutEvents(context.Background(), events.PutEventsRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.Contains(t, string(res.Body), "ValidationException")
}

func TestPutEvents_RedisDown(t *testing.T) {
	b, mr := newTestBus(t, Options{})
	mr.Close()

	_, err := b.PutEvents(context.Background(), events.PutEventsRequest{
		Entries: []events.PutEventsEntry{entry("createBookmark", `{"id":"1"}`)},
	})

	var pe *events.PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrTypeBusUnavailable, pe.Type)
}

func TestRegister_RejectsDuplicateName(t *testing.T) {
	b, _ := newTestBus(t, Options{})

	require.NoError(t, b.Register(MutationRule(), &recorder{}))
	err := b.Register(MutationRule(), &recorder{})
	assert.ErrorIs(t, err, ErrDuplicateRule)
	assert.Len(t, b.Rules(), 1)

	assert.Error(t, b.Register(Rule{}, &recorder{}))
}

func TestPoll_DeliversOnlyMatchingEvents(t *testing.T) {
	b, _ := newTestBus(t, Options{})
	rec := &recorder{}
	require.NoError(t, b.Register(MutationRule(), rec))

	foreign := entry("createBookmark", `{"id":"x"}`)
	foreign.Source = "other-app"
	putEvents(t, b,
		entry("createBookmark", `{"id":"1","name":"Paper"}`),
		foreign,
		entry("renameBookmark", `{"id":"1"}`),
		entry("deleteBookmark", `{"id":"1"}`),
	)

	n, err := b.Poll(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Equal(t, 2, rec.len())
	assert.Equal(t, "createBookmark", rec.events[0].DetailType)
	assert.JSONEq(t, `{"id":"1","name":"Paper"}`, string(rec.events[0].Detail))
	assert.Equal(t, domain.DefaultEventBus, rec.events[0].Bus)
	assert.NotEmpty(t, rec.events[0].ID)
	assert.Equal(t, "deleteBookmark", rec.events[1].DetailType)

	stats, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, stats.Length)
	assert.EqualValues(t, 0, stats.Pending[MutationRuleName])

	n, err = b.Poll(context.Background(), -1)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPoll_EveryRuleSeesEveryEvent(t *testing.T) {
	b, _ := newTestBus(t, Options{})
	mutations, audit := &recorder{}, &recorder{}
	require.NoError(t, b.Register(MutationRule(), mutations))
	require.NoError(t, b.Register(Rule{Name: "audit"}, audit))

	putEvents(t, b, entry("createBookmark", `{"id":"1"}`), entry("renameBookmark", `{"id":"1"}`))

	_, err := b.Poll(context.Background(), -1)
	require.NoError(t, err)
	assert.Equal(t, 1, mutations.len())
	assert.Equal(t, 2, audit.len())
}

func TestReclaim_RedeliversAfterPanic(t *testing.T) {
	b, _ := newTestBus(t, Options{MinIdle: time.Millisecond})

	var mu sync.Mutex
	calls := 0
	target := TargetFunc(func(context.Context, domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 1 {
			panic("first delivery fails")
		}
	})
	require.NoError(t, b.Register(MutationRule(), target))
	putEvents(t, b, entry("createBookmark", `{"id":"1"}`))

	n, err := b.Poll(context.Background(), -1)
	require.NoError(t, err)
	assert.Zero(t, n)

	stats, err := b.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Pending[MutationRuleName])

	time.Sleep(20 * time.Millisecond)
	n, err = b.Reclaim(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, calls)

	stats, err = b.Stats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Pending[MutationRuleName])
}

func TestTrim_BoundsStreamAfterAckedDeliveries(t *testing.T) {
	b, _ := newTestBus(t, Options{})
	rec := &recorder{}
	require.NoError(t, b.Register(MutationRule(), rec))
	require.NoError(t, b.Register(Rule{Name: "audit"}, &recorder{}))
	ctx := context.Background()

	for i := 0; i < 200; i++ {
		putEvents(t, b, entry("createBookmark", `{"id":"1"}`))
		_, err := b.Poll(ctx, -1)
		require.NoError(t, err)

		if i%50 == 49 {
			_, err := b.Trim(ctx)
			require.NoError(t, err)
		}
	}
	assert.Equal(t, 200, rec.len())

	_, err := b.Trim(ctx)
	require.NoError(t, err)

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.LessOrEqual(t, stats.Length, int64(1))
	assert.EqualValues(t, 0, stats.Pending[MutationRuleName])
	assert.EqualValues(t, 0, stats.Pending["audit"])
}

func TestTrim_KeepsPendingAndUnreadEntries(t *testing.T) {
	b, _ := newTestBus(t, Options{MinIdle: time.Millisecond})

	var mu sync.Mutex
	calls := 0
	target := TargetFunc(func(context.Context, domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 3 {
			panic("third delivery fails")
		}
	})
	require.NoError(t, b.Register(MutationRule(), target))
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		putEvents(t, b, entry("createBookmark", `{"id":"1"}`))
	}

	// Nothing read yet, so nothing may go.
	n, err := b.Trim(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = b.Poll(ctx, -1)
	require.NoError(t, err)

	n, err = b.Trim(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.Length)
	assert.EqualValues(t, 1, stats.Pending[MutationRuleName])

	time.Sleep(20 * time.Millisecond)
	redelivered, err := b.Reclaim(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, redelivered)

	n, err = b.Trim(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	stats, err = b.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, stats.Length)
	assert.EqualValues(t, 0, stats.Pending[MutationRuleName])
}

func TestTrim_NoRules(t *testing.T) {
	b, _ := newTestBus(t, Options{})
	putEvents(t, b, entry("createBookmark", `{"id":"1"}`))

	n, err := b.Trim(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCompareID(t *testing.T) {
	assert.Equal(t, -1, compareID("1-0", "2-0"))
	assert.Equal(t, -1, compareID("5-1", "5-10"))
	assert.Equal(t, 1, compareID("10-0", "9-99"))
	assert.Equal(t, 0, compareID("7-3", "7-3"))
	assert.Equal(t, 0, compareID("0-0", "0"))
}

func TestPoll_DropsUndecodableEntries(t *testing.T) {
	b, _ := newTestBus(t, Options{})
	rec := &recorder{}
	require.NoError(t, b.Register(MutationRule(), rec))

	ctx := context.Background()
	require.NoError(t, b.client.XAdd(ctx, &redis.XAddArgs{Stream: DefaultStream, Values: map[string]any{"event": "{broken"}}).Err())
	require.NoError(t, b.client.XAdd(ctx, &redis.XAddArgs{Stream: DefaultStream, Values: map[string]any{"other": "x"}}).Err())

	n, err := b.Poll(ctx, -1)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, rec.len())

	stats, err := b.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, stats.Pending[MutationRuleName])
}

func TestRun_DeliversUntilCancelled(t *testing.T) {
	b, _ := newTestBus(t, Options{Block: 20 * time.Millisecond, Workers: 2})
	rec := &recorder{}
	require.NoError(t, b.Register(MutationRule(), rec))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	putEvents(t, b, entry("createBookmark", `{"id":"1"}`), entry("deleteBookmark", `{"id":"1"}`))

	require.Eventually(t, func() bool { return rec.len() == 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ReplaysOwnPendingEntries(t *testing.T) {
	mr := miniredis.RunT(t)
	newBus := func() *RedisBus {
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return NewRedisBus(client, Options{Consumer: "node-1", Block: 20 * time.Millisecond}, logger.Nop())
	}

	first := newBus()
	require.NoError(t, first.Register(MutationRule(), TargetFunc(func(context.Context, domain.Event) {
		panic("crash mid-delivery")
	})))
	putEvents(t, first, entry("createBookmark", `{"id":"1"}`))
	_, err := first.Poll(context.Background(), -1)
	require.NoError(t, err)

	second := newBus()
	rec := &recorder{}
	require.NoError(t, second.Register(MutationRule(), rec))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = second.Run(ctx)
	}()

	require.Eventually(t, func() bool { return rec.len() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	<-done
}
