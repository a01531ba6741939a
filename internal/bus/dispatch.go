package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

const retryDelay = time.Second

// Run delivers events to registered targets until ctx is cancelled, then
// waits for in-flight deliveries. Each rule gets a dispatcher feeding a
// shared worker pool.
func (b *RedisBus) Run(ctx context.Context) error {
	if err := b.ensureGroups(ctx); err != nil {
		return err
	}

	p := newPool(b.opts.Workers, func(ctx context.Context, j job) {
		b.deliver(ctx, j.sub, j.msg)
	}, b.logger)
	p.start(ctx)

	var wg sync.WaitGroup
	for _, s := range b.subscriptions() {
		wg.Add(1)
		go func(s *subscription) {
			defer wg.Done()
			b.dispatch(ctx, s, p)
		}(s)
	}

	wg.Wait()
	p.stop()
	return nil
}

// dispatch first replays entries this consumer read but never acked in a
// previous run, then follows new entries.
func (b *RedisBus) dispatch(ctx context.Context, s *subscription, p *pool) {
	log := b.logger.With(logger.String("rule", s.rule.Name))
	log.Info("dispatcher started")

	cursor := "0"
	for ctx.Err() == nil {
		msgs, err := b.read(ctx, s, cursor, b.opts.Block)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			log.Error("failed to read from stream", logger.Error(err))
			sleep(ctx, retryDelay)
			continue
		}

		if cursor != ">" {
			if len(msgs) == 0 {
				cursor = ">"
				continue
			}
			cursor = msgs[len(msgs)-1].ID
		}

		for _, msg := range msgs {
			p.submit(job{sub: s, msg: msg})
		}
	}

	log.Info("dispatcher stopping")
}

// Poll reads at most one batch per rule and delivers it synchronously.
// A negative block returns immediately when nothing is queued. It returns
// the number of events handed to targets.
func (b *RedisBus) Poll(ctx context.Context, block time.Duration) (int, error) {
	if err := b.ensureGroups(ctx); err != nil {
		return 0, err
	}

	delivered := 0
	for _, s := range b.subscriptions() {
		msgs, err := b.read(ctx, s, ">", block)
		if err != nil {
			return delivered, err
		}
		for _, msg := range msgs {
			if b.deliver(ctx, s, msg) {
				delivered++
			}
		}
	}
	return delivered, nil
}

// Reclaim takes over entries that stayed unacknowledged longer than the
// configured idle time, whichever consumer read them, and delivers them
// again. It returns the number of events handed to targets.
func (b *RedisBus) Reclaim(ctx context.Context) (int, error) {
	if err := b.ensureGroups(ctx); err != nil {
		return 0, err
	}

	delivered := 0
	for _, s := range b.subscriptions() {
		start := "0-0"
		for {
			msgs, next, err := b.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
				Stream:   b.opts.Stream,
				Group:    s.rule.Name,
				Consumer: b.opts.Consumer,
				MinIdle:  b.opts.MinIdle,
				Start:    start,
				Count:    b.opts.Batch,
			}).Result()
			if err != nil {
				return delivered, fmt.Errorf("failed to reclaim pending events for %s: %w", s.rule.Name, err)
			}

			for _, msg := range msgs {
				b.logger.Warn("redelivering event",
					logger.String("rule", s.rule.Name),
					logger.String("entry_id", msg.ID))
				if b.deliver(ctx, s, msg) {
					delivered++
				}
			}

			if next == "0-0" || next == "" {
				break
			}
			start = next
		}
	}
	return delivered, nil
}

// Trim drops the stream entries every consumer group is done with: those
// older than each group's oldest pending entry, or its last delivered
// entry when nothing is pending. It returns the number of entries removed.
func (b *RedisBus) Trim(ctx context.Context) (int64, error) {
	if err := b.ensureGroups(ctx); err != nil {
		return 0, err
	}
	if len(b.subscriptions()) == 0 {
		return 0, nil
	}

	groups, err := b.client.XInfoGroups(ctx, b.opts.Stream).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list consumer groups: %w", err)
	}

	floor := ""
	for _, g := range groups {
		bound := g.LastDeliveredID
		if g.Pending > 0 {
			p, err := b.client.XPending(ctx, b.opts.Stream, g.Name).Result()
			if err != nil {
				return 0, fmt.Errorf("failed to read pending entries for %s: %w", g.Name, err)
			}
			if p.Count > 0 {
				bound = p.Lower
			}
		}
		if floor == "" || compareID(bound, floor) < 0 {
			floor = bound
		}
	}

	if floor == "" || compareID(floor, "0-0") <= 0 {
		return 0, nil
	}

	n, err := b.client.XTrimMinID(ctx, b.opts.Stream, floor).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to trim stream: %w", err)
	}
	if n > 0 {
		b.logger.Debug("trimmed stream",
			logger.String("min_id", floor),
			logger.Int64("removed", n))
	}
	return n, nil
}

// compareID orders two stream ids of the form "<ms>-<seq>".
func compareID(a, b string) int {
	am, as := splitID(a)
	bm, bs := splitID(b)
	switch {
	case am != bm:
		if am < bm {
			return -1
		}
		return 1
	case as < bs:
		return -1
	case as > bs:
		return 1
	}
	return 0
}

func splitID(id string) (uint64, uint64) {
	ms, seq, _ := strings.Cut(id, "-")
	m, _ := strconv.ParseUint(ms, 10, 64)
	s, _ := strconv.ParseUint(seq, 10, 64)
	return m, s
}

func (b *RedisBus) read(ctx context.Context, s *subscription, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := b.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    s.rule.Name,
		Consumer: b.opts.Consumer,
		Streams:  []string{b.opts.Stream, id},
		Count:    b.opts.Batch,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msgs []redis.XMessage
	for _, st := range streams {
		msgs = append(msgs, st.Messages...)
	}
	return msgs, nil
}

// deliver hands msg to the subscription's target when the rule matches,
// then acknowledges it. Entries that cannot be decoded are acknowledged
// and dropped. A panicking target leaves the entry pending.
func (b *RedisBus) deliver(ctx context.Context, s *subscription, msg redis.XMessage) (delivered bool) {
	log := b.logger.With(logger.String("rule", s.rule.Name), logger.String("entry_id", msg.ID))

	evt, err := decodeEvent(msg)
	if err != nil {
		log.Error("dropping undecodable stream entry", logger.Error(err))
		b.ack(ctx, s, msg.ID)
		return false
	}

	if !s.rule.Pattern.Matches(evt) {
		b.ack(ctx, s, msg.ID)
		return false
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error("target panicked, event left pending",
				logger.String("event_id", evt.ID),
				logger.Any("panic", r))
			delivered = false
		}
	}()

	s.target.Deliver(ctx, evt)
	b.ack(ctx, s, msg.ID)
	return true
}

func (b *RedisBus) ack(ctx context.Context, s *subscription, id string) {
	if err := b.client.XAck(context.WithoutCancel(ctx), b.opts.Stream, s.rule.Name, id).Err(); err != nil {
		b.logger.Warn("failed to acknowledge event",
			logger.String("rule", s.rule.Name),
			logger.String("entry_id", id),
			logger.Error(err))
	}
}

func decodeEvent(msg redis.XMessage) (domain.Event, error) {
	var evt domain.Event

	raw, ok := msg.Values[eventField]
	if !ok {
		return evt, fmt.Errorf("entry has no %q field", eventField)
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return evt, fmt.Errorf("unexpected %q field type %T", eventField, raw)
	}

	if err := json.Unmarshal(data, &evt); err != nil {
		return evt, fmt.Errorf("decode event: %w", err)
	}
	return evt, nil
}

func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Stats describes the stream backlog.
type Stats struct {
	Stream  string           `json:"stream"`
	Length  int64            `json:"length"`
	Pending map[string]int64 `json:"pending"`
}

// Stats reports the stream length and the unacknowledged entries per rule.
func (b *RedisBus) Stats(ctx context.Context) (Stats, error) {
	if err := b.ensureGroups(ctx); err != nil {
		return Stats{}, err
	}

	st := Stats{Stream: b.opts.Stream, Pending: map[string]int64{}}

	n, err := b.client.XLen(ctx, b.opts.Stream).Result()
	if err != nil {
		return st, fmt.Errorf("failed to read stream length: %w", err)
	}
	st.Length = n

	for _, s := range b.subscriptions() {
		p, err := b.client.XPending(ctx, b.opts.Stream, s.rule.Name).Result()
		if err != nil {
			return st, fmt.Errorf("failed to read pending entries for %s: %w", s.rule.Name, err)
		}
		st.Pending[s.rule.Name] = p.Count
	}
	return st, nil
}
