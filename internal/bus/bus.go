package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

const (
	// DefaultStream is the Redis stream backing the "default" bus.
	DefaultStream = "bookmarks:bus:" + domain.DefaultEventBus

	// eventField is the stream entry field holding the JSON envelope.
	eventField = "event"
)

// Error codes reported per entry in a PutEvents response.
const (
	ErrCodeInvalidArgument  = "InvalidArgument"
	ErrCodeMalformedDetail  = "MalformedDetail"
	ErrCodeResourceNotFound = "ResourceNotFoundException"
)

// ErrTypeBusUnavailable classifies publish failures caused by Redis.
const ErrTypeBusUnavailable = "BusUnavailable"

var ErrDuplicateRule = errors.New("rule already registered")

// Target receives the events matched by a rule. The bus acknowledges the
// event once Deliver returns; a panic leaves it pending for redelivery.
type Target interface {
	Deliver(ctx context.Context, evt domain.Event)
}

// TargetFunc adapts a function to Target.
type TargetFunc func(ctx context.Context, evt domain.Event)

func (f TargetFunc) Deliver(ctx context.Context, evt domain.Event) { f(ctx, evt) }

// Options tunes the Redis bus. Zero values fall back to defaults.
type Options struct {
	Stream   string
	Consumer string
	Workers  int
	Batch    int64
	Block    time.Duration
	MinIdle  time.Duration
}

func (o Options) withDefaults() Options {
	if o.Stream == "" {
		o.Stream = DefaultStream
	}
	if o.Consumer == "" {
		o.Consumer = "bookmarks"
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Batch <= 0 {
		o.Batch = 10
	}
	if o.Block <= 0 {
		o.Block = 2 * time.Second
	}
	if o.MinIdle <= 0 {
		o.MinIdle = time.Minute
	}
	return o
}

type subscription struct {
	rule   Rule
	target Target
}

// RedisBus is an at-least-once event bus on a Redis stream. Every rule
// owns a consumer group, so each rule sees every event and delivers the
// ones its pattern matches.
type RedisBus struct {
	client *redis.Client
	opts   Options
	logger logger.Logger

	mu          sync.Mutex
	subs        []*subscription
	groupsReady bool
}

// NewRedisBus creates a bus on client.
func NewRedisBus(client *redis.Client, opts Options, log logger.Logger) *RedisBus {
	return &RedisBus{
		client: client,
		opts:   opts.withDefaults(),
		logger: log.With(logger.Component("bus")),
	}
}

// Stream returns the stream key.
func (b *RedisBus) Stream() string {
	return b.opts.Stream
}

// Register subscribes target to the events rule matches.
func (b *RedisBus) Register(rule Rule, target Target) error {
	if rule.Name == "" {
		return fmt.Errorf("rule name is required")
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.subs {
		if s.rule.Name == rule.Name {
			return fmt.Errorf("%w: %s", ErrDuplicateRule, rule.Name)
		}
	}

	b.subs = append(b.subs, &subscription{rule: rule, target: target})
	b.groupsReady = false
	return nil
}

// Rules returns the registered rules in registration order.
func (b *RedisBus) Rules() []Rule {
	b.mu.Lock()
	defer b.mu.Unlock()

	rules := make([]Rule, 0, len(b.subs))
	for _, s := range b.subs {
		rules = append(rules, s.rule)
	}
	return rules
}

func (b *RedisBus) subscriptions() []*subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.subs)
}

// ensureGroups creates one consumer group per rule. Groups start at the
// beginning of the stream, so events published before the first read are
// still delivered.
func (b *RedisBus) ensureGroups(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.groupsReady {
		return nil
	}

	for _, s := range b.subs {
		err := b.client.XGroupCreateMkStream(ctx, b.opts.Stream, s.rule.Name, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create consumer group %s: %w", s.rule.Name, err)
		}
	}

	b.groupsReady = true
	return nil
}

// PutEvents publishes req. Entries are validated one by one; invalid ones
// are reported in the response and the rest are appended to the stream in
// a single round trip. A Redis failure fails the whole call.
func (b *RedisBus) PutEvents(ctx context.Context, req events.PutEventsRequest) (*events.PublishResult, error) {
	if len(req.Entries) == 0 {
		return validationFailure("Entries must contain at least one entry")
	}

	resp := events.PutEventsResponse{Entries: make([]events.PutEventsResultEntry, len(req.Entries))}
	accepted := make([]int, 0, len(req.Entries))
	payloads := make([][]byte, 0, len(req.Entries))
	now := time.Now().UTC()

	for i, entry := range req.Entries {
		if code, msg := validateEntry(entry); code != "" {
			resp.Entries[i] = events.PutEventsResultEntry{ErrorCode: code, ErrorMessage: msg}
			resp.FailedEntryCount++
			continue
		}

		evt := domain.Event{
			ID:         uuid.NewString(),
			Bus:        domain.DefaultEventBus,
			Source:     entry.Source,
			DetailType: entry.DetailType,
			Time:       now,
			Detail:     json.RawMessage(entry.Detail),
		}
		data, err := json.Marshal(evt)
		if err != nil {
			resp.Entries[i] = events.PutEventsResultEntry{ErrorCode: ErrCodeMalformedDetail, ErrorMessage: err.Error()}
			resp.FailedEntryCount++
			continue
		}

		resp.Entries[i] = events.PutEventsResultEntry{EventID: evt.ID}
		accepted = append(accepted, i)
		payloads = append(payloads, data)
	}

	if len(payloads) > 0 {
		_, err := b.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, data := range payloads {
				pipe.XAdd(ctx, &redis.XAddArgs{
					Stream: b.opts.Stream,
					Values: map[string]any{eventField: data},
				})
			}
			return nil
		})
		if err != nil {
			return nil, &events.PublishError{
				Type:    ErrTypeBusUnavailable,
				Message: "event bus unavailable",
				Err:     err,
			}
		}
	}

	b.logger.Debug("events published",
		logger.Int("accepted", len(accepted)),
		logger.Int("failed", resp.FailedEntryCount))

	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal PutEvents response: %w", err)
	}

	return &events.PublishResult{StatusCode: 200, Body: body}, nil
}

func validateEntry(entry events.PutEventsEntry) (code, msg string) {
	if entry.EventBusName != "" && entry.EventBusName != domain.DefaultEventBus {
		return ErrCodeResourceNotFound, fmt.Sprintf("event bus %s does not exist", entry.EventBusName)
	}
	if entry.Source == "" {
		return ErrCodeInvalidArgument, "Source is required"
	}
	if entry.DetailType == "" {
		return ErrCodeInvalidArgument, "DetailType is required"
	}

	var detail map[string]json.RawMessage
	if err := json.Unmarshal([]byte(entry.Detail), &detail); err != nil || detail == nil {
		return ErrCodeMalformedDetail, "Detail is malformed"
	}
	return "", ""
}

func validationFailure(msg string) (*events.PublishResult, error) {
	body, err := json.Marshal(map[string]string{
		"__type":  "ValidationException",
		"message": msg,
	})
	if err != nil {
		return nil, err
	}
	return &events.PublishResult{StatusCode: 400, Body: body}, nil
}
