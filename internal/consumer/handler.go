package consumer

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// Store is the keyed collection the consumer writes to.
// Put replaces or inserts; Delete removes if present and must not fail
// on a missing key.
type Store interface {
	Put(ctx context.Context, bookmark *domain.Bookmark) error
	Delete(ctx context.Context, id string) error
}

// Status is the terminal state of one invocation.
type Status uint8

const (
	// Ignored means the detail-type was not a known mutation.
	Ignored Status = iota
	// Applied means the store accepted the change.
	Applied
	// Failed means the change was not applied. The cause is only logged.
	Failed
)

func (s Status) String() string {
	switch s {
	case Applied:
		return "applied"
	case Failed:
		return "failed"
	default:
		return "ignored"
	}
}

// Outcome is the result of handling one event.
// Bookmark is set for an applied create, DeletedID for an applied delete.
type Outcome struct {
	Status    Status
	Kind      domain.MutationKind
	Bookmark  *domain.Bookmark
	DeletedID string
}

// Handler applies mutation events to a Store. It keeps no state between
// invocations and never returns an error to the bus.
type Handler struct {
	store  Store
	logger logger.Logger
}

// NewHandler creates a mutation consumer.
func NewHandler(store Store, log logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: log.With(logger.Component("consumer")),
	}
}

// Handle applies evt. Failures are logged and reported as Failed; nothing
// escapes, not even a panic from the store.
func (h *Handler) Handle(ctx context.Context, evt domain.Event) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("mutation consumer panicked",
				logger.String("event_id", evt.ID),
				logger.String("detail_type", evt.DetailType),
				logger.String("panic", fmt.Sprint(r)))
			out = Outcome{Status: Failed}
		}
	}()

	kind, err := domain.ParseMutationKind(evt.DetailType)
	if err != nil {
		h.logger.Debug("ignoring event with unknown detail-type",
			logger.String("event_id", evt.ID),
			logger.String("detail_type", evt.DetailType))
		return Outcome{Status: Ignored}
	}

	switch kind {
	case domain.CreateBookmark:
		return h.create(ctx, evt)
	case domain.DeleteBookmark:
		return h.delete(ctx, evt)
	}

	return Outcome{Status: Ignored, Kind: kind}
}

func (h *Handler) create(ctx context.Context, evt domain.Event) Outcome {
	bookmark, err := evt.BookmarkDetail()
	if err != nil {
		h.fail(evt, "", err)
		return Outcome{Status: Failed, Kind: domain.CreateBookmark}
	}

	if err := h.store.Put(ctx, bookmark); err != nil {
		h.fail(evt, bookmark.ID, err)
		return Outcome{Status: Failed, Kind: domain.CreateBookmark}
	}

	h.logger.Info("bookmark stored",
		logger.String("event_id", evt.ID),
		logger.String("bookmark_id", bookmark.ID))

	return Outcome{Status: Applied, Kind: domain.CreateBookmark, Bookmark: bookmark}
}

func (h *Handler) delete(ctx context.Context, evt domain.Event) Outcome {
	id, err := evt.IDDetail()
	if err != nil {
		h.fail(evt, "", err)
		return Outcome{Status: Failed, Kind: domain.DeleteBookmark}
	}

	if err := h.store.Delete(ctx, id); err != nil {
		h.fail(evt, id, err)
		return Outcome{Status: Failed, Kind: domain.DeleteBookmark}
	}

	h.logger.Info("bookmark deleted",
		logger.String("event_id", evt.ID),
		logger.String("bookmark_id", id))

	return Outcome{Status: Applied, Kind: domain.DeleteBookmark, DeletedID: id}
}

func (h *Handler) fail(evt domain.Event, id string, err error) {
	h.logger.Error("failed to apply mutation event",
		logger.String("event_id", evt.ID),
		logger.String("detail_type", evt.DetailType),
		logger.String("bookmark_id", id),
		logger.Error(err))
}
