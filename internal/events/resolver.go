package events

import (
	"context"
	"fmt"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// Publisher delivers a publish request to the event bus and returns its
// synchronous acknowledgment.
type Publisher interface {
	PutEvents(ctx context.Context, req PutEventsRequest) (*PublishResult, error)
}

// Resolver turns client mutations into published events.
type Resolver struct {
	templates map[domain.MutationKind]*Template
	publisher Publisher
	logger    logger.Logger
}

// NewResolver builds one template per kind. An invalid kind is a setup
// error, never a request-time one.
func NewResolver(publisher Publisher, log logger.Logger, kinds ...domain.MutationKind) (*Resolver, error) {
	templates := make(map[domain.MutationKind]*Template, len(kinds))
	for _, kind := range kinds {
		t, err := NewTemplate(kind)
		if err != nil {
			return nil, fmt.Errorf("failed to build template: %w", err)
		}
		templates[kind] = t
	}

	return &Resolver{
		templates: templates,
		publisher: publisher,
		logger:    log,
	}, nil
}

// Resolve renders, publishes and translates a single mutation.
func (r *Resolver) Resolve(ctx context.Context, kind domain.MutationKind, args Args) Result {
	t, ok := r.templates[kind]
	if !ok {
		return Result{Error: &Error{
			Message: fmt.Sprintf("mutation %s is not served", kind),
			Type:    ErrTypeUnknownMutation,
		}}
	}

	req, err := t.Render(args)
	if err != nil {
		return Result{Error: &Error{Message: err.Error(), Type: ErrTypeValidation}}
	}

	res, err := r.publisher.PutEvents(ctx, req)
	out := Translate(res, err)
	if out.Error != nil {
		r.logger.Warn("mutation publish failed",
			logger.String("mutation", kind.String()),
			logger.String("error_type", out.Error.Type),
			logger.String("error", out.Error.Message))
		return out
	}

	r.logger.Debug("mutation published",
		logger.String("mutation", kind.String()))
	return out
}
