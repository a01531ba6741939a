package events

import (
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// Args are the client arguments of a mutation.
// createBookmark reads Task, deleteBookmark reads TaskID.
type Args struct {
	Task   *domain.Bookmark `json:"task,omitempty"`
	TaskID string           `json:"taskId,omitempty"`
}

// createDetail fixes the exact key set of a createBookmark detail.
type createDetail struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type deleteDetail struct {
	ID string `json:"id"`
}

// Template renders publish requests for a single mutation kind.
// Templates are built once at setup; Render is pure.
type Template struct {
	kind   domain.MutationKind
	detail func(Args) (any, error)
}

// NewTemplate returns the template for kind, or ErrInvalidMutationKind.
func NewTemplate(kind domain.MutationKind) (*Template, error) {
	t := &Template{kind: kind}

	switch kind {
	case domain.CreateBookmark:
		t.detail = func(a Args) (any, error) {
			if a.Task == nil {
				return nil, fmt.Errorf("%w: %s requires a task", domain.ErrValidation, kind)
			}
			return createDetail{
				ID:          a.Task.ID,
				Name:        a.Task.Name,
				Description: a.Task.Description,
				URL:         a.Task.URL,
			}, nil
		}
	case domain.DeleteBookmark:
		t.detail = func(a Args) (any, error) {
			return deleteDetail{ID: a.TaskID}, nil
		}
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidMutationKind, kind)
	}

	return t, nil
}

// Kind returns the mutation kind this template renders.
func (t *Template) Kind() domain.MutationKind { return t.kind }

// Render builds the publish request for args.
func (t *Template) Render(args Args) (PutEventsRequest, error) {
	detail, err := t.detail(args)
	if err != nil {
		return PutEventsRequest{}, err
	}

	data, err := json.Marshal(detail)
	if err != nil {
		return PutEventsRequest{}, fmt.Errorf("failed to marshal %s detail: %w", t.kind, err)
	}

	return PutEventsRequest{
		Entries: []PutEventsEntry{{
			EventBusName: domain.DefaultEventBus,
			Source:       domain.EventSource,
			DetailType:   t.kind.String(),
			Detail:       string(data),
		}},
	}, nil
}
