package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is the envelope the bus hands to a subscriber.
// Field names follow the bus wire format ("detail-type" keeps its dash).
type Event struct {
	ID         string          `json:"id"`
	Bus        string          `json:"event-bus-name"`
	Source     string          `json:"source"`
	DetailType string          `json:"detail-type"`
	Time       time.Time       `json:"time"`
	Detail     json.RawMessage `json:"detail"`
}

// deleteDetail is the payload of a deleteBookmark event.
type deleteDetail struct {
	ID string `json:"id"`
}

// BookmarkDetail decodes the detail of a createBookmark event.
func (e Event) BookmarkDetail() (*Bookmark, error) {
	var b Bookmark
	if err := json.Unmarshal(e.Detail, &b); err != nil {
		return nil, fmt.Errorf("%w: decode bookmark detail: %v", ErrValidation, err)
	}
	if b.ID == "" {
		return nil, fmt.Errorf("%w: bookmark detail has no id", ErrValidation)
	}
	return &b, nil
}

// IDDetail decodes the {id} detail of a deleteBookmark event.
func (e Event) IDDetail() (string, error) {
	var d deleteDetail
	if err := json.Unmarshal(e.Detail, &d); err != nil {
		return "", fmt.Errorf("%w: decode id detail: %v", ErrValidation, err)
	}
	if d.ID == "" {
		return "", fmt.Errorf("%w: detail has no id", ErrValidation)
	}
	return d.ID, nil
}
