package domain

import (
	"fmt"
)

// EventSource identifies this application's event stream on the bus.
const EventSource = "bookmark-events"

// DefaultEventBus is the only bus mutation events are published to.
const DefaultEventBus = "default"

// MutationKind is the closed set of write operations a client can issue.
// The same values are used as event detail-types, so the encoder, the
// routing rule and the consumer all share this single vocabulary.
type MutationKind uint8

const (
	// zero value is deliberately invalid
	_ MutationKind = iota

	// CreateBookmark inserts or fully replaces a bookmark.
	CreateBookmark

	// DeleteBookmark removes a bookmark by id.
	DeleteBookmark
)

var mutationNames = map[MutationKind]string{
	CreateBookmark: "createBookmark",
	DeleteBookmark: "deleteBookmark",
}

// MutationKinds returns every valid kind, in declaration order.
func MutationKinds() []MutationKind {
	return []MutationKind{CreateBookmark, DeleteBookmark}
}

// String returns the wire name (also the event detail-type).
func (k MutationKind) String() string {
	if name, ok := mutationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("MutationKind(%d)", uint8(k))
}

// Valid reports whether k is one of the enumerated kinds.
func (k MutationKind) Valid() bool {
	_, ok := mutationNames[k]
	return ok
}

// ParseMutationKind maps a wire name back to its kind.
func ParseMutationKind(name string) (MutationKind, error) {
	for kind, n := range mutationNames {
		if n == name {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidMutationKind, name)
}

// MutationNames returns the wire names of every valid kind.
func MutationNames() []string {
	kinds := MutationKinds()
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, k.String())
	}
	return names
}
