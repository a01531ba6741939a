package memory

import (
	"context"
	"sync"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// Store keeps bookmarks in process memory.
// It backs the "memory" driver and the pipeline tests; contents are lost
// on restart.
type Store struct {
	mu        sync.RWMutex
	bookmarks map[string]*domain.Bookmark // ID -> Bookmark
}

// New creates an empty memory store
func New() *Store {
	return &Store{
		bookmarks: make(map[string]*domain.Bookmark),
	}
}

// Put inserts or fully replaces a bookmark
func (s *Store) Put(_ context.Context, bookmark *domain.Bookmark) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bookmarks[bookmark.ID] = bookmark.Clone()
	return nil
}

// Delete removes a bookmark; a missing id is not an error
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.bookmarks, id)
	return nil
}

// Get retrieves a copy of a bookmark by ID
func (s *Store) Get(id string) (*domain.Bookmark, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookmark, ok := s.bookmarks[id]
	return bookmark.Clone(), ok
}

// All returns copies of every stored bookmark
func (s *Store) All() []*domain.Bookmark {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookmarks := make([]*domain.Bookmark, 0, len(s.bookmarks))
	for _, bookmark := range s.bookmarks {
		bookmarks = append(bookmarks, bookmark.Clone())
	}
	return bookmarks
}

// Count returns the number of stored bookmarks
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.bookmarks)
}

// Ping always succeeds
func (s *Store) Ping(context.Context) error { return nil }
