package homepage

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

// BookmarkMapper converts Homepage bookmark config to domain bookmarks
type BookmarkMapper struct{}

// NewBookmarkMapper creates a new bookmark mapper
func NewBookmarkMapper() *BookmarkMapper {
	return &BookmarkMapper{}
}

// MapBookmarks converts BookmarksConfig to domain bookmarks.
// Entries without href are skipped; a URL listed twice keeps its first
// occurrence. A config without any usable entry maps to an empty slice.
func (m *BookmarkMapper) MapBookmarks(config BookmarksConfig) ([]*domain.Bookmark, error) {
	bookmarks := make([]*domain.Bookmark, 0)
	seen := make(map[string]bool)

	for _, category := range config {
		for _, bookmarkList := range category {
			for _, bookmarkMap := range bookmarkList {
				for bookmarkName, entryList := range bookmarkMap {
					// Each bookmark has a list with a single entry
					if len(entryList) == 0 {
						continue
					}
					entry := entryList[0]

					if entry.Href == "" {
						continue
					}

					id := generateBookmarkID(entry.Href)
					if seen[id] {
						continue
					}
					seen[id] = true

					description := entry.Description
					if description == "" {
						description = entry.Abbr
					}

					bookmarks = append(bookmarks, &domain.Bookmark{
						ID:          id,
						Name:        bookmarkName,
						Description: description,
						URL:         entry.Href,
					})
				}
			}
		}
	}

	return bookmarks, nil
}

// generateBookmarkID creates a stable ID from a URL using SHA-256 hash
// This ensures that the same URL always produces the same ID,
// even if the name changes
func generateBookmarkID(url string) string {
	hash := sha256.Sum256([]byte(url))
	return hex.EncodeToString(hash[:])[:16]
}
