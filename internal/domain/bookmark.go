package domain

// Bookmark is the single entity managed by the mutation pipeline.
//
// A Bookmark is uniquely identified by its ID. It is created (or fully
// replaced) by a createBookmark event and removed by a deleteBookmark event.
// There is no partial update: every write carries the whole record.
type Bookmark struct {
	// ID is the primary key. It is supplied by the client, never generated.
	ID string `json:"id"`

	// Name is the display label.
	// Example: "Paper"
	Name string `json:"name"`

	// Description is free text.
	Description string `json:"description"`

	// URL is the bookmarked address.
	// Example: https://example.com/paper.pdf
	URL string `json:"url"`
}

// Clone returns a copy of b that shares no memory with it.
func (b *Bookmark) Clone() *Bookmark {
	if b == nil {
		return nil
	}
	c := *b
	return &c
}
