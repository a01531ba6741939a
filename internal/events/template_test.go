package events

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
)

func decodeDetail(t *testing.T, req PutEventsRequest) map[string]any {
	t.Helper()
	require.Len(t, req.Entries, 1)

	var detail map[string]any
	require.NoError(t, json.Unmarshal([]byte(req.Entries[0].Detail), &detail))
	return detail
}

func TestTemplate_CreateBookmark(t *testing.T) {
	tmpl, err := NewTemplate(domain.CreateBookmark)
	require.NoError(t, err)

	req, err := tmpl.Render(Args{Task: &domain.Bookmark{
		ID:          "1",
		Name:        "Paper",
		Description: "desc",
		URL:         "http://x",
	}})
	require.NoError(t, err)

	entry := req.Entries[0]
	assert.Equal(t, "default", entry.EventBusName)
	assert.Equal(t, domain.EventSource, entry.Source)
	assert.Equal(t, "createBookmark", entry.DetailType)

	assert.Equal(t, map[string]any{
		"id":          "1",
		"name":        "Paper",
		"description": "desc",
		"url":         "http://x",
	}, decodeDetail(t, req))
}

func TestTemplate_CreateBookmarkKeepsEmptyFields(t *testing.T) {
	tmpl, err := NewTemplate(domain.CreateBookmark)
	require.NoError(t, err)

	req, err := tmpl.Render(Args{Task: &domain.Bookmark{ID: "only-id"}})
	require.NoError(t, err)

	detail := decodeDetail(t, req)
	assert.Len(t, detail, 4)
	assert.Equal(t, "", detail["url"])
}

func TestTemplate_DeleteBookmark(t *testing.T) {
	tmpl, err := NewTemplate(domain.DeleteBookmark)
	require.NoError(t, err)

	// task is ignored for deletes
	req, err := tmpl.Render(Args{TaskID: "1", Task: &domain.Bookmark{ID: "other", Name: "x"}})
	require.NoError(t, err)

	assert.Equal(t, "deleteBookmark", req.Entries[0].DetailType)
	assert.Equal(t, map[string]any{"id": "1"}, decodeDetail(t, req))
}

func TestTemplate_EscapesValues(t *testing.T) {
	tmpl, err := NewTemplate(domain.CreateBookmark)
	require.NoError(t, err)

	nasty := &domain.Bookmark{
		ID:          `a"b`,
		Name:        `", "injected": "yes`,
		Description: "line\nbreak \\ backslash \u0000",
		URL:         `http://x/?q="}`,
	}
	req, err := tmpl.Render(Args{Task: nasty})
	require.NoError(t, err)

	detail := decodeDetail(t, req)
	assert.Len(t, detail, 4)
	assert.NotContains(t, detail, "injected")
	assert.Equal(t, nasty.ID, detail["id"])
	assert.Equal(t, nasty.Name, detail["name"])
	assert.Equal(t, nasty.Description, detail["description"])
	assert.Equal(t, nasty.URL, detail["url"])
}

func TestTemplate_CreateWithoutTask(t *testing.T) {
	tmpl, err := NewTemplate(domain.CreateBookmark)
	require.NoError(t, err)

	_, err = tmpl.Render(Args{TaskID: "1"})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestNewTemplate_InvalidKind(t *testing.T) {
	for _, kind := range []domain.MutationKind{0, 3, 255} {
		tmpl, err := NewTemplate(kind)
		assert.Nil(t, tmpl)
		assert.ErrorIs(t, err, domain.ErrInvalidMutationKind)
	}
}
