package bus

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/bookmarks/internal/events"
)

func TestClient_PutEvents(t *testing.T) {
	var gotHeaders http.Header
	var gotBody events.PutEventsRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"FailedEntryCount":0,"Entries":[{"EventId":"e1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	res, err := c.PutEvents(context.Background(), events.PutEventsRequest{
		Entries: []events.PutEventsEntry{entry("deleteBookmark", `{"id":"1"}`)},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"FailedEntryCount":0,"Entries":[{"EventId":"e1"}]}`, string(res.Body))
	assert.Equal(t, events.ContentType, gotHeaders.Get("Content-Type"))
	assert.Equal(t, events.PutEventsTarget, gotHeaders.Get(events.TargetHeader))
	require.Len(t, gotBody.Entries, 1)
	assert.Equal(t, `{"id":"1"}`, gotBody.Entries[0].Detail)
}

func TestClient_NonSuccessIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`boom`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, time.Second).PutEvents(context.Background(), events.PutEventsRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
	assert.Equal(t, "boom", string(res.Body))
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, time.Second).PutEvents(context.Background(), events.PutEventsRequest{})

	var pe *events.PublishError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ErrTypeNetwork, pe.Type)

	out := events.Translate(nil, err)
	assert.Equal(t, ErrTypeNetwork, out.Error.Type)
}
