package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
)

const pingTimeout = 2 * time.Second

type readyzResponse struct {
	Ready      bool              `json:"ready"`
	Components map[string]string `json:"components"`
}

// Readyz reports ready only when both the bus backend and the store answer.
func Readyz(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		resp := readyzResponse{Ready: true, Components: map[string]string{}}
		for name, p := range map[string]deps.Pinger{"redis": d.Redis, "store": d.Store} {
			status := ping(ctx, p)
			resp.Components[name] = status
			if status != "ok" {
				resp.Ready = false
			}
		}

		status := http.StatusOK
		if !resp.Ready {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, resp)
	}
}

func ping(ctx context.Context, p deps.Pinger) string {
	if p == nil {
		return "not initialized"
	}
	if err := p.Ping(ctx); err != nil {
		return err.Error()
	}
	return "ok"
}
