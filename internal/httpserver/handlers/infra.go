package handlers

import (
	"context"
	"net/http"

	"github.com/MrSnakeDoc/bookmarks/internal/bus"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
)

type storeStatus struct {
	OK     bool   `json:"ok"`
	Driver string `json:"driver"`
	Table  string `json:"table"`
	Error  string `json:"error,omitempty"`
}

type busStatus struct {
	OK    bool       `json:"ok"`
	Rules []string   `json:"rules"`
	Stats *bus.Stats `json:"stats,omitempty"`
	Error string     `json:"error,omitempty"`
}

type infraResponse struct {
	Mode  string      `json:"mode"`
	Store storeStatus `json:"store"`
	Bus   busStatus   `json:"bus"`
}

// Infra describes the pipeline: store backend, bus backlog and routing rules.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		store := storeStatus{Driver: d.StoreDriver, Table: d.Table}
		if msg := ping(ctx, d.Store); msg == "ok" {
			store.OK = true
		} else {
			store.Error = msg
		}

		resp := infraResponse{
			Store: store,
			Bus:   checkBus(ctx, d),
		}
		resp.Mode = determineMode(resp)

		writeJSON(w, http.StatusOK, resp)
	}
}

func checkBus(ctx context.Context, d deps.Deps) busStatus {
	if d.Bus == nil {
		return busStatus{Error: "bus not initialized"}
	}

	status := busStatus{Rules: []string{}}
	for _, rule := range d.Bus.Rules() {
		status.Rules = append(status.Rules, rule.Name)
	}

	stats, err := d.Bus.Stats(ctx)
	if err != nil {
		status.Error = err.Error()
		return status
	}

	status.OK = true
	status.Stats = &stats
	return status
}

// determineMode: a down bus loses mutations, a down store only delays them.
func determineMode(resp infraResponse) string {
	switch {
	case !resp.Bus.OK:
		return "critical"
	case !resp.Store.OK:
		return "degraded"
	default:
		return "operational"
	}
}
