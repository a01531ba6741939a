package handlers

import (
	"net/http"

	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

// Reload triggers a manual import of the seed bookmarks file
func Reload(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.SeedTrigger == nil {
			reply(w, d, http.StatusNotFound, "🚫 Seeding is disabled (BOOKMARKS_SEED_FILE not set)\n")
			return
		}

		select {
		case d.SeedTrigger <- struct{}{}:
			d.Logger.Info("manual bookmark seed triggered via endpoint",
				logger.String("remote_ip", r.RemoteAddr))
			reply(w, d, http.StatusAccepted, "✅ Reload triggered successfully\n")
		default:
			d.Logger.Warn("bookmark seed already in progress",
				logger.String("remote_ip", r.RemoteAddr))
			reply(w, d, http.StatusTooManyRequests, "⏳ Reload already in progress, please wait\n")
		}
	}
}

func reply(w http.ResponseWriter, d deps.Deps, status int, msg string) {
	w.WriteHeader(status)
	if _, err := w.Write([]byte(msg)); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}
