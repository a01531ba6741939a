package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

const maxEventsBytes = 256 << 10

type busError struct {
	Type    string `json:"__type"`
	Message string `json:"message"`
}

// PutEvents serves POST /events, the HTTP face of the bus.
func PutEvents(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if target := r.Header.Get(events.TargetHeader); target != events.PutEventsTarget {
			writeBusError(w, http.StatusBadRequest, "UnknownOperationException", "unsupported operation "+target)
			return
		}

		var req events.PutEventsRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxEventsBytes)).Decode(&req); err != nil {
			writeBusError(w, http.StatusBadRequest, "SerializationException", err.Error())
			return
		}

		res, err := d.Bus.PutEvents(r.Context(), req)
		if err != nil {
			errType := "InternalException"
			var pe *events.PublishError
			if errors.As(err, &pe) {
				errType = pe.Type
			}
			d.Logger.Error("bus rejected PutEvents", logger.Error(err))
			writeBusError(w, http.StatusServiceUnavailable, errType, err.Error())
			return
		}

		w.Header().Set("Content-Type", events.ContentType)
		w.WriteHeader(res.StatusCode)
		if _, err := w.Write(res.Body); err != nil {
			d.Logger.Debug("failed to write response", logger.Error(err))
		}
	}
}

func writeBusError(w http.ResponseWriter, status int, errType, msg string) {
	w.Header().Set("Content-Type", events.ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(busError{Type: errType, Message: msg})
}
