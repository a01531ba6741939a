package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarks/internal/domain"
	"github.com/MrSnakeDoc/bookmarks/internal/events"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

const maxMutationBytes = 64 << 10

// Mutation serves POST /mutations/{mutation}. Arguments are checked here,
// before anything is published; the reply is the translated publish result.
func Mutation(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "mutation")
		kind, err := domain.ParseMutationKind(name)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, events.Result{Error: &events.Error{
				Message: fmt.Sprintf("unknown mutation %q", name),
				Type:    events.ErrTypeUnknownMutation,
			}})
			return
		}

		var args events.Args
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMutationBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&args); err != nil {
			writeJSON(w, http.StatusBadRequest, validationError("invalid request body: "+err.Error()))
			return
		}

		if msg := validateArgs(kind, args); msg != "" {
			writeJSON(w, http.StatusBadRequest, validationError(msg))
			return
		}

		res := d.Resolver.Resolve(r.Context(), kind, args)
		if res.OK() {
			writeJSON(w, http.StatusOK, res)
			return
		}

		status := http.StatusBadGateway
		switch res.Error.Type {
		case events.ErrTypeValidation, events.ErrTypeUnknownMutation:
			status = http.StatusBadRequest
		}

		d.Logger.Debug("mutation rejected",
			logger.String("mutation", name),
			logger.String("error_type", res.Error.Type),
			logger.Int("status", status))
		writeJSON(w, status, res)
	}
}

func validateArgs(kind domain.MutationKind, args events.Args) string {
	switch kind {
	case domain.CreateBookmark:
		if args.Task == nil {
			return "task is required"
		}
		if args.Task.ID == "" {
			return "task.id is required"
		}
	case domain.DeleteBookmark:
		if args.TaskID == "" {
			return "taskId is required"
		}
	}
	return ""
}

func validationError(msg string) events.Result {
	return events.Result{Error: &events.Error{Message: msg, Type: events.ErrTypeValidation}}
}
