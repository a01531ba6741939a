package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/deps"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/bookmarks/internal/httpserver/mw"
)

func init() { Register(registerMutation) }

func registerMutation(r chi.Router, d deps.Deps) {
	limit := mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateBurst,
		RefillPerIPPerMin: d.RatePerMin,
		MaxEntries:        10_000,
		TrustProxy:        d.TrustProxy,
	})
	r.With(mw.EnforceHost(d.AllowedHosts, d.Logger), limit).Post("/mutations/{mutation}", handlers.Mutation(d))
}
