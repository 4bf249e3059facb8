package members

import (
	"net/http"

	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(s store.Store) http.Handler {
	h := &Handler{Store: s}
	r := chi.NewRouter()

	r.Get("/", h.Dashboard)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireApproved(s))
		r.Get("/content/{id}", h.ContentDetail)
		r.Post("/content/{id}/like", h.ToggleLike)
		r.Post("/content/{id}/comments", h.PostComment)
	})

	return r
}
