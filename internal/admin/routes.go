// Package admin serves the approval-management pages.
package admin

import (
	"net/http"

	"github.com/EmpoweredVote/collective-backend/internal/approval"
	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/go-chi/chi/v5"
)

func SetupRoutes(s store.Store) http.Handler {
	h := &Handler{Store: s, Approval: approval.NewService(s)}
	r := chi.NewRouter()

	r.Use(middleware.AdminMiddleware(s))
	r.Get("/", h.Dashboard)
	r.Post("/users/{id}/{action}", h.Action)

	return r
}
