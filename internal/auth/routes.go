package auth

import (
	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/go-chi/chi/v5"
)

// Routes registers the sign-in surface at the top level so the gate can
// classify /login and /register.
func Routes(h *Handler, limiter *middleware.RateLimiter) func(chi.Router) {
	return func(r chi.Router) {
		r.Get("/login", h.LoginPage)
		r.Get("/register", h.RegisterPage)
		r.With(limiter.Middleware).Post("/login", h.Login)
		r.With(limiter.Middleware).Post("/register", h.Register)
		r.Post("/logout", h.Logout)
		r.With(middleware.RequireSession).Get("/me", h.Me)
	}
}
