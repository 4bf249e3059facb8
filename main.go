package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/EmpoweredVote/collective-backend/internal/admin"
	"github.com/EmpoweredVote/collective-backend/internal/auth"
	"github.com/EmpoweredVote/collective-backend/internal/config"
	"github.com/EmpoweredVote/collective-backend/internal/db"
	"github.com/EmpoweredVote/collective-backend/internal/members"
	"github.com/EmpoweredVote/collective-backend/internal/middleware"
	"github.com/EmpoweredVote/collective-backend/internal/store"
	"github.com/EmpoweredVote/collective-backend/internal/utils"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func RootHandler(w http.ResponseWriter, r *http.Request) {
	_, signedIn := utils.GetUserIDFromContext(r.Context())
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"name":      "Collective",
		"signed_in": signedIn,
	})
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	fmt.Fprintln(w, "Server is up!")
}

func main() {
	_ = godotenv.Load(".env.local")
	cfg := config.LoadFromEnv()

	var (
		data     store.Store
		provider auth.SessionProvider
	)

	if err := cfg.Validate(); err != nil {
		if cfg.Production() {
			log.Fatalf("[main] configuration error: %v", err)
		}
		log.Printf("[main] %v; running without sign-in or data access", err)
		data = store.UnavailableStore{}
		provider = auth.Disabled{}
	} else {
		db.Connect(cfg.DatabaseURL)
		auth.Init()
		store.Init()

		gs := store.NewGormStore(db.DB)
		p := auth.NewProvider(auth.NewGormRepository(db.DB), gs, auth.Options{
			Secret: cfg.SessionSecret,
			TTL:    cfg.SessionTTL,
			Secure: cfg.Deployed,
		})
		p.Subscribe(func(e auth.Event) {
			log.Printf("[auth] %s user=%s", e.Kind, e.UserID)
		})
		data, provider = gs, p
	}

	authHandler := &auth.Handler{Provider: provider, Profiles: data}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.PeerAddr)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.AuthGate(provider))

	r.Get("/", RootHandler)
	r.Get("/healthz", HealthHandler)
	limiter := middleware.NewRateLimiter(cfg.LoginRatePerMin)
	if cfg.TrustProxy {
		limiter.TrustProxy()
	}
	r.Group(auth.Routes(authHandler, limiter))
	r.Mount("/dashboard", members.SetupRoutes(data))
	r.Mount("/admin", admin.SetupRoutes(data))

	log.Printf("Server listening on port :%s...", cfg.Port)
	if err := http.ListenAndServe("0.0.0.0:"+cfg.Port, r); err != nil {
		log.Fatal(err)
	}
}
