/*
Package handler provides the HTTP handlers and routing setup for the popx account server.

This file defines the main Router, applying middleware for CORS, request ids, real client
addresses, request logging and panic recovery before delegating to the account handlers.
Protected routes sit behind the bearer-token check.
*/
package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"popx/internal/app/storage"
	"popx/internal/pkg/auth/jwt"
	"popx/internal/pkg/logx"
	"popx/internal/pkg/resp"
)

const serviceName = "popx API"

// Router sets up the main HTTP routing table (chi.Router) for the application.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   corsAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"WWW-Authenticate"},
		AllowCredentials: true,
		MaxAge:           300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(serviceName + " is running\n"))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		logx.Ctx(r.Context()).Debug().Msg("Health check endpoint hit")

		resp.RespondSuccess(w, r, map[string]string{
			"status":      "ok",
			"service":     serviceName,
			"timestamp":   deps.now().UTC().Format(time.RFC3339),
			"environment": deps.Config.Environment,
		})
	})

	if disk, ok := deps.StorageService.(*storage.DiskStore); ok {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadsHandler(disk.Dir())))
	}

	r.Route("/users", func(users chi.Router) {
		users.Post("/register", HandleRegister(deps))
		users.Post("/login", HandleLogin(deps))

		users.Group(func(protected chi.Router) {
			protected.Use(jwt.RequireAuth(deps.Tokens))

			protected.Get("/me", HandleMe(deps))
			protected.Put("/profile", HandleUpdateProfile(deps))
		})
	})

	return r
}

// uploadsHandler serves stored avatars read-only. Directory listings and dot files are hidden.
func uploadsHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := r.URL.Path
		if name == "" || strings.HasSuffix(name, "/") || strings.HasPrefix(name, ".") || strings.Contains(name, "/.") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
