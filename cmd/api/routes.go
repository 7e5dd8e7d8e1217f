package main

import (
	"expvar"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

func (app *application) routes() http.Handler {
	router := chi.NewRouter()

	// Router
	router.NotFound(app.notFoundResponse)
	router.MethodNotAllowed(app.methodNotAllowedRequest)

	// Middleware
	router.Use(app.metrics)
	router.Use(app.recoverPanic)
	router.Use(cors.Handler(cors.Options{
		AllowOriginFunc: func(r *http.Request, origin string) bool {
			return slices.Contains(app.config.cors.trustedOrigins, origin)
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         60,
	}))
	router.Use(app.rateLimit)
	router.Use(app.authenticate)

	// Healthcheck
	router.Get("/v1/healthcheck", app.HealthCheck)
	router.Method(http.MethodGet, "/v1/metrics", app.prom.Handler())
	router.Method(http.MethodGet, "/v1/debug/vars", expvar.Handler())

	// User Endpoints
	router.Post("/v1/users/login", app.LoginUser)

	// Player Endpoints
	router.Route("/v1/players", func(router chi.Router) {
		router.Get("/", app.SearchPlayers)
		router.Get("/{id}", app.GetPlayer)
		router.Get("/{id}/games", app.GetPlayerGames)

		router.Group(func(router chi.Router) {
			router.Use(app.requireAdmin)
			router.Post("/", app.InsertPlayer)
			router.Patch("/{id}", app.UpdatePlayer)
			router.Delete("/{id}", app.DeletePlayer)
		})
	})

	// Game Endpoints
	router.Route("/v1/games", func(router chi.Router) {
		router.Get("/{id}", app.GetGame)
		router.Get("/{id}/watch", app.WatchGame)

		router.Group(func(router chi.Router) {
			router.Use(app.requireAdmin)
			router.Post("/", app.InsertGame)
			router.Patch("/{id}", app.UpdateGame)
			router.Post("/{id}/events", app.AddGameEvent)
			router.Patch("/{id}/finish", app.FinishGame)
			router.Patch("/{id}/cancel", app.CancelGame)
		})
	})

	return router
}
