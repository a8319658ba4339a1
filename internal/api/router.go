package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/ping", PingHandler)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", app.StartRunHandler)
		r.Get("/", app.ListRunsHandler)
		r.Get("/{id}", app.GetRunHandler)
	})

	r.Route("/documents/{doc}/keyframes", func(r chi.Router) {
		r.Get("/", app.ListKeyframesHandler)
		r.Post("/prune", app.PruneKeyframesHandler)
		r.Get("/{name}", app.ServeKeyframeHandler)
	})

	return r
}
