package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates and returns the main HTTP router.
func NewRouter(ctrl Controller, btns Buttons, refresh Refresher, disp Display, bus EventBus, power PowerControl) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	h := &Handlers{
		ctrl:    ctrl,
		buttons: btns,
		refresh: refresh,
		display: disp,
		events:  bus,
		power:   power,
	}

	// Device state
	r.Get("/api", h.getState)
	r.Get("/api/", h.getState)
	r.Get("/api/info", h.getInfo)
	r.Patch("/api/settings", h.patchSettings)

	// Plugin instances
	r.Get("/api/plugins", h.getPlugins)
	r.Post("/api/plugins", h.createPlugin)
	r.Get("/api/plugins/{pid}", h.getPlugin)
	r.Patch("/api/plugins/{pid}", h.patchPlugin)
	r.Delete("/api/plugins/{pid}", h.deletePlugin)
	r.Post("/api/plugins/{pid}/display", h.displayPlugin)

	// Front panel buttons (simulation hook)
	r.Post("/api/buttons/{label}/press", h.pressButton)

	// Display preview
	r.Get("/api/display", h.getDisplay)

	// System power
	r.Post("/api/system/shutdown", h.shutdown)
	r.Post("/api/system/reboot", h.reboot)

	// SSE
	r.Get("/api/subscribe", h.sseEvents)

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
