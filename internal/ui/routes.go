package ui

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	// Public routes (no auth required).
	r.Get("/login", ui.HandleLogin)
	r.Post("/login", ui.HandleLoginPost)

	// Protected routes (auth required).
	r.Group(func(r chi.Router) {
		r.Use(ui.AuthMiddleware)

		r.Get("/", ui.HandleRunner)
		r.Get("/logout", ui.HandleLogout)

		r.Post("/select", ui.HandleSelect)
		r.Post("/run", ui.HandleRun)
		r.Post("/notices/{id}/dismiss", ui.HandleDismiss)

		r.Route("/results", func(r chi.Router) {
			r.Get("/actor_results.json", ui.HandleDownloadJSON)
			r.Get("/actor_results.csv", ui.HandleDownloadCSV)
		})

		r.Get("/history", ui.HandleHistory)

		// Live channel (websocket)
		r.Get("/live", ui.HandleLive)
	})
}
