package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
)

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(recoveryMiddleware)
	r.Use(loggingMiddleware)
	r.Use(securityHeadersMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/decks", func(r chi.Router) {
		r.Get("/", s.handleListDecks)
		r.Post("/", s.handleCreateDeck)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetDeck)
			r.Patch("/", s.handleUpdateDeck)
			r.Delete("/", s.handleDeleteDeck)
			r.Get("/stats", s.handleDeckStats)
			r.Get("/cards", s.handleListCards)
			r.Post("/cards", s.handleCreateCard)
			r.Get("/sessions", s.handleListSessions)
			r.Post("/sessions", s.handleStartSession)
		})
	})

	r.Route("/cards/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetCard)
		r.Patch("/", s.handleUpdateCard)
		r.Delete("/", s.handleDeleteCard)
		r.Post("/reset", s.handleResetCard)
		r.Get("/stats", s.handleCardStats)
	})

	r.Route("/sessions/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Get("/next", s.handleNextCard)
		r.Post("/reviews", s.handleReview)
		r.Post("/end", s.handleEndSession)
		r.Get("/stats", s.handleSessionStats)
	})

	return cors.New(cors.Options{
		AllowedOrigins: s.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Accept", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         86400,
	}).Handler(r)
}
