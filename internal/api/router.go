package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// A non-empty token enforces Bearer authentication on every route.
func NewRouter(h *Handler, token string) chi.Router {
	r := chi.NewRouter()
	r.Use(AuthMiddleware(token))

	r.Route("/decks", func(r chi.Router) {
		r.Get("/", h.ListDecks)
		r.Post("/", h.CreateDeck)
		r.Route("/{deckID}", func(r chi.Router) {
			r.Get("/", h.GetDeck)
			r.Put("/", h.UpdateDeck)
			r.Delete("/", h.DeleteDeck)
			r.Get("/cards", h.ListCards)
			r.Post("/cards", h.CreateCard)
			r.Get("/study", h.StudyQueue)
			r.Get("/stats", h.DeckStats)
		})
	})

	r.Route("/cards/{cardID}", func(r chi.Router) {
		r.Get("/", h.GetCard)
		r.Put("/", h.UpdateCard)
		r.Delete("/", h.DeleteCard)
		r.Post("/review", h.ReviewCard)
	})

	r.Get("/sources", h.ListSources)
	r.Post("/sources", h.CreateSource)
	r.Delete("/sources/{sourceID}", h.DeleteSource)
	r.Post("/sync", h.Sync)

	return r
}
