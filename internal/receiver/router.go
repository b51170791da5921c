package receiver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ovpnkeys/ovpnkeys/internal/receiver/middleware"
)

// NewRouter creates a Chi router serving h.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Health)
	r.Get("/crl", h.Latest)

	// Uploads go to the root; other methods get the upload error message.
	r.HandleFunc("/", h.Upload)

	return r
}
