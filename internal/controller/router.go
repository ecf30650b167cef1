package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)

	r.HandleFunc("/ws/create", c.createSession)
	r.HandleFunc("/ws/join/{session-id}", c.joinSession)

	r.Post("/api/sessions", c.createSessionApi)
	r.Get("/api/sessions/{session-id}", c.getSessionState)
	r.Delete("/api/sessions/{session-id}", c.deleteSession)

	return r
}
