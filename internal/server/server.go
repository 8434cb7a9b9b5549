// Package server coordinates live trivia sessions: it owns the per-room
// state machine, the websocket fan-out, and the startup recovery protocol.
// All authoritative state lives in the store; in-process memory only routes
// connections.
package server

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/julienschmidt/httprouter"

	"github.com/seanmcgon/McTrivia/internal/config"
	"github.com/seanmcgon/McTrivia/internal/store"
)

type Server struct {
	store    *store.Store
	hub      *hub
	cfg      config.Config
	validate *validator.Validate
	client   *http.Client
}

func New(st *store.Store, cfg config.Config) *Server {
	return &Server{
		store:    st,
		hub:      newHub(),
		cfg:      cfg,
		validate: validator.New(),
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Server) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/healthz", s.handleHealth)
	router.GET("/qr/:code", s.handleQR)
	router.HandlerFunc(http.MethodGet, "/ws", s.handleWebsocket)
	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "state store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
