// Package webhook exposes the HTTP surface: generic inbound messages, a
// manual tick trigger, and a small read API for inspecting conversations.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/parleyhq/parley/internal/domain"
	"github.com/parleyhq/parley/internal/intake"
	"github.com/parleyhq/parley/internal/repository"
)

// Processor triggers a processing sweep. Implemented by the engine.
type Processor interface {
	Tick(ctx context.Context) error
}

// Server is a lightweight HTTP handler for the webhook endpoints.
type Server struct {
	intake    *intake.Service
	processor Processor
	store     *repository.Store
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewServer creates the webhook server.
func NewServer(svc *intake.Service, processor Processor, store *repository.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		intake:    svc,
		processor: processor,
		store:     store,
		logger:    logger,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /inbound", s.handleInbound)
	s.mux.HandleFunc("POST /tick", s.handleTick)
	s.mux.HandleFunc("GET /api/conversations/", s.handleConversation)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// inboundRequest is the JSON body for POST /inbound.
type inboundRequest struct {
	OrganizationID string `json:"organization_id"`
	ChannelKey     string `json:"channel_key"`
	Text           string `json:"text"`
}

func (s *Server) handleInbound(w http.ResponseWriter, r *http.Request) {
	var req inboundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.OrganizationID == "" || req.ChannelKey == "" || req.Text == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "organization_id, channel_key and text are required"})
		return
	}

	conv, err := s.intake.Receive(r.Context(),
		domain.OrganizationID(req.OrganizationID),
		domain.ChannelKey(req.ChannelKey),
		req.Text)
	if err != nil {
		s.logger.Error("inbound intake failed", "channel_key", req.ChannelKey, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"conversation_id": string(conv.ID)})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if err := s.processor.Tick(r.Context()); err != nil {
		s.logger.Error("manual tick failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleConversation serves GET /api/conversations/{id} and
// GET /api/conversations/{id}/messages.
func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/conversations/")
	id, rest, _ := strings.Cut(path, "/")
	if id == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}

	switch rest {
	case "":
		conv, err := s.store.Conversations.Get(r.Context(), domain.ConversationID(id))
		if errors.Is(err, domain.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "conversation not found"})
			return
		}
		if err != nil {
			s.logger.Error("conversation read failed", "conversation_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		writeJSON(w, http.StatusOK, conv)

	case "messages":
		msgs, err := s.store.Messages.List(r.Context(), domain.ConversationID(id))
		if err != nil {
			s.logger.Error("messages read failed", "conversation_id", id, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)

	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
