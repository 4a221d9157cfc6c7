// Package handlers exposes the card pipeline over HTTP.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/lehigh-university-libraries/cardpress/internal/config"
	"github.com/lehigh-university-libraries/cardpress/internal/logging"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/pipeline"
	"github.com/lehigh-university-libraries/cardpress/internal/progress"
	"github.com/lehigh-university-libraries/cardpress/internal/render"
	"github.com/lehigh-university-libraries/cardpress/internal/session"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
)

type Handler struct {
	cfg          *config.Config
	sessionStore *session.Store
	hub          *progress.Hub
	generator    *pipeline.Generator
}

// New creates a handler whose sessions live under cfg.WorkDir.
func New(cfg *config.Config, engine render.Engine) *Handler {
	return &Handler{
		cfg:          cfg,
		sessionStore: session.New(cfg.WorkDir),
		hub:          progress.NewHub(),
		generator:    pipeline.NewGenerator(cfg, engine),
	}
}

// Response helpers
func (h *Handler) writeJSON(w http.ResponseWriter, data any) {
	h.writeJSONStatus(w, http.StatusOK, data)
}

func (h *Handler) writeJSONStatus(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, code int) {
	log := logging.FromContext(r.Context())
	if code >= http.StatusInternalServerError {
		log.Error(message, "status", code)
	} else {
		log.Warn(message, "status", code)
	}
	http.Error(w, message, code)
}

// Session helpers
func (h *Handler) getSessionOrError(w http.ResponseWriter, r *http.Request, sessionID string) (models.Session, bool) {
	sess, exists := h.sessionStore.Get(sessionID)
	if !exists {
		h.writeError(w, r, "Session not found", http.StatusNotFound)
		return models.Session{}, false
	}
	return sess, true
}

func (h *Handler) workspace(sessionID string) *workspace.Workspace {
	return pipeline.Workspace(h.cfg, h.sessionStore.CardsPath(sessionID))
}

func fileURL(sessionID, name string) string {
	return "/api/sessions/" + sessionID + "/files/" + name
}
