package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/cardpress/internal/session"
)

func (h *Handler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.sessionStore.GetAll())
}

func (h *Handler) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.getSessionOrError(w, r, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	h.writeJSON(w, sess)
}

func (h *Handler) HandleSessionDelete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if err := h.sessionStore.Delete(sessionID); err != nil {
		switch {
		case errors.Is(err, session.ErrNotFound):
			h.writeError(w, r, "Session not found", http.StatusNotFound)
		case errors.Is(err, session.ErrBusy):
			h.writeError(w, r, "Session is busy", http.StatusConflict)
		default:
			h.writeError(w, r, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	h.hub.Forget(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// HandleProgress streams the session's render progress over a websocket.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, ok := h.getSessionOrError(w, r, sessionID); !ok {
		return
	}
	h.hub.ServeWS(w, r, sessionID)
}
