package handlers

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"github.com/lehigh-university-libraries/cardpress/internal/archive"
	"github.com/lehigh-university-libraries/cardpress/internal/journal"
	"github.com/lehigh-university-libraries/cardpress/internal/logging"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/pipeline"
	"github.com/lehigh-university-libraries/cardpress/internal/progress"
	"github.com/lehigh-university-libraries/cardpress/internal/records"
	"github.com/lehigh-university-libraries/cardpress/internal/session"
)

// acquire marks the session busy or writes the matching error response.
func (h *Handler) acquire(w http.ResponseWriter, r *http.Request, sessionID string) (models.Session, bool) {
	sess, ok := h.getSessionOrError(w, r, sessionID)
	if !ok {
		return sess, false
	}
	if err := h.sessionStore.Acquire(sessionID); err != nil {
		if errors.Is(err, session.ErrBusy) {
			h.writeError(w, r, "Session is busy", http.StatusConflict)
		} else {
			h.writeError(w, r, "Session not found", http.StatusNotFound)
		}
		return sess, false
	}
	return sess, true
}

func (h *Handler) fail(sessionID string, err error) {
	_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) {
		s.Status = models.StatusFailed
		s.Error = err.Error()
	})
	h.hub.Publish(progress.Event{Type: progress.EventError, SessionID: sessionID, Message: err.Error()})
}

// HandleGenerate renders every card of the uploaded spreadsheet and archives
// them, publishing progress as it goes.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	sess, ok := h.acquire(w, r, sessionID)
	if !ok {
		return
	}
	defer h.sessionStore.Release(sessionID)

	if sess.Input == "" {
		h.writeError(w, r, "No spreadsheet uploaded for this session", http.StatusBadRequest)
		return
	}

	log := logging.WithFields(r.Context(), "session_id", sessionID)
	_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) {
		s.Status = models.StatusRendering
		s.Error = ""
		s.Progress = nil
	})

	report := h.hub.Reporter(sessionID)
	onProgress := func(p models.Progress) {
		_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) { s.Progress = &p })
		report(p)
	}

	input := filepath.Join(sess.Dir, sess.Input)
	out, err := h.generator.Generate(r.Context(), input, h.workspace(sessionID), false, onProgress)
	if err != nil {
		log.Error("Card generation failed", "error", err)
		h.fail(sessionID, err)
		if out != nil {
			_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) {
				s.Cards = len(out.Cards)
				s.Dropped = out.Dropped
			})
		}
		h.writeError(w, r, "Card generation failed: "+err.Error(), generateStatus(err))
		return
	}

	name := filepath.Base(out.ArchivePath)
	_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) {
		s.Status = models.StatusRendered
		s.Cards = len(out.Cards)
		s.Dropped = out.Dropped
		s.Archive = name
		s.Journal = ""
	})
	h.hub.Publish(progress.Event{Type: progress.EventDone, SessionID: sessionID, File: name})

	log.Info("Cards generated", "cards", len(out.Cards), "dropped", len(out.Dropped), "archive", name)
	h.writeJSON(w, map[string]any{
		"success":   true,
		"zip_path":  fileURL(sessionID, name),
		"file_name": name,
		"cards":     len(out.Cards),
		"dropped":   out.Dropped,
	})
}

func generateStatus(err error) int {
	var ierr *records.InputError
	switch {
	case errors.As(err, &ierr), errors.Is(err, records.ErrUnsupportedFormat):
		return http.StatusBadRequest
	case errors.Is(err, archive.ErrNoCards):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// HandleCompose builds the journal from the session's rendered cards.
func (h *Handler) HandleCompose(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, ok := h.acquire(w, r, sessionID); !ok {
		return
	}
	defer h.sessionStore.Release(sessionID)

	log := logging.WithFields(r.Context(), "session_id", sessionID)
	_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) {
		s.Status = models.StatusComposing
		s.Error = ""
		s.Journal = ""
	})

	res, err := pipeline.Compose(r.Context(), h.cfg, h.workspace(sessionID))
	if err != nil {
		log.Error("Journal composition failed", "error", err)
		h.fail(sessionID, err)
		var ierr *journal.InputError
		code := http.StatusInternalServerError
		if errors.Is(err, journal.ErrNoCards) || errors.As(err, &ierr) {
			code = http.StatusUnprocessableEntity
		}
		h.writeError(w, r, "Journal composition failed: "+err.Error(), code)
		return
	}

	name := filepath.Base(res.Path)
	_, _ = h.sessionStore.Update(sessionID, func(s *models.Session) {
		s.Status = models.StatusComposed
		s.Journal = name
	})

	h.writeJSON(w, map[string]any{
		"success":      true,
		"journal_path": fileURL(sessionID, name),
		"file_name":    name,
		"pages":        len(res.Pages),
	})
}
