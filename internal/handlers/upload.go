package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/cardpress/internal/logging"
	"github.com/lehigh-university-libraries/cardpress/internal/models"
	"github.com/lehigh-university-libraries/cardpress/internal/records"
	"github.com/lehigh-university-libraries/cardpress/internal/session"
	"github.com/lehigh-university-libraries/cardpress/internal/workspace"
)

// HandleUpload stores a record spreadsheet in a new or existing session.
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.cfg.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			h.writeError(w, r, "File too large", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, r, "Failed to read upload: "+err.Error(), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.writeError(w, r, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	fileName := filepath.Base(filepath.Clean("/" + header.Filename))
	if !records.Supported(fileName) {
		h.writeError(w, r, "Unsupported file type; expected one of "+strings.Join(records.SupportedExtensions(), ", "), http.StatusBadRequest)
		return
	}

	sessionID := strings.TrimSpace(r.FormValue("session_id"))
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if _, err := h.sessionStore.Create(sessionID); err != nil {
		if errors.Is(err, session.ErrInvalidID) {
			h.writeError(w, r, err.Error(), http.StatusBadRequest)
			return
		}
		h.writeError(w, r, "Failed to create session: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.sessionStore.Acquire(sessionID); err != nil {
		h.writeError(w, r, "Session is busy", http.StatusConflict)
		return
	}
	defer h.sessionStore.Release(sessionID)

	dest := filepath.Join(h.sessionStore.Dir(sessionID), fileName)
	if err := workspace.WriteFileAtomic(dest, func(out io.Writer) error {
		_, err := io.Copy(out, file)
		return err
	}); err != nil {
		h.writeError(w, r, "Failed to store upload: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if _, err := h.sessionStore.Update(sessionID, func(s *models.Session) {
		s.Input = fileName
		s.Status = models.StatusUploaded
		s.Error = ""
	}); err != nil {
		h.writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}

	logging.FromContext(r.Context()).Info("Upload stored", "session_id", sessionID, "file", fileName, "bytes", header.Size)
	h.writeJSON(w, map[string]any{
		"session_id": sessionID,
		"file_name":  fileName,
	})
}
