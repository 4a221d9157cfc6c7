package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// HandleDownload serves an artifact from the session's working directory.
// Names resolving outside that directory are refused.
func (h *Handler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "id")
	if _, ok := h.getSessionOrError(w, r, sessionID); !ok {
		return
	}

	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, "Invalid file name", http.StatusBadRequest)
		return
	}

	path, ok := containedPath(h.sessionStore.CardsPath(sessionID), name)
	if !ok {
		h.writeError(w, r, "Access denied", http.StatusForbidden)
		return
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			h.writeError(w, r, "File not found", http.StatusNotFound)
			return
		}
		h.writeError(w, r, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

// containedPath joins name onto root and reports whether the result stays
// strictly inside root.
func containedPath(root, name string) (string, bool) {
	if name == "" || strings.ContainsRune(name, 0) {
		return "", false
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", false
	}
	path := filepath.Join(absRoot, name)
	rel, err := filepath.Rel(absRoot, path)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return path, true
}
