package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Arnav112-l/Notepad/document"
)

const maxSaveBody = 16 << 20

type saveRequest struct {
	Content  string `json:"content"`
	Filename string `json:"filename"`
}

// DocumentHandler exposes the plain-file document store.
type DocumentHandler struct {
	store *document.Store
}

func NewDocumentHandler(store *document.Store) *DocumentHandler {
	return &DocumentHandler{store: store}
}

// HandleSave handles POST /api/save
func (h *DocumentHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSaveBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	doc, err := h.store.Save(r.Context(), req.Filename, req.Content)
	if err != nil {
		if errors.Is(err, document.ErrInvalidName) {
			writeError(w, http.StatusBadRequest, "Filename is required")
			return
		}
		slog.Error("failed to save document", "filename", req.Filename, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"message":   "Document saved successfully",
		"timestamp": doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// HandleLoad handles GET /api/load/{filename}
func (h *DocumentHandler) HandleLoad(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Load(r.Context(), r.PathValue("filename"))
	if err != nil {
		if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrInvalidName) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		slog.Error("failed to load document", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"content":  doc.Content,
		"filename": doc.Name,
	})
}

// HandleList handles GET /api/documents
func (h *DocumentHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.store.List(r.Context())
	if err != nil {
		slog.Error("failed to list documents", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list documents")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"documents": docs,
	})
}

// HandleDelete handles DELETE /api/delete/{filename}
func (h *DocumentHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), r.PathValue("filename")); err != nil {
		if errors.Is(err, document.ErrNotFound) || errors.Is(err, document.ErrInvalidName) {
			writeError(w, http.StatusNotFound, "Document not found")
			return
		}
		slog.Error("failed to delete document", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to delete document")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Document deleted successfully",
	})
}

// Register registers document handlers to the given mux.
func (h *DocumentHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/save", h.HandleSave)
	mux.HandleFunc("GET /api/load/{filename}", h.HandleLoad)
	mux.HandleFunc("GET /api/documents", h.HandleList)
	mux.HandleFunc("DELETE /api/delete/{filename}", h.HandleDelete)
}
