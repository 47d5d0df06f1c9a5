package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Arnav112-l/Notepad/session"
)

// maxCreateBody bounds the initial document sent with a create request.
const maxCreateBody = 4 << 20

type createRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type createResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"sessionId"`
	ShareURL  string `json:"shareUrl"`
}

type sessionView struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Content     string `json:"content"`
	ActiveUsers int    `json:"activeUsers"`
}

type getResponse struct {
	Success bool        `json:"success"`
	Session sessionView `json:"session"`
}

// CollaborateHandler creates shareable sessions and serves their state.
type CollaborateHandler struct {
	manager   *session.Manager
	publicURL string
}

// NewCollaborateHandler creates the handler. An empty publicURL derives share
// links from each request.
func NewCollaborateHandler(manager *session.Manager, publicURL string) *CollaborateHandler {
	return &CollaborateHandler{
		manager:   manager,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// HandleCreate handles POST /api/collaborate/create
func (h *CollaborateHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	err := json.NewDecoder(io.LimitReader(r.Body, maxCreateBody)).Decode(&req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	snap, err := h.manager.Create(r.Context(), req.Title, req.Content)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}

	writeJSON(w, http.StatusOK, createResponse{
		Success:   true,
		SessionID: snap.ID,
		ShareURL:  h.baseURL(r) + "/collaborate/" + snap.ID,
	})
}

// HandleGet handles GET /api/collaborate/{sessionId}
func (h *CollaborateHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snap, err := h.manager.Get(r.PathValue("sessionId"))
	if err != nil {
		if !errors.Is(err, session.ErrSessionNotFound) {
			slog.Error("failed to get session", "error", err)
		}
		writeError(w, http.StatusNotFound, "Session not found or expired")
		return
	}

	writeJSON(w, http.StatusOK, getResponse{
		Success: true,
		Session: sessionView{
			ID:          snap.ID,
			Title:       snap.Title,
			Content:     snap.Content,
			ActiveUsers: snap.ActiveUsers,
		},
	})
}

func (h *CollaborateHandler) baseURL(r *http.Request) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + r.Host
}

// Register registers collaboration handlers to the given mux.
func (h *CollaborateHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/collaborate/create", h.HandleCreate)
	mux.HandleFunc("GET /api/collaborate/{sessionId}", h.HandleGet)
}
