package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/Keekuun/nexus-studio-sub001/internal/comment"
	"github.com/Keekuun/nexus-studio-sub001/internal/thread"
)

const maxBodyBytes = 1 << 20

// Error messages returned to clients.
const (
	msgMissingFields  = "Missing nodeId or content"
	msgInvalidBody    = "Invalid request body"
	msgNotFound       = "Comment not found"
	msgInternalServer = "Internal Server Error"
)

// CreateCommentRequest is the request body for creating a comment.
type CreateCommentRequest struct {
	NodeID  string          `json:"nodeId"`
	Content string          `json:"content"`
	Author  *comment.Author `json:"author,omitempty"`
}

// handleListComments handles GET /comments[?nodeId={id}].
// With a nodeId it returns that node's comments, otherwise the whole mapping.
func (s *Server) handleListComments(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("nodeId")

	if nodeID == "" {
		threads, err := s.service.ListAll(r.Context())
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, msgInternalServer)

			return
		}

		writeJSON(w, r, http.StatusOK, threads)

		return
	}

	comments, err := s.service.List(r.Context(), nodeID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, msgInternalServer)

		return
	}

	writeJSON(w, r, http.StatusOK, comments)
}

// handleCreateComment handles POST /comments.
func (s *Server) handleCreateComment(w http.ResponseWriter, r *http.Request) {
	var req CreateCommentRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidBody)

		return
	}

	if strings.TrimSpace(req.NodeID) == "" || strings.TrimSpace(req.Content) == "" {
		writeError(w, r, http.StatusBadRequest, msgMissingFields)

		return
	}

	c, err := s.service.Create(r.Context(), thread.CreateInput{
		NodeID:  req.NodeID,
		Content: req.Content,
		Author:  req.Author,
	})
	if err != nil {
		if errors.Is(err, comment.ErrValidation) {
			writeError(w, r, http.StatusBadRequest, err.Error())

			return
		}

		writeError(w, r, http.StatusInternalServerError, msgInternalServer)

		return
	}

	writeJSON(w, r, http.StatusOK, c)
}

// handleCommentByID handles GET /comments/{id}.
func (s *Server) handleCommentByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, r, http.StatusMethodNotAllowed, "Method Not Allowed")

		return
	}

	id := extractID(r.URL.Path, "/comments/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, msgNotFound)

		return
	}

	c, err := s.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, msgNotFound)

			return
		}

		writeError(w, r, http.StatusInternalServerError, msgInternalServer)

		return
	}

	writeJSON(w, r, http.StatusOK, c)
}

// extractID extracts the trailing ID from a URL path.
func extractID(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}

	id := strings.TrimPrefix(path, prefix)
	if strings.Contains(id, "/") {
		return ""
	}

	return id
}
