package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/ouf-ai/ouf-gateway/internal/api/middleware"
	"github.com/ouf-ai/ouf-gateway/internal/contextstore"
	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

// ContextFileHandler manages the markdown documents in an identity's context
// namespace. All routes require a resolved identity; master admissions have
// no namespace of their own.
type ContextFileHandler struct {
	contexts *contextstore.Store
}

// NewContextFileHandler creates a new ContextFileHandler.
func NewContextFileHandler(contexts *contextstore.Store) *ContextFileHandler {
	return &ContextFileHandler{contexts: contexts}
}

// identity resolves the admitted identity or reports why it cannot.
func identity(r *http.Request) (*domain.APIKey, error) {
	key := middleware.IdentityFromContext(r.Context())
	if key == nil {
		return nil, fmt.Errorf("%w: an identity key is required for context files", domain.ErrUnauthorized)
	}
	return key, nil
}

// List lists the markdown documents in the identity's namespace.
func (h *ContextFileHandler) List(w http.ResponseWriter, r *http.Request) {
	key, err := identity(r)
	if err != nil {
		handleError(w, err)
		return
	}

	files, err := h.contexts.List(r.Context(), key.ID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"id":    key.ID,
		"files": files,
	})
}

// Upload stores a markdown document, replacing any document with the same
// name.
func (h *ContextFileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key, err := identity(r)
	if err != nil {
		handleError(w, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, askBodyLimit)
	if err := r.ParseMultipartForm(askBodyLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			handleError(w, domain.ErrPayloadTooLarge)
			return
		}
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read upload")
		return
	}

	replaced, err := h.contexts.Put(r.Context(), key.ID, header.Filename, content)
	if err != nil {
		handleError(w, err)
		return
	}

	message := "Context file uploaded successfully"
	if replaced {
		message = "Context file updated successfully"
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"message":  message,
		"filename": header.Filename,
		"replaced": replaced,
	})
}

type deleteFileRequest struct {
	Filename string `json:"filename"`
}

// Delete removes a document from the namespace.
func (h *ContextFileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	key, err := identity(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req deleteFileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.contexts.Delete(r.Context(), key.ID, req.Filename); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message":  "Context file deleted successfully",
		"filename": req.Filename,
	})
}

type downloadFileRequest struct {
	Filename string `json:"filename"`
}

// Download returns a document as a markdown attachment.
func (h *ContextFileHandler) Download(w http.ResponseWriter, r *http.Request) {
	key, err := identity(r)
	if err != nil {
		handleError(w, err)
		return
	}

	var req downloadFileRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	content, err := h.contexts.Get(r.Context(), key.ID, req.Filename)
	if err != nil {
		handleError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", req.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write(content)
}
