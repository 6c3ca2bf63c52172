package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/ouf-ai/ouf-gateway/internal/api/middleware"
	"github.com/ouf-ai/ouf-gateway/internal/contextstore"
	"github.com/ouf-ai/ouf-gateway/internal/domain"
	"github.com/ouf-ai/ouf-gateway/internal/service"
)

// askBodyLimit caps the whole request body: the document ceiling plus room
// for the other form fields.
const askBodyLimit = contextstore.MaxDocumentSize + 64<<10

// AskHandler handles the ask endpoint.
type AskHandler struct {
	svc *service.Service
}

// NewAskHandler creates a new AskHandler.
func NewAskHandler(svc *service.Service) *AskHandler {
	return &AskHandler{svc: svc}
}

type askUsage struct {
	Costs     domain.CostMetrics `json:"costs"`
	Timestamp time.Time          `json:"timestamp"`
}

type askResponse struct {
	Answer         string   `json:"answer"`
	Usage          askUsage `json:"usage"`
	ConversationID string   `json:"conversationId"`
}

// Ask accepts a question as multipart form data (message, optional markdown
// file, optional conversationId) or as a JSON body without a file.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, askBodyLimit)

	req, err := h.parseRequest(r)
	if err != nil {
		handleError(w, err)
		return
	}
	req.Identity = middleware.IdentityFromContext(r.Context())

	resp, err := h.svc.Ask(r.Context(), *req)
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, askResponse{
		Answer:         resp.Answer,
		Usage:          askUsage{Costs: resp.Costs, Timestamp: time.Now()},
		ConversationID: resp.ConversationID,
	})
}

func (h *AskHandler) parseRequest(r *http.Request) (*service.AskRequest, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var body struct {
			Message        string `json:"message"`
			ConversationID string `json:"conversationId"`
		}
		if err := decodeJSON(r, &body); err != nil {
			return nil, err
		}
		return &service.AskRequest{
			Message:        body.Message,
			ConversationID: body.ConversationID,
		}, nil
	}

	if err := r.ParseMultipartForm(askBodyLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, domain.ErrPayloadTooLarge
		}
		return nil, domain.ErrInvalidInput
	}

	req := &service.AskRequest{
		Message:        r.FormValue("message"),
		ConversationID: r.FormValue("conversationId"),
	}

	file, header, err := r.FormFile("file")
	if err == nil {
		defer file.Close()
		if !contextstore.IsMarkdownName(header.Filename) {
			return nil, domain.ErrInvalidFormat
		}
		if header.Size > contextstore.MaxDocumentSize {
			return nil, domain.ErrPayloadTooLarge
		}
		content, err := io.ReadAll(file)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		req.Upload = &service.Upload{Name: header.Filename, Content: content}
	} else if err != http.ErrMissingFile {
		return nil, domain.ErrInvalidInput
	}

	return req, nil
}
