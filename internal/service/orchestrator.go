// Package service contains the prompt orchestrator: it assembles the prompt
// for each ask, invokes the model once, and keeps the conversation store and
// cost ledger consistent with that call.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/contextstore"
	"github.com/ouf-ai/ouf-gateway/internal/domain"
	"github.com/ouf-ai/ouf-gateway/internal/llm"
	"github.com/ouf-ai/ouf-gateway/internal/storage"
)

// historyWindow caps how many prior messages are replayed into the prompt.
const historyWindow = 10

// Upload is a file attached to an ask request.
type Upload struct {
	Name    string
	Content []byte
}

// AskRequest carries one orchestrated request. Identity is nil for master
// admissions, which bypass metering.
type AskRequest struct {
	Message        string
	Upload         *Upload
	ConversationID string
	Identity       *domain.APIKey
}

// AskResponse is the orchestrator's result.
type AskResponse struct {
	Answer         string
	Costs          domain.CostMetrics
	ConversationID string
}

// Service orchestrates prompt assembly and the bookkeeping around each
// completion call.
type Service struct {
	store     storage.Storage
	contexts  *contextstore.Store
	completer llm.Completer
	logger    *zap.Logger
}

// New creates the orchestrator.
func New(store storage.Storage, contexts *contextstore.Store, completer llm.Completer, logger *zap.Logger) *Service {
	return &Service{store: store, contexts: contexts, completer: completer, logger: logger}
}

// Ask runs the full request cycle: resolve the conversation, load the
// identity's durable context, assemble the prompt, call the model once, then
// record cost and append the new turn.
//
// No store writes happen before the completion succeeds, so a failed or
// cancelled call leaves neither a conversation nor a cost record. The cost
// record and the conversation append afterwards are two independent critical
// sections, not one transaction: a crash between them can leave cost recorded
// without the matching turn (or the reverse). That gap is accepted.
func (s *Service) Ask(ctx context.Context, req AskRequest) (*AskResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is required", domain.ErrInvalidInput)
	}
	if req.Upload != nil {
		// Upload intake filters before the core is invoked; this re-check is
		// defensive.
		if !contextstore.IsMarkdownName(req.Upload.Name) {
			return nil, fmt.Errorf("%w: only markdown files are supported", domain.ErrInvalidFormat)
		}
		if len(req.Upload.Content) > contextstore.MaxDocumentSize {
			return nil, domain.ErrPayloadTooLarge
		}
	}

	conv, isNew, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	var contextText string
	if req.Identity != nil {
		contextText, err = s.contexts.LoadAll(ctx, req.Identity.ID)
		if err != nil {
			return nil, err
		}
	}

	prompt := assemblePrompt(contextText, conv, req.Message)

	completion, err := s.completer.Complete(ctx, prompt)
	if err != nil {
		return nil, err
	}

	costs := computeCosts(completion.InputTokens, completion.OutputTokens)

	if isNew {
		if err := s.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("%w: creating conversation: %v", domain.ErrInternal, err)
		}
	}

	if req.Identity != nil {
		entry := domain.CostEntry{
			Timestamp:      time.Now(),
			CostMetrics:    costs,
			Message:        req.Message,
			ConversationID: conv.ID,
		}
		if err := s.store.RecordCost(ctx, req.Identity.ID, entry); err != nil {
			return nil, fmt.Errorf("%w: recording cost: %v", domain.ErrInternal, err)
		}
	}

	// User message first, then the assistant's, each timestamped at append.
	now := time.Now()
	err = s.store.AppendMessages(ctx, conv.ID,
		domain.Message{Role: domain.RoleUser, Content: req.Message, Timestamp: now},
		domain.Message{Role: domain.RoleAssistant, Content: completion.Text, Timestamp: time.Now()},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: appending messages: %v", domain.ErrInternal, err)
	}

	return &AskResponse{
		Answer:         completion.Text,
		Costs:          costs,
		ConversationID: conv.ID,
	}, nil
}

// resolveConversation fetches the referenced thread, or prepares a new one
// seeded with the upload. An unknown id from a stale client degrades to a new
// thread rather than an error. New threads are not persisted here; they are
// written only after the completion succeeds.
func (s *Service) resolveConversation(ctx context.Context, req AskRequest) (conv *domain.Conversation, isNew bool, err error) {
	if req.ConversationID != "" {
		conv, err := s.store.GetConversation(ctx, req.ConversationID)
		if err == nil {
			return conv, false, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, false, fmt.Errorf("%w: loading conversation: %v", domain.ErrInternal, err)
		}
		s.logger.Warn("unknown conversation id, starting new thread",
			zap.String("conversation_id", req.ConversationID))
	}

	now := time.Now()
	conv = &domain.Conversation{
		ID:        uuid.New().String(),
		Messages:  []domain.Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if req.Upload != nil {
		conv.FileName = req.Upload.Name
		conv.FileContent = string(req.Upload.Content)
	}
	return conv, true, nil
}

// assemblePrompt concatenates, in fixed order: durable context, the thread's
// seed file, the last messages of history oldest-first, and the current ask.
// Durable context leads and the current question comes last of all.
func assemblePrompt(contextText string, conv *domain.Conversation, message string) string {
	var parts []string

	if contextText != "" {
		parts = append(parts, contextText)
	}
	if conv.FileContent != "" {
		parts = append(parts, conv.FileContent)
	}

	history := conv.Messages
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, msg := range history {
		parts = append(parts, fmt.Sprintf("%s: %s", msg.Role, msg.Content))
	}

	parts = append(parts, message)
	return strings.Join(parts, "\n\n")
}
