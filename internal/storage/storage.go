package storage

import (
	"context"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

// Storage defines the interface for the persistence layer.
// Implementations must serialize read-modify-write cycles per entity family;
// each method is a single atomic unit from a reader's point of view.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// API keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyBySecret(ctx context.Context, secret string) (*domain.APIKey, error)
	GetAPIKeyByID(ctx context.Context, id string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error)
	ListAPIKeysByWallet(ctx context.Context, wallet string) ([]*domain.APIKey, error)
	RevokeAPIKey(ctx context.Context, secret string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error

	// Wallet signatures
	UpsertSignature(ctx context.Context, rec *domain.SignatureRecord) error
	GetSignature(ctx context.Context, wallet string) (*domain.SignatureRecord, error)

	// Conversations
	CreateConversation(ctx context.Context, conv *domain.Conversation) error
	GetConversation(ctx context.Context, id string) (*domain.Conversation, error)
	AppendMessages(ctx context.Context, id string, msgs ...domain.Message) error
	ListConversations(ctx context.Context) ([]*domain.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	// Cost ledger. RecordCost updates the identity slice and the global
	// accumulator as one unit; RemoveUserCosts subtracts the identity's
	// totals from the global accumulator before deleting the slice.
	RecordCost(ctx context.Context, keyID string, entry domain.CostEntry) error
	GetUserCosts(ctx context.Context, keyID string) (*domain.UserCosts, error)
	GetGlobalCosts(ctx context.Context) (*domain.GlobalCosts, error)
	ListCostUsers(ctx context.Context) ([]domain.UserCostSummary, error)
	RemoveUserCosts(ctx context.Context, keyID string) error
}
