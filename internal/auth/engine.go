// Package auth implements the admission decision for incoming requests.
//
// A request may present a bearer secret, a (context-id, wallet) pair, or a
// bare wallet address. Exactly one of three outcomes is produced: admit as
// master, admit as a resolved identity, or deny. Note that the
// (context-id, wallet) path is a capability-token pattern: it does not
// cryptographically prove the wallet controls the id.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
	"github.com/ouf-ai/ouf-gateway/internal/storage"
)

// Outcome is the admission result class.
type Outcome int

const (
	// OutcomeDeny rejects the request.
	OutcomeDeny Outcome = iota
	// OutcomeMaster admits with operator privilege; metering is bypassed.
	OutcomeMaster
	// OutcomeIdentity admits as a resolved API key.
	OutcomeIdentity
)

// Credentials are the authentication materials presented by a request.
type Credentials struct {
	Secret    string // bearer secret (x-api-key)
	ContextID string // identity id (x-context-id)
	Wallet    string // wallet address (x-wallet-address)
}

// Decision is the admission outcome. Key is set only for OutcomeIdentity.
type Decision struct {
	Outcome Outcome
	Key     *domain.APIKey
}

// Engine decides admission against the identity store.
type Engine struct {
	store     storage.Storage
	masterKey string
	logger    *zap.Logger
}

// NewEngine creates an admission engine.
func NewEngine(store storage.Storage, masterKey string, logger *zap.Logger) *Engine {
	return &Engine{store: store, masterKey: masterKey, logger: logger}
}

// Decide resolves the presented credentials to exactly one outcome. The
// decision order short-circuits: master secret, then bearer-secret lookup
// (an unknown secret denies, it does not fall through), then the
// capability-token pair, then newest active key for a bare wallet.
func (e *Engine) Decide(ctx context.Context, creds Credentials) (Decision, error) {
	if creds.Secret != "" {
		if e.masterKey != "" &&
			subtle.ConstantTimeCompare([]byte(creds.Secret), []byte(e.masterKey)) == 1 {
			return Decision{Outcome: OutcomeMaster}, nil
		}

		key, err := e.store.GetAPIKeyBySecret(ctx, creds.Secret)
		if errors.Is(err, domain.ErrNotFound) {
			return Decision{}, fmt.Errorf("%w: invalid API key", domain.ErrUnauthorized)
		}
		if err != nil {
			return Decision{}, fmt.Errorf("%w: looking up API key: %v", domain.ErrInternal, err)
		}
		if !key.IsActive {
			return Decision{}, fmt.Errorf("%w: invalid API key", domain.ErrUnauthorized)
		}

		// Refresh last-used timestamp (fire and forget).
		go func() {
			_ = e.store.UpdateAPIKeyLastUsed(context.Background(), key.ID)
		}()

		return Decision{Outcome: OutcomeIdentity, Key: key}, nil
	}

	if creds.ContextID != "" && creds.Wallet != "" {
		key, err := e.store.GetAPIKeyByID(ctx, creds.ContextID)
		if errors.Is(err, domain.ErrNotFound) {
			return Decision{}, fmt.Errorf("%w: invalid context id", domain.ErrUnauthorized)
		}
		if err != nil {
			return Decision{}, fmt.Errorf("%w: looking up context id: %v", domain.ErrInternal, err)
		}
		if !key.IsActive {
			return Decision{}, fmt.Errorf("%w: invalid context id", domain.ErrUnauthorized)
		}

		// Capability-token admission: the wallet header is not verified
		// against the key. Logged so usage of this path is auditable.
		e.logger.Info("admitted via context-id capability",
			zap.String("context_id", creds.ContextID),
			zap.String("wallet", creds.Wallet))
		return Decision{Outcome: OutcomeIdentity, Key: key}, nil
	}

	if creds.Wallet != "" {
		keys, err := e.store.ListAPIKeysByWallet(ctx, creds.Wallet)
		if err != nil {
			return Decision{}, fmt.Errorf("%w: listing wallet keys: %v", domain.ErrInternal, err)
		}
		// Newest first; take the most recently created active key.
		for _, key := range keys {
			if key.IsActive {
				return Decision{Outcome: OutcomeIdentity, Key: key}, nil
			}
		}
		return Decision{}, fmt.Errorf("%w: no active key for wallet", domain.ErrUnauthorized)
	}

	return Decision{}, fmt.Errorf("%w: authentication required", domain.ErrUnauthorized)
}
