package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

// Store is an in-memory implementation of the storage interface, used for
// tests and single-node development. A single mutex serializes every
// read-modify-write cycle.
type Store struct {
	mu sync.RWMutex

	apiKeys       map[string]*domain.APIKey    // key: id
	signatures    map[string]*domain.SignatureRecord // key: lowercase wallet
	conversations map[string]*domain.Conversation    // key: id
	userCosts     map[string]*domain.UserCosts       // key: api key id
	globalCosts   domain.GlobalCosts
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		apiKeys:       make(map[string]*domain.APIKey),
		signatures:    make(map[string]*domain.SignatureRecord),
		conversations: make(map[string]*domain.Conversation),
		userCosts:     make(map[string]*domain.UserCosts),
	}
}

func (s *Store) Close() error { return nil }

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.apiKeys {
		if existing.Secret == key.Secret {
			return domain.ErrAlreadyExists
		}
	}
	cp := *key
	s.apiKeys[key.ID] = &cp
	return nil
}

func (s *Store) GetAPIKeyBySecret(ctx context.Context, secret string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, key := range s.apiKeys {
		if key.Secret == secret {
			cp := *key
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) GetAPIKeyByID(ctx context.Context, id string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *key
	return &cp, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]*domain.APIKey, 0, len(s.apiKeys))
	for _, key := range s.apiKeys {
		cp := *key
		keys = append(keys, &cp)
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) ListAPIKeysByWallet(ctx context.Context, wallet string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []*domain.APIKey
	for _, key := range s.apiKeys {
		if strings.EqualFold(key.Wallet, wallet) {
			cp := *key
			keys = append(keys, &cp)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		return keys[i].CreatedAt.After(keys[j].CreatedAt)
	})
	return keys, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.apiKeys {
		if key.Secret == secret {
			key.IsActive = false
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key, ok := s.apiKeys[id]
	if !ok {
		return domain.ErrNotFound
	}
	key.LastUsedAt = time.Now()
	return nil
}

// ============================================
// Wallet signatures
// ============================================

func (s *Store) UpsertSignature(ctx context.Context, rec *domain.SignatureRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *rec
	s.signatures[strings.ToLower(rec.Wallet)] = &cp
	return nil
}

func (s *Store) GetSignature(ctx context.Context, wallet string) (*domain.SignatureRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.signatures[strings.ToLower(wallet)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

// ============================================
// Conversations
// ============================================

func (s *Store) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[conv.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *Store) AppendMessages(ctx context.Context, id string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return domain.ErrNotFound
	}
	conv.Messages = append(conv.Messages, msgs...)
	conv.UpdatedAt = time.Now()
	return nil
}

func (s *Store) ListConversations(ctx context.Context) ([]*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]*domain.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		convs = append(convs, cloneConversation(conv))
	}
	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})
	return convs, nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.conversations, id)
	return nil
}

// cloneConversation copies the thread so callers never share the stored
// message slice.
func cloneConversation(conv *domain.Conversation) *domain.Conversation {
	cp := *conv
	cp.Messages = append([]domain.Message(nil), conv.Messages...)
	return &cp
}

// ============================================
// Cost ledger
// ============================================

func (s *Store) RecordCost(ctx context.Context, keyID string, entry domain.CostEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userCosts[keyID]
	if !ok {
		user = &domain.UserCosts{}
		s.userCosts[keyID] = user
	}
	user.Totals.Add(entry.CostMetrics)
	user.Requests = append(user.Requests, entry)

	s.globalCosts.Totals.Add(entry.CostMetrics)
	s.globalCosts.TotalRequests++
	s.globalCosts.LastUpdated = time.Now()
	return nil
}

func (s *Store) GetUserCosts(ctx context.Context, keyID string) (*domain.UserCosts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.userCosts[keyID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := domain.UserCosts{
		Totals:   user.Totals,
		Requests: append([]domain.CostEntry(nil), user.Requests...),
	}
	return &cp, nil
}

func (s *Store) GetGlobalCosts(ctx context.Context) (*domain.GlobalCosts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := s.globalCosts
	return &cp, nil
}

func (s *Store) ListCostUsers(ctx context.Context) ([]domain.UserCostSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]domain.UserCostSummary, 0, len(s.userCosts))
	for id, user := range s.userCosts {
		summaries = append(summaries, domain.UserCostSummary{
			ID:           id,
			TotalCost:    user.Totals.TotalCost,
			RequestCount: len(user.Requests),
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].TotalCost > summaries[j].TotalCost
	})
	return summaries, nil
}

func (s *Store) RemoveUserCosts(ctx context.Context, keyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.userCosts[keyID]
	if !ok {
		return domain.ErrNotFound
	}

	// Subtract before delete so global always equals the sum of user slices.
	s.globalCosts.Totals.Subtract(user.Totals)
	s.globalCosts.TotalRequests -= len(user.Requests)
	s.globalCosts.LastUpdated = time.Now()
	delete(s.userCosts, keyID)
	return nil
}
