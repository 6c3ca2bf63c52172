package domain

import "time"

// APIKey represents an issued identity. The secret is the bearer credential
// and is only returned once on creation; the ID doubles as the handle for the
// identity's context-file namespace.
type APIKey struct {
	ID            string    `json:"id" db:"id"`
	Secret        string    `json:"-" db:"secret"` // Never expose after issuance
	Wallet        string    `json:"walletAddress,omitempty" db:"wallet"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	LastUsedAt    time.Time `json:"lastUsedAt" db:"last_used_at"`
	IsActive      bool      `json:"isActive" db:"is_active"`
	Slug          string    `json:"slug,omitempty" db:"slug"`
	AssistantName string    `json:"assistantName,omitempty" db:"assistant_name"`
	IntroPhrase   string    `json:"introPhrase,omitempty" db:"intro_phrase"`
	DAOAddress    string    `json:"daoAddress,omitempty" db:"dao_address"`
	DAONetwork    string    `json:"daoNetwork,omitempty" db:"dao_network"`
}

// KeyMetadata carries the optional display fields supplied at issuance.
type KeyMetadata struct {
	Slug          string `json:"slug,omitempty"`
	AssistantName string `json:"assistantName,omitempty"`
	IntroPhrase   string `json:"introPhrase,omitempty"`
	DAOAddress    string `json:"daoAddress,omitempty"`
	DAONetwork    string `json:"daoNetwork,omitempty"`
}

// CreateAPIKeyRequest is the request body for issuing an identity.
type CreateAPIKeyRequest struct {
	WalletAddress string `json:"walletAddress,omitempty"`
	KeyMetadata
}

// CreateAPIKeyResponse is returned on issuance. The key is only shown once.
type CreateAPIKeyResponse struct {
	ID        string    `json:"id"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"createdAt"`
}

// AssistantDetail is the public projection of a key's display metadata.
type AssistantDetail struct {
	Slug        string `json:"slug"`
	ContextID   string `json:"contextId"`
	Name        string `json:"name"`
	IntroPhrase string `json:"introPhrase"`
	DAOAddress  string `json:"daoAddress"`
	DAONetwork  string `json:"daoNetwork"`
}

// Detail returns the public assistant projection of the key.
func (k *APIKey) Detail() AssistantDetail {
	return AssistantDetail{
		Slug:        k.Slug,
		ContextID:   k.ID,
		Name:        k.AssistantName,
		IntroPhrase: k.IntroPhrase,
		DAOAddress:  k.DAOAddress,
		DAONetwork:  k.DAONetwork,
	}
}
