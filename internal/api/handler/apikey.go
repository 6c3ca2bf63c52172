package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/contextstore"
	"github.com/ouf-ai/ouf-gateway/internal/domain"
	"github.com/ouf-ai/ouf-gateway/internal/storage"
	"github.com/ouf-ai/ouf-gateway/internal/validation"
	"github.com/ouf-ai/ouf-gateway/internal/web3"
)

// APIKeyHandler handles identity issuance, revocation and listing. Issuance
// and revocation are public routes that re-validate the master key
// themselves.
type APIKeyHandler struct {
	store     storage.Storage
	contexts  *contextstore.Store
	balance   web3.BalanceReader // nil when no token gate is configured
	masterKey string
	logger    *zap.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(store storage.Storage, contexts *contextstore.Store, balance web3.BalanceReader, masterKey string, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{
		store:     store,
		contexts:  contexts,
		balance:   balance,
		masterKey: masterKey,
		logger:    logger,
	}
}

// validateMasterKey checks the x-api-key header against the operator secret.
func (h *APIKeyHandler) validateMasterKey(r *http.Request) bool {
	presented := r.Header.Get("x-api-key")
	if presented == "" || h.masterKey == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(h.masterKey)) == 1
}

// Create issues a new identity. Wallet-bound issuance requires a verified
// signature younger than a year and, when the token gate is configured, a
// sufficient token balance.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.validateMasterKey(r) {
		respondError(w, http.StatusUnauthorized, "invalid master key")
		return
	}

	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.WalletAddress != "" {
		if verr := validation.ValidateWalletAddress("walletAddress", req.WalletAddress); verr != nil {
			respondError(w, http.StatusBadRequest, verr.Error())
			return
		}
		if err := h.checkEligibility(r, req.WalletAddress); err != nil {
			handleError(w, err)
			return
		}
	}

	secret, err := generateSecret()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to generate API key")
		return
	}

	now := time.Now()
	key := &domain.APIKey{
		ID:            generateID(),
		Secret:        secret,
		Wallet:        req.WalletAddress,
		CreatedAt:     now,
		LastUsedAt:    now,
		IsActive:      true,
		Slug:          req.Slug,
		AssistantName: req.AssistantName,
		IntroPhrase:   req.IntroPhrase,
		DAOAddress:    req.DAOAddress,
		DAONetwork:    req.DAONetwork,
	}

	if err := h.store.CreateAPIKey(r.Context(), key); err != nil {
		handleError(w, err)
		return
	}
	if err := h.contexts.Provision(r.Context(), key.ID); err != nil {
		h.logger.Error("provisioning context namespace", zap.String("id", key.ID), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to provision context namespace")
		return
	}

	h.logger.Info("issued API key", zap.String("id", key.ID), zap.String("wallet", key.Wallet))

	// The raw secret is exposed here and nowhere else.
	respondJSON(w, http.StatusCreated, &domain.CreateAPIKeyResponse{
		ID:        key.ID,
		Key:       secret,
		CreatedAt: key.CreatedAt,
	})
}

// checkEligibility enforces the signature-age and token-balance gates for
// wallet-bound issuance.
func (h *APIKeyHandler) checkEligibility(r *http.Request, wallet string) error {
	rec, err := h.store.GetSignature(r.Context(), wallet)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrNotEligible
	}
	if err != nil {
		return err
	}
	if !rec.Eligible(time.Now()) {
		return domain.ErrNotEligible
	}

	if h.balance != nil {
		ok, err := h.balance.HasMinimumBalance(r.Context(), wallet)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotEligible
		}
	}
	return nil
}

// Revoke soft-revokes a key by its secret. Revoking an unknown or already
// revoked secret reports success=false rather than failing.
func (h *APIKeyHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if !h.validateMasterKey(r) {
		respondError(w, http.StatusUnauthorized, "invalid master key")
		return
	}

	secret := chi.URLParam(r, "key")
	err := h.store.RevokeAPIKey(r.Context(), secret)
	if errors.Is(err, domain.ErrNotFound) {
		respondJSON(w, http.StatusOK, map[string]bool{"success": false})
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// ListByWallet lists the keys owned by a wallet. Secrets are never included.
func (h *APIKeyHandler) ListByWallet(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	if verr := validation.ValidateWalletAddress("address", address); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	keys, err := h.store.ListAPIKeysByWallet(r.Context(), address)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, keys)
}

// Details returns the public assistant metadata for every key.
func (h *APIKeyHandler) Details(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	details := make([]domain.AssistantDetail, 0, len(keys))
	for _, key := range keys {
		details = append(details, key.Detail())
	}
	respondJSON(w, http.StatusOK, details)
}
