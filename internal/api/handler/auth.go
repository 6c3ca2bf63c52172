package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
	"github.com/ouf-ai/ouf-gateway/internal/storage"
	"github.com/ouf-ai/ouf-gateway/internal/validation"
	"github.com/ouf-ai/ouf-gateway/internal/web3"
)

// AuthHandler issues sign-me challenges and verifies wallet signatures.
type AuthHandler struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(store storage.Storage, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{store: store, logger: logger}
}

type messageRequest struct {
	Address string `json:"address"`
}

// Message returns the challenge a wallet should sign.
func (h *AuthHandler) Message(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if verr := validation.ValidateWalletAddress("address", req.Address); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": web3.SignMessage(req.Address),
	})
}

type verifyRequest struct {
	Message   string `json:"message"`
	Signature string `json:"signature"`
	Address   string `json:"address"`
}

type verifyResponse struct {
	Verified bool   `json:"verified"`
	Address  string `json:"address,omitempty"`
}

// Verify recovers the signer of a signed challenge. On success the wallet's
// signature record is refreshed, which keeps the wallet eligible for key
// issuance.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" || req.Signature == "" {
		respondError(w, http.StatusBadRequest, "message and signature are required")
		return
	}
	if verr := validation.ValidateWalletAddress("address", req.Address); verr != nil {
		respondError(w, http.StatusBadRequest, verr.Error())
		return
	}

	if !web3.VerifySignature(req.Message, req.Signature, req.Address) {
		h.logger.Warn("signature verification failed", zap.String("address", req.Address))
		respondJSON(w, http.StatusOK, verifyResponse{Verified: false})
		return
	}

	rec := &domain.SignatureRecord{Wallet: req.Address, VerifiedAt: time.Now()}
	if err := h.store.UpsertSignature(r.Context(), rec); err != nil {
		handleError(w, err)
		return
	}

	h.logger.Debug("signature verified", zap.String("address", req.Address))
	respondJSON(w, http.StatusOK, verifyResponse{Verified: true, Address: req.Address})
}
