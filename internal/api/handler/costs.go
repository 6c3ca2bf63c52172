package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ouf-ai/ouf-gateway/internal/api/middleware"
	"github.com/ouf-ai/ouf-gateway/internal/auth"
	"github.com/ouf-ai/ouf-gateway/internal/storage"
)

// CostsHandler exposes the metering ledger to the operator.
type CostsHandler struct {
	store storage.Storage
}

// NewCostsHandler creates a new CostsHandler.
func NewCostsHandler(store storage.Storage) *CostsHandler {
	return &CostsHandler{store: store}
}

// requireMaster restricts ledger reporting to master admissions.
func requireMaster(w http.ResponseWriter, r *http.Request) bool {
	if middleware.DecisionFromContext(r.Context()).Outcome != auth.OutcomeMaster {
		respondError(w, http.StatusUnauthorized, "master key required")
		return false
	}
	return true
}

// Global returns the cross-identity accumulator.
func (h *CostsHandler) Global(w http.ResponseWriter, r *http.Request) {
	if !requireMaster(w, r) {
		return
	}
	global, err := h.store.GetGlobalCosts(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, global)
}

// Users lists per-identity spend summaries.
func (h *CostsHandler) Users(w http.ResponseWriter, r *http.Request) {
	if !requireMaster(w, r) {
		return
	}
	users, err := h.store.ListCostUsers(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, users)
}

// User returns one identity's ledger slice.
func (h *CostsHandler) User(w http.ResponseWriter, r *http.Request) {
	if !requireMaster(w, r) {
		return
	}
	costs, err := h.store.GetUserCosts(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, costs)
}

// ClearUser removes an identity's ledger slice; its totals are subtracted
// from the global accumulator first.
func (h *CostsHandler) ClearUser(w http.ResponseWriter, r *http.Request) {
	if !requireMaster(w, r) {
		return
	}
	if err := h.store.RemoveUserCosts(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
