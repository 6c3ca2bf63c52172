package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/api/handler"
	"github.com/ouf-ai/ouf-gateway/internal/api/middleware"
	"github.com/ouf-ai/ouf-gateway/internal/auth"
	"github.com/ouf-ai/ouf-gateway/internal/contextstore"
	"github.com/ouf-ai/ouf-gateway/internal/service"
	"github.com/ouf-ai/ouf-gateway/internal/storage"
	"github.com/ouf-ai/ouf-gateway/internal/web3"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(
	store storage.Storage,
	contexts *contextstore.Store,
	svc *service.Service,
	engine *auth.Engine,
	balance web3.BalanceReader,
	masterKey string,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Public routes. Key issuance and revocation re-validate the master key
	// in the handler instead of going through the admission engine.
	authHandler := handler.NewAuthHandler(store, logger)
	r.Post("/auth/message", authHandler.Message)
	r.Post("/auth/verify", authHandler.Verify)

	keyHandler := handler.NewAPIKeyHandler(store, contexts, balance, masterKey, logger)
	r.Post("/api-keys", keyHandler.Create)
	r.Delete("/api-keys/{key}", keyHandler.Revoke)
	r.Get("/api-keys/details", keyHandler.Details)

	// Admitted routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Admission(engine))

		askHandler := handler.NewAskHandler(svc)
		r.Post("/ai/ask", askHandler.Ask)

		fileHandler := handler.NewContextFileHandler(contexts)
		r.Post("/context-files/list", fileHandler.List)
		r.Post("/context-files/upload", fileHandler.Upload)
		r.Delete("/context-files", fileHandler.Delete)
		r.Post("/context-files/download", fileHandler.Download)

		r.Get("/api-keys/wallet/{address}", keyHandler.ListByWallet)

		costsHandler := handler.NewCostsHandler(store)
		r.Get("/costs/global", costsHandler.Global)
		r.Get("/costs/users", costsHandler.Users)
		r.Get("/costs/user/{id}", costsHandler.User)
		r.Delete("/costs/user/{id}", costsHandler.ClearUser)
	})

	return r
}
