package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/ouf-ai/ouf-gateway/internal/auth"
	"github.com/ouf-ai/ouf-gateway/internal/domain"
	"github.com/ouf-ai/ouf-gateway/internal/storage/memory"
)

const masterKey = "test-master-key"

func newEngine(t *testing.T) (*auth.Engine, *memory.Store) {
	t.Helper()
	store := memory.New()
	return auth.NewEngine(store, masterKey, zap.NewNop()), store
}

func seedKey(t *testing.T, store *memory.Store, secret, wallet string, active bool, createdAt time.Time) *domain.APIKey {
	t.Helper()
	key := &domain.APIKey{
		ID:         secret + "-id",
		Secret:     secret,
		Wallet:     wallet,
		CreatedAt:  createdAt,
		LastUsedAt: createdAt,
		IsActive:   active,
	}
	if err := store.CreateAPIKey(context.Background(), key); err != nil {
		t.Fatalf("seeding key: %v", err)
	}
	return key
}

func TestMasterSecretShortCircuits(t *testing.T) {
	engine, store := newEngine(t)

	// Even if an API key happens to share the master secret's shape, the
	// master comparison runs first.
	seedKey(t, store, "some-other-secret", "", true, time.Now())

	decision, err := engine.Decide(context.Background(), auth.Credentials{Secret: masterKey})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Outcome != auth.OutcomeMaster {
		t.Errorf("expected master outcome, got %v", decision.Outcome)
	}
	if decision.Key != nil {
		t.Errorf("master admission must not resolve an identity")
	}
}

func TestBearerSecretResolvesIdentity(t *testing.T) {
	engine, store := newEngine(t)
	seeded := seedKey(t, store, "secret-a", "", true, time.Now())

	decision, err := engine.Decide(context.Background(), auth.Credentials{Secret: "secret-a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Outcome != auth.OutcomeIdentity {
		t.Fatalf("expected identity outcome, got %v", decision.Outcome)
	}
	if decision.Key.ID != seeded.ID {
		t.Errorf("resolved wrong identity: %s", decision.Key.ID)
	}
}

func TestInvalidSecretDeniesWithoutFallthrough(t *testing.T) {
	engine, store := newEngine(t)
	seedKey(t, store, "secret-a", "0xD8a394e7d7894bDF2C57139fF17e5CBAa29Dd977", true, time.Now())

	// Wallet header alone would admit, but a presented-and-invalid secret
	// must deny instead of falling through to the wallet path.
	_, err := engine.Decide(context.Background(), auth.Credentials{
		Secret: "wrong",
		Wallet: "0xD8a394e7d7894bDF2C57139fF17e5CBAa29Dd977",
	})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRevokedSecretDenies(t *testing.T) {
	engine, store := newEngine(t)
	seedKey(t, store, "secret-a", "", true, time.Now())
	seedKey(t, store, "secret-b", "", true, time.Now())

	if err := store.RevokeAPIKey(context.Background(), "secret-a"); err != nil {
		t.Fatalf("revoking: %v", err)
	}

	if _, err := engine.Decide(context.Background(), auth.Credentials{Secret: "secret-a"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("revoked secret should deny, got %v", err)
	}

	// Other secrets remain unaffected.
	decision, err := engine.Decide(context.Background(), auth.Credentials{Secret: "secret-b"})
	if err != nil || decision.Outcome != auth.OutcomeIdentity {
		t.Errorf("unrelated secret should still admit, got %v, %v", decision.Outcome, err)
	}
}

func TestContextIDWithWalletAdmits(t *testing.T) {
	engine, store := newEngine(t)
	seeded := seedKey(t, store, "secret-a", "0xD8a394e7d7894bDF2C57139fF17e5CBAa29Dd977", true, time.Now())

	decision, err := engine.Decide(context.Background(), auth.Credentials{
		ContextID: seeded.ID,
		Wallet:    "0x0000000000000000000000000000000000000001", // wallet not checked on this path
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Outcome != auth.OutcomeIdentity || decision.Key.ID != seeded.ID {
		t.Errorf("expected admission as %s", seeded.ID)
	}
}

func TestContextIDAloneDenies(t *testing.T) {
	engine, store := newEngine(t)
	seeded := seedKey(t, store, "secret-a", "", true, time.Now())

	_, err := engine.Decide(context.Background(), auth.Credentials{ContextID: seeded.ID})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("context id without wallet should deny, got %v", err)
	}
}

func TestWalletResolvesNewestActiveKey(t *testing.T) {
	engine, store := newEngine(t)
	wallet := "0xD8a394e7d7894bDF2C57139fF17e5CBAa29Dd977"

	seedKey(t, store, "old", wallet, true, time.Now().Add(-2*time.Hour))
	newest := seedKey(t, store, "new", wallet, true, time.Now().Add(-time.Hour))
	seedKey(t, store, "newest-but-revoked", wallet, false, time.Now())

	decision, err := engine.Decide(context.Background(), auth.Credentials{Wallet: wallet})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if decision.Key.ID != newest.ID {
		t.Errorf("expected newest active key %s, got %s", newest.ID, decision.Key.ID)
	}
}

func TestNoCredentialsDenies(t *testing.T) {
	engine, _ := newEngine(t)

	_, err := engine.Decide(context.Background(), auth.Credentials{})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}
