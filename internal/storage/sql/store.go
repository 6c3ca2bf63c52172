package sql

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/ouf-ai/ouf-gateway/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New creates a new SQL store.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Run migrations
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================
// API Keys
// ============================================

const apiKeyColumns = `id, secret, wallet, created_at, last_used_at, is_active,
	slug, assistant_name, intro_phrase, dao_address, dao_network`

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, secret, wallet, created_at, last_used_at, is_active,
			slug, assistant_name, intro_phrase, dao_address, dao_network)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		key.ID, key.Secret, strings.ToLower(key.Wallet), key.CreatedAt, key.LastUsedAt,
		key.IsActive, key.Slug, key.AssistantName, key.IntroPhrase, key.DAOAddress, key.DAONetwork)
	return wrapUniqueError(err)
}

func (s *Store) GetAPIKeyBySecret(ctx context.Context, secret string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.GetContext(ctx, &key,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE secret = $1`, secret)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &key, err
}

func (s *Store) GetAPIKeyByID(ctx context.Context, id string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.GetContext(ctx, &key,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &key, err
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.SelectContext(ctx, &keys,
		`SELECT `+apiKeyColumns+` FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) ListAPIKeysByWallet(ctx context.Context, wallet string) ([]*domain.APIKey, error) {
	var keys []*domain.APIKey
	err := s.db.SelectContext(ctx, &keys,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE wallet = $1 ORDER BY created_at DESC`,
		strings.ToLower(wallet))
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) RevokeAPIKey(ctx context.Context, secret string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET is_active = FALSE WHERE secret = $1`, secret)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

// ============================================
// Wallet signatures
// ============================================

func (s *Store) UpsertSignature(ctx context.Context, rec *domain.SignatureRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO signatures (wallet, verified_at) VALUES ($1, $2)
		 ON CONFLICT (wallet) DO UPDATE SET verified_at = $2`,
		strings.ToLower(rec.Wallet), rec.VerifiedAt)
	return err
}

func (s *Store) GetSignature(ctx context.Context, wallet string) (*domain.SignatureRecord, error) {
	var rec domain.SignatureRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT wallet, verified_at FROM signatures WHERE wallet = $1`,
		strings.ToLower(wallet))
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	return &rec, err
}

// ============================================
// Conversations
// ============================================

// conversationRow maps the conversations table; messages are stored as a JSON
// array in a text column.
type conversationRow struct {
	ID          string    `db:"id"`
	Messages    string    `db:"messages"`
	FileName    string    `db:"file_name"`
	FileContent string    `db:"file_content"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r *conversationRow) toDomain() (*domain.Conversation, error) {
	conv := &domain.Conversation{
		ID:          r.ID,
		FileName:    r.FileName,
		FileContent: r.FileContent,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Messages), &conv.Messages); err != nil {
		return nil, fmt.Errorf("decoding messages for conversation %s: %w", r.ID, err)
	}
	return conv, nil
}

func (s *Store) CreateConversation(ctx context.Context, conv *domain.Conversation) error {
	msgs := conv.Messages
	if msgs == nil {
		msgs = []domain.Message{}
	}
	encoded, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, messages, file_name, file_content, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		conv.ID, string(encoded), conv.FileName, conv.FileContent, conv.CreatedAt, conv.UpdatedAt)
	return wrapUniqueError(err)
}

func (s *Store) GetConversation(ctx context.Context, id string) (*domain.Conversation, error) {
	var row conversationRow
	err := s.db.GetContext(ctx, &row,
		`SELECT id, messages, file_name, file_content, created_at, updated_at
		 FROM conversations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toDomain()
}

func (s *Store) AppendMessages(ctx context.Context, id string, msgs ...domain.Message) error {
	// Whole-document read-modify-write inside one transaction so concurrent
	// appends to the same thread cannot lose messages.
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var row conversationRow
	err = tx.GetContext(ctx, &row,
		`SELECT id, messages, file_name, file_content, created_at, updated_at
		 FROM conversations WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	if err != nil {
		return err
	}

	conv, err := row.toDomain()
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, msgs...)
	encoded, err := json.Marshal(conv.Messages)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET messages = $1, updated_at = $2 WHERE id = $3`,
		string(encoded), time.Now(), id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListConversations(ctx context.Context) ([]*domain.Conversation, error) {
	var rows []conversationRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, messages, file_name, file_content, created_at, updated_at
		 FROM conversations ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	convs := make([]*domain.Conversation, 0, len(rows))
	for i := range rows {
		conv, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, nil
}

func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ============================================
// Cost ledger
// ============================================

// The ledger is persisted as individual entries; per-user and global totals
// are derived with SUM, so the global-equals-sum-of-users invariant holds by
// construction and RemoveUserCosts is a plain delete.

func (s *Store) RecordCost(ctx context.Context, keyID string, entry domain.CostEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cost_entries (id, api_key_id, ts, input_tokens, output_tokens,
			input_cost, output_cost, total_cost, message, conversation_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.New().String(), keyID, entry.Timestamp, entry.InputTokens, entry.OutputTokens,
		entry.InputCost, entry.OutputCost, entry.TotalCost, entry.Message, entry.ConversationID)
	return err
}

type costTotalsRow struct {
	InputCost    float64      `db:"input_cost"`
	OutputCost   float64      `db:"output_cost"`
	TotalCost    float64      `db:"total_cost"`
	InputTokens  int          `db:"input_tokens"`
	OutputTokens int          `db:"output_tokens"`
	Requests     int          `db:"requests"`
	LastUpdated  sql.NullTime `db:"last_updated"`
}

const costTotalsQuery = `SELECT
	COALESCE(SUM(input_cost), 0) AS input_cost,
	COALESCE(SUM(output_cost), 0) AS output_cost,
	COALESCE(SUM(total_cost), 0) AS total_cost,
	COALESCE(SUM(input_tokens), 0) AS input_tokens,
	COALESCE(SUM(output_tokens), 0) AS output_tokens,
	COUNT(*) AS requests,
	MAX(ts) AS last_updated
	FROM cost_entries`

func (r *costTotalsRow) metrics() domain.CostMetrics {
	return domain.CostMetrics{
		InputCost:    r.InputCost,
		OutputCost:   r.OutputCost,
		TotalCost:    r.TotalCost,
		InputTokens:  r.InputTokens,
		OutputTokens: r.OutputTokens,
	}
}

func (s *Store) GetUserCosts(ctx context.Context, keyID string) (*domain.UserCosts, error) {
	var entries []domain.CostEntry
	err := s.db.SelectContext(ctx, &entries,
		`SELECT ts, input_tokens, output_tokens, input_cost, output_cost, total_cost,
			message, conversation_id
		 FROM cost_entries WHERE api_key_id = $1 ORDER BY ts`, keyID)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNotFound
	}

	var totals costTotalsRow
	if err := s.db.GetContext(ctx, &totals,
		costTotalsQuery+` WHERE api_key_id = $1`, keyID); err != nil {
		return nil, err
	}
	return &domain.UserCosts{Totals: totals.metrics(), Requests: entries}, nil
}

func (s *Store) GetGlobalCosts(ctx context.Context) (*domain.GlobalCosts, error) {
	var totals costTotalsRow
	if err := s.db.GetContext(ctx, &totals, costTotalsQuery); err != nil {
		return nil, err
	}
	global := &domain.GlobalCosts{
		Totals:        totals.metrics(),
		TotalRequests: totals.Requests,
	}
	if totals.LastUpdated.Valid {
		global.LastUpdated = totals.LastUpdated.Time
	}
	return global, nil
}

func (s *Store) ListCostUsers(ctx context.Context) ([]domain.UserCostSummary, error) {
	var summaries []domain.UserCostSummary
	err := s.db.SelectContext(ctx, &summaries,
		`SELECT api_key_id AS id, COALESCE(SUM(total_cost), 0) AS totalcost,
			COUNT(*) AS requestcount
		 FROM cost_entries GROUP BY api_key_id ORDER BY totalcost DESC`)
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

func (s *Store) RemoveUserCosts(ctx context.Context, keyID string) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM cost_entries WHERE api_key_id = $1`, keyID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}
