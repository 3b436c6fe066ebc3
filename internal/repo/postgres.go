package repo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bankchat/internal/bank"
)

// PostgresStore backs Store with a pgx connection pool.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPostgres(ctx context.Context, databaseURL string, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool, logger: logger.With("component", "repo.postgres")}, nil
}

func (s *PostgresStore) CustomerForSession(ctx context.Context, sessionID string) (int64, error) {
	var customerID int64
	err := s.pool.QueryRow(ctx,
		`SELECT customer_id FROM sessions WHERE id = $1 AND status = 'ACTIVE'`,
		sessionID,
	).Scan(&customerID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session %s: %w", sessionID, err)
	}
	return customerID, nil
}

func (s *PostgresStore) Accounts(ctx context.Context, customerID int64) ([]bank.Account, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, balance, currency,
		        COALESCE(account_name, ''), COALESCE(account_number_masked, '')
		   FROM accounts
		  WHERE customer_id = $1 AND status = 'ACTIVE'
		  ORDER BY id`,
		customerID,
	)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []bank.Account
	for rows.Next() {
		var a bank.Account
		var rawType string
		if err := rows.Scan(&a.ID, &rawType, &a.Balance, &a.Currency, &a.AccountName, &a.NumberMasked); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.Type = rawType
		a.CanonicalType = bank.CanonicalAccountType(rawType, a.AccountName)
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (s *PostgresStore) AppendTurn(ctx context.Context, sessionID string, turn bank.ConversationTurn) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO conversation_messages (session_id, sender, content, created_at)
		 VALUES ($1, $2, $3, $4)`,
		sessionID, string(turn.Sender), turn.Content, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]bank.ConversationTurn, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT sender, content, created_at
		   FROM conversation_messages
		  WHERE session_id = $1
		  ORDER BY created_at DESC, id DESC
		  LIMIT $2`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []bank.ConversationTurn
	for rows.Next() {
		var t bank.ConversationTurn
		var sender string
		if err := rows.Scan(&sender, &t.Content, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.Sender = bank.Sender(sender)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	// Query is newest-first; callers want chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
