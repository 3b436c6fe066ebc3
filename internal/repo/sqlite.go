package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "modernc.org/sqlite"

	"bankchat/internal/bank"
)

// SQLiteStore is the zero-infrastructure Store used for local development and
// demos. It creates its own schema and seeds demo data on first run.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS customers (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS accounts (
	id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	customer_id           INTEGER NOT NULL REFERENCES customers(id),
	type                  TEXT NOT NULL,
	account_name          TEXT NOT NULL DEFAULT '',
	account_number_masked TEXT NOT NULL DEFAULT '',
	balance               REAL NOT NULL DEFAULT 0,
	currency              TEXT NOT NULL DEFAULT 'USD',
	status                TEXT NOT NULL DEFAULT 'ACTIVE'
);
CREATE TABLE IF NOT EXISTS sessions (
	id          TEXT PRIMARY KEY,
	customer_id INTEGER NOT NULL REFERENCES customers(id),
	status      TEXT NOT NULL DEFAULT 'ACTIVE'
);
CREATE TABLE IF NOT EXISTS conversation_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	sender     TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON conversation_messages(session_id, created_at);
`

func NewSQLite(ctx context.Context, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc sqlite handles one writer at a time.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, logger: logger.With("component", "repo.sqlite")}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	if err := s.seed(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// seed inserts two demo customers with a checking and a savings account each,
// plus one session per customer. Runs only on an empty database.
func (s *SQLiteStore) seed(ctx context.Context) error {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return fmt.Errorf("count accounts: %w", err)
	}
	if n > 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback()

	type seedAccount struct {
		typ, name, masked string
		balance           float64
	}
	customers := []struct {
		name     string
		session  string
		accounts []seedAccount
	}{
		{
			name:    "John Doe",
			session: "demo-session-1",
			accounts: []seedAccount{
				{"CHECKING", "Everyday Checking", "****1001", 2500.00},
				{"SAVINGS", "Rainy Day Savings", "****1002", 10000.00},
			},
		},
		{
			name:    "Maria Garcia",
			session: "demo-session-2",
			accounts: []seedAccount{
				{"CHECKING", "Primary Checking", "****2001", 1200.50},
				{"SAVINGS", "Vacation Savings", "****2002", 5000.00},
			},
		},
	}

	for _, c := range customers {
		res, err := tx.ExecContext(ctx, `INSERT INTO customers (name) VALUES (?)`, c.name)
		if err != nil {
			return fmt.Errorf("seed customer %s: %w", c.name, err)
		}
		customerID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("seed customer id: %w", err)
		}
		for _, a := range c.accounts {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO accounts (customer_id, type, account_name, account_number_masked, balance)
				 VALUES (?, ?, ?, ?, ?)`,
				customerID, a.typ, a.name, a.masked, a.balance,
			)
			if err != nil {
				return fmt.Errorf("seed account %s: %w", a.name, err)
			}
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO sessions (id, customer_id) VALUES (?, ?)`, c.session, customerID)
		if err != nil {
			return fmt.Errorf("seed session %s: %w", c.session, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit seed: %w", err)
	}
	s.logger.Info("seeded demo data", "customers", len(customers))
	return nil
}

func (s *SQLiteStore) CustomerForSession(ctx context.Context, sessionID string) (int64, error) {
	var customerID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT customer_id FROM sessions WHERE id = ? AND status = 'ACTIVE'`,
		sessionID,
	).Scan(&customerID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session %s: %w", sessionID, err)
	}
	return customerID, nil
}

func (s *SQLiteStore) Accounts(ctx context.Context, customerID int64) ([]bank.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, balance, currency, account_name, account_number_masked
		   FROM accounts
		  WHERE customer_id = ? AND status = 'ACTIVE'
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

func (s *SQLiteStore) AppendTurn(ctx context.Context, sessionID string, turn bank.ConversationTurn) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_messages (session_id, sender, content, created_at)
		 VALUES (?, ?, ?, ?)`,
		sessionID, string(turn.Sender), turn.Content, turn.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *SQLiteStore) RecentTurns(ctx context.Context, sessionID string, limit int) ([]bank.ConversationTurn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sender, content, created_at
		   FROM conversation_messages
		  WHERE session_id = ?
		  ORDER BY created_at DESC, id DESC
		  LIMIT ?`,
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
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (s *SQLiteStore) Close() {
	if err := s.db.Close(); err != nil {
		s.logger.Warn("close sqlite", "error", err)
	}
}
