// Package repo persists conversation turns and serves account snapshots.
package repo

import (
	"context"
	"errors"

	"bankchat/internal/bank"
)

// ErrSessionNotFound is returned for unknown or inactive sessions.
var ErrSessionNotFound = errors.New("session not found")

// Store is the persistence collaborator. The conversation log is append-only;
// the orchestrator reads only its tail and never mutates accounts.
type Store interface {
	// CustomerForSession maps an active session to its customer.
	CustomerForSession(ctx context.Context, sessionID string) (int64, error)
	// Accounts returns a fresh snapshot of the customer's active accounts.
	Accounts(ctx context.Context, customerID int64) ([]bank.Account, error)
	// AppendTurn records one conversation turn.
	AppendTurn(ctx context.Context, sessionID string, turn bank.ConversationTurn) error
	// RecentTurns returns the last turns in chronological order.
	RecentTurns(ctx context.Context, sessionID string, limit int) ([]bank.ConversationTurn, error)
	Close()
}
