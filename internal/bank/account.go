package bank

import (
	"strings"
	"time"
)

// AccountType is the canonical product classification used by the orchestrator.
type AccountType string

const (
	AccountChecking AccountType = "CHECKING"
	AccountSavings  AccountType = "SAVINGS"
)

// Account is a read-only snapshot of one customer account, supplied fresh by
// the persistence collaborator on every call.
type Account struct {
	ID            int64       `json:"id"`
	Type          string      `json:"type"`
	CanonicalType AccountType `json:"canonical_type"`
	Balance       float64     `json:"balance"`
	Currency      string      `json:"currency"`
	AccountName   string      `json:"account_name,omitempty"`
	NumberMasked  string      `json:"account_number_masked,omitempty"`
}

// Label returns the user-facing name for an account in clarification options.
func (a Account) Label() string {
	if a.AccountName != "" {
		return a.AccountName
	}
	if a.CanonicalType == AccountSavings {
		return "Savings"
	}
	return "Checking"
}

// CanonicalAccountType normalizes a raw stored product type plus the
// user-assigned account name into CHECKING or SAVINGS. Product catalogs use
// names like "DDA", "Everyday Chequing" or "Holiday Savings"; the orchestrator
// only reasons about the two canonical buckets.
func CanonicalAccountType(rawType, name string) AccountType {
	probe := strings.ToLower(rawType + " " + name)
	switch {
	case strings.Contains(probe, "sav"):
		return AccountSavings
	case strings.Contains(probe, "chequ"), strings.Contains(probe, "check"),
		strings.Contains(probe, "chk"), strings.Contains(probe, "dda"):
		return AccountChecking
	}
	return AccountChecking
}

// Sender identifies who produced a conversation turn.
type Sender string

const (
	SenderUser      Sender = "USER"
	SenderAssistant Sender = "ASSISTANT"
	SenderSystem    Sender = "SYSTEM"
)

// ConversationTurn is one entry of the append-only conversation log. The log
// is owned by the persistence collaborator; the core only reads the tail.
type ConversationTurn struct {
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
