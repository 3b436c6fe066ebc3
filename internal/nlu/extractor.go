// Package nlu turns free-form banking requests into structured intents.
package nlu

import (
	"context"
	"encoding/json"
	"strings"

	"bankchat/internal/bank"
	"bankchat/internal/llm"
	"bankchat/internal/metrics"

	"log/slog"
)

// Generator produces text for a prompt. Satisfied by *llm.Client.
type Generator interface {
	Generate(ctx context.Context, prompt string, tools []llm.Tool) (*llm.Response, error)
}

// Extractor builds the extraction prompt, parses the model reply into an
// Intent and applies the deterministic correction rules.
type Extractor struct {
	gen     Generator
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New creates an intent extractor.
func New(gen Generator, m *metrics.Metrics, logger *slog.Logger) *Extractor {
	return &Extractor{
		gen:     gen,
		logger:  logger.With("component", "nlu"),
		metrics: m,
	}
}

// Extract asks the model to classify the message. A nil intent with a nil
// error means the reply carried no usable intent; the caller falls back to an
// open-ended response. The error is non-nil only when the generation endpoint
// is unreachable.
func (e *Extractor) Extract(ctx context.Context, message string, accounts []bank.Account) (*bank.Intent, error) {
	resp, err := e.gen.Generate(ctx, extractionPrompt(message, accounts), nil)
	if err != nil {
		return nil, err
	}

	intent := parseIntent(resp.Response)
	if intent == nil {
		e.metrics.Errors.WithLabelValues("nlu_parse").Inc()
		e.logger.Debug("no intent in model reply", "snippet", snippet(resp.Response, 200))
		return nil, nil
	}
	intent.RawText = message

	for _, rule := range corrections {
		if rule.applies(message, intent) {
			e.logger.Debug("correction applied", "rule", rule.name, "operation", intent.Operation)
			rule.apply(intent)
		}
	}

	e.logger.Debug("intent extracted", "operation", intent.Operation, "amount", intent.Amount)
	return intent, nil
}

// Respond generates an open-ended answer from the last turns of history.
// Used when no intent could be extracted.
func (e *Extractor) Respond(ctx context.Context, history []bank.ConversationTurn, message string) (string, error) {
	resp, err := e.gen.Generate(ctx, fallbackPrompt(history, message), availableTools())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Response), nil
}

// intentPayload mirrors the JSON schema the extraction prompt demands.
type intentPayload struct {
	Operation              string  `json:"operation"`
	AccountID              int64   `json:"account_id"`
	SourceAccountID        int64   `json:"source_account_id"`
	DestinationAccountID   int64   `json:"destination_account_id"`
	AccountType            string  `json:"account_type"`
	SourceAccountType      string  `json:"source_account_type"`
	DestinationAccountType string  `json:"destination_account_type"`
	Amount                 float64 `json:"amount"`
	Currency               string  `json:"currency"`
	IsExternal             bool    `json:"is_external"`
	CheckNumber            string  `json:"check_number"`
	PinChange              bool    `json:"pin_change"`
}

// parseIntent locates the JSON object in the reply and decodes it strictly.
// Replies that violate the schema are rejected rather than salvaged.
func parseIntent(text string) *bank.Intent {
	span := jsonSpan(text)
	if span == "" {
		return nil
	}

	var payload intentPayload
	if err := json.Unmarshal([]byte(span), &payload); err != nil {
		return nil
	}

	op := bank.Operation(strings.ToUpper(strings.TrimSpace(payload.Operation)))
	if !bank.KnownOperation(op) {
		return nil
	}
	if payload.Amount < 0 {
		return nil
	}

	return &bank.Intent{
		Operation:              op,
		AccountID:              payload.AccountID,
		SourceAccountID:        payload.SourceAccountID,
		DestinationAccountID:   payload.DestinationAccountID,
		AccountType:            normalizeType(payload.AccountType),
		SourceAccountType:      normalizeType(payload.SourceAccountType),
		DestinationAccountType: normalizeType(payload.DestinationAccountType),
		Amount:                 payload.Amount,
		Currency:               strings.ToUpper(strings.TrimSpace(payload.Currency)),
		IsExternal:             payload.IsExternal,
		CheckNumber:            strings.TrimSpace(payload.CheckNumber),
		PinChange:              payload.PinChange,
	}
}

// jsonSpan returns the text between the first '{' and the last '}', with any
// markdown fences already irrelevant because the braces bound the object.
func jsonSpan(text string) string {
	start := strings.Index(text, "{")
	if start < 0 {
		return ""
	}
	end := strings.LastIndex(text, "}")
	if end <= start {
		return ""
	}
	return text[start : end+1]
}

func normalizeType(raw string) bank.AccountType {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case string(bank.AccountChecking):
		return bank.AccountChecking
	case string(bank.AccountSavings):
		return bank.AccountSavings
	}
	return ""
}

func snippet(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// availableTools describes the backend operations the model may reference in
// an open-ended reply.
func availableTools() []llm.Tool {
	return []llm.Tool{
		{
			"name":        "get_accounts",
			"description": "Get list of customer accounts with balances",
			"parameters": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
				"required":   []string{},
			},
		},
		{
			"name":        "get_account_details",
			"description": "Get detailed information for a specific account including recent transactions",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"account_id": map[string]any{
						"type":        "integer",
						"description": "The account ID to get details for",
					},
				},
				"required": []string{"account_id"},
			},
		},
		{
			"name":        "create_transaction_intent",
			"description": "Create an intent for a transaction (withdraw, deposit, transfer)",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"enum":        []string{"WITHDRAW", "DEPOSIT", "TRANSFER"},
						"description": "The type of operation",
					},
					"amount": map[string]any{
						"type":        "number",
						"description": "The amount of money",
					},
					"from_account_id": map[string]any{
						"type":        "integer",
						"description": "Source account ID (for withdraws and transfers)",
					},
					"to_account_id": map[string]any{
						"type":        "integer",
						"description": "Destination account ID (for deposits and transfers)",
					},
				},
				"required": []string{"operation", "amount"},
			},
		},
		{
			"name":        "execute_transaction",
			"description": "Execute a confirmed transaction intent",
			"parameters": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"intent_id": map[string]any{
						"type":        "integer",
						"description": "The intent ID to execute",
					},
				},
				"required": []string{"intent_id"},
			},
		},
	}
}
