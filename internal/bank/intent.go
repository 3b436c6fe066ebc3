package bank

// Operation is the requested banking operation.
type Operation string

const (
	OpWithdraw       Operation = "WITHDRAW"
	OpDeposit        Operation = "DEPOSIT"
	OpCashDeposit    Operation = "CASH_DEPOSIT"
	OpCheckDeposit   Operation = "CHECK_DEPOSIT"
	OpTransfer       Operation = "TRANSFER"
	OpPayment        Operation = "PAYMENT"
	OpBalanceInquiry Operation = "BALANCE_INQUIRY"
	OpChangePIN      Operation = "CHANGE_PIN"
)

// KnownOperation reports whether op is part of the operation vocabulary.
func KnownOperation(op Operation) bool {
	switch op {
	case OpWithdraw, OpDeposit, OpCashDeposit, OpCheckDeposit,
		OpTransfer, OpPayment, OpBalanceInquiry, OpChangePIN:
		return true
	}
	return false
}

// CheckItem is one collected check in a batch check deposit.
type CheckItem struct {
	CheckNumber string  `json:"check_number"`
	CheckDate   string  `json:"check_date"`
	PayerName   string  `json:"payer_name"`
	Amount      float64 `json:"amount"`
}

// CheckCollection tracks the nested check-deposit sub-dialogue. NumChecks is
// immutable once set; Collected never grows past it.
type CheckCollection struct {
	NumChecks int         `json:"num_checks"`
	Collected []CheckItem `json:"collected_checks"`
}

// Complete reports whether every announced check has been collected.
func (c *CheckCollection) Complete() bool {
	return c != nil && c.NumChecks > 0 && len(c.Collected) >= c.NumChecks
}

// Total returns the sum of collected check amounts.
func (c *CheckCollection) Total() float64 {
	if c == nil {
		return 0
	}
	var total float64
	for _, item := range c.Collected {
		total += item.Amount
	}
	return total
}

// Intent is the structured representation of a requested operation. Zero
// values mean "slot not yet filled".
type Intent struct {
	Operation              Operation        `json:"operation"`
	AccountID              int64            `json:"account_id,omitempty"`
	SourceAccountID        int64            `json:"source_account_id,omitempty"`
	DestinationAccountID   int64            `json:"destination_account_id,omitempty"`
	AccountType            AccountType      `json:"account_type,omitempty"`
	SourceAccountType      AccountType      `json:"source_account_type,omitempty"`
	DestinationAccountType AccountType      `json:"destination_account_type,omitempty"`
	Amount                 float64          `json:"amount,omitempty"`
	Currency               string           `json:"currency,omitempty"`
	IsExternal             bool             `json:"is_external,omitempty"`
	CheckNumber            string           `json:"check_number,omitempty"`
	PinChange              bool             `json:"pin_change,omitempty"`
	RawText                string           `json:"raw_text,omitempty"`
	Checks                 *CheckCollection `json:"checks,omitempty"`
}

// Slot names reported by the validator and used by the clarification tables.
const (
	FieldAccountID            = "account_id"
	FieldAmount               = "amount"
	FieldSourceAccountID      = "source_account_id"
	FieldDestinationAccountID = "destination_account_id"
	FieldOperation            = "operation"
)

// Error codes surfaced in ConversationResult.Error.
const (
	ErrCodeLLMUnavailable     = "LLM_UNAVAILABLE"
	ErrCodeMissingFields      = "MISSING_FIELDS"
	ErrCodeNoMatchingAccounts = "NO_MATCHING_ACCOUNTS"
	ErrCodeAccountNotFound    = "ACCOUNT_NOT_FOUND"
)

// FlowStep describes one UI screen to render. Step names are a stable
// protocol contract with the renderer; changing them is a version bump.
type FlowStep struct {
	Step string         `json:"step_name"`
	Data map[string]any `json:"data"`
}

// Flow step vocabulary.
const (
	StepBalanceDisplay              = "balance_display"
	StepAccountSelection            = "account_selection"
	StepWithdrawalAmount            = "withdrawal_amount"
	StepDenominationBreakdown       = "denomination_breakdown"
	StepWithdrawalConfirmation      = "withdrawal_confirmation"
	StepCashDepositAmount           = "cash_deposit_amount"
	StepCashDepositReview           = "cash_deposit_review"
	StepCashDepositConfirmation     = "cash_deposit_confirmation"
	StepCheckDepositScreen          = "check_deposit_screen"
	StepCheckDepositReview          = "check_deposit_review"
	StepCheckDepositConfirmation    = "check_deposit_confirmation"
	StepSourceAccountSelection      = "source_account_selection"
	StepDestinationAccountSelection = "destination_account_selection"
	StepTransferAmount              = "transfer_amount"
	StepTransferReview              = "transfer_review"
	StepTransferConfirmation        = "transfer_confirmation"
)

// AccountOption is one selectable account in a clarification question.
type AccountOption struct {
	ID       int64       `json:"id"`
	Label    string      `json:"label"`
	Type     AccountType `json:"type"`
	Balance  float64     `json:"balance"`
	Currency string      `json:"currency"`
}

// Result is the outcome of one ProcessConversation call.
type Result struct {
	Success             bool            `json:"success"`
	Message             string          `json:"message"`
	Intent              *Intent         `json:"transaction_intent,omitempty"`
	FlowSteps           []FlowStep      `json:"flow_steps"`
	ClarificationNeeded bool            `json:"clarification_needed,omitempty"`
	Options             []AccountOption `json:"options,omitempty"`
	MissingFields       []string        `json:"missing_fields,omitempty"`
	Error               string          `json:"error,omitempty"`
}

// Await names what kind of answer the orchestrator expects next.
type Await string

const (
	AwaitNone        Await = ""
	AwaitAccount     Await = "account_selection"
	AwaitAmount      Await = "amount"
	AwaitCheckCount  Await = "check_count"
	AwaitCheckAmount Await = "check_amount"
)

// SessionState is the per-conversation mutable state. It is owned by the
// caller and passed back in on every call; the core holds no globals, so
// distinct conversations can run fully concurrently. At most one Pending
// intent exists per conversation.
type SessionState struct {
	Pending  *Intent `json:"pending_intent,omitempty"`
	Awaiting Await   `json:"awaiting,omitempty"`
	// AwaitField is the intent slot an account selection should fill while
	// Awaiting == AwaitAccount.
	AwaitField string `json:"await_field,omitempty"`
	// Options are the choices last shown to the user, used to validate a
	// structured selection answer.
	Options []AccountOption `json:"options,omitempty"`
}

// Reset clears the pending intent and any expected follow-up.
func (s *SessionState) Reset() {
	s.Pending = nil
	s.Awaiting = AwaitNone
	s.AwaitField = ""
	s.Options = nil
}
