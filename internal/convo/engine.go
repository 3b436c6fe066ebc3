// Package convo drives the multi-turn slot-filling dialogue that turns
// natural-language banking requests into validated transaction intents.
package convo

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"bankchat/internal/bank"
	"bankchat/internal/metrics"
	"bankchat/internal/nlu"

	"log/slog"
)

// Request carries one inbound message together with the caller-owned
// conversation state and a fresh account snapshot. The host must not issue
// two calls for the same conversation concurrently; the engine itself holds
// no per-conversation state.
type Request struct {
	Message  string
	History  []bank.ConversationTurn
	Accounts []bank.Account
	State    *bank.SessionState
}

// Engine is the conversation state machine.
type Engine struct {
	extractor *nlu.Extractor
	logger    *slog.Logger
	metrics   *metrics.Metrics

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates an engine. A nil rng or clock falls back to real randomness and
// wall time; tests inject both for reproducibility.
func New(extractor *nlu.Extractor, m *metrics.Metrics, logger *slog.Logger, rng *rand.Rand, now func() time.Time) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if now == nil {
		now = time.Now
	}
	return &Engine{
		extractor: extractor,
		logger:    logger.With("component", "convo"),
		metrics:   m,
		rng:       rng,
		now:       now,
	}
}

// ProcessConversation handles one user message. Follow-up answers are
// resolved against the pending intent first; anything else goes through fresh
// extraction. Failures are always folded into the result, never returned.
func (e *Engine) ProcessConversation(ctx context.Context, req Request) *bank.Result {
	msg := strings.TrimSpace(req.Message)
	state := req.State
	if state == nil {
		state = &bank.SessionState{}
	}

	var res *bank.Result
	if state.Pending != nil {
		if followUp, handled := e.resumePending(msg, req, state); handled {
			res = followUp
		}
	}
	if res == nil {
		res = e.freshTurn(ctx, msg, req, state)
	}

	e.metrics.Conversations.WithLabelValues(operationLabel(res), outcomeLabel(res)).Inc()
	return res
}

// resumePending resolves structured follow-up answers against the pending
// intent. It reports handled=false when the message is not an answer to what
// the engine asked, in which case the utterance supersedes the pending intent
// and goes through fresh extraction.
func (e *Engine) resumePending(msg string, req Request, state *bank.SessionState) (*bank.Result, bool) {
	in := state.Pending

	switch state.Awaiting {
	case bank.AwaitAccount:
		id, ok := parseSelection(msg)
		if !ok {
			return nil, false
		}
		if !optionByID(state.Options, id) {
			return e.repeatClarification(state, "That account isn't one of the options. Please pick one of the accounts shown."), true
		}
		patchAccountSlot(in, state.AwaitField, id)
		state.Awaiting, state.AwaitField, state.Options = bank.AwaitNone, "", nil
		return e.advance(req, state), true

	case bank.AwaitAmount:
		v, ok := parseAmount(msg)
		if !ok {
			return nil, false
		}
		if v <= 0 {
			return e.clarification(state, "The amount has to be greater than zero. "+questionFor(in.Operation, bank.FieldAmount),
				nil, []string{bank.FieldAmount}, bank.AwaitAmount, ""), true
		}
		in.Amount = v
		state.Awaiting = bank.AwaitNone
		return e.advance(req, state), true

	case bank.AwaitCheckCount:
		// Non-numeric input re-prompts instead of falling through: a
		// slot-filling answer must not be misread as a new request.
		n, ok := parseCount(msg)
		if !ok {
			return e.clarification(state, "I just need a number: how many checks are you depositing?",
				nil, []string{"num_checks"}, bank.AwaitCheckCount, ""), true
		}
		if n <= 0 || n > maxChecksPerDeposit {
			return e.clarification(state, fmt.Sprintf("Please give a number of checks between 1 and %d.", maxChecksPerDeposit),
				nil, []string{"num_checks"}, bank.AwaitCheckCount, ""), true
		}
		in.Checks = &bank.CheckCollection{NumChecks: n}
		return e.clarification(state, fmt.Sprintf("What is the amount of check 1 of %d?", n),
			nil, []string{"check_amount"}, bank.AwaitCheckAmount, ""), true

	case bank.AwaitCheckAmount:
		v, ok := parseAmount(msg)
		if !ok {
			return e.clarification(state, "I just need a number: what is the amount of this check?",
				nil, []string{"check_amount"}, bank.AwaitCheckAmount, ""), true
		}
		if v <= 0 {
			return e.clarification(state, "Check amounts must be greater than zero. What is the amount?",
				nil, []string{"check_amount"}, bank.AwaitCheckAmount, ""), true
		}
		in.Checks.Collected = append(in.Checks.Collected, e.synthesizeCheck(v))
		if !in.Checks.Complete() {
			next := len(in.Checks.Collected) + 1
			return e.clarification(state, fmt.Sprintf("What is the amount of check %d of %d?", next, in.Checks.NumChecks),
				nil, []string{"check_amount"}, bank.AwaitCheckAmount, ""), true
		}
		state.Awaiting = bank.AwaitNone
		return e.advance(req, state), true
	}

	return nil, false
}

// freshTurn extracts a new intent from the message, falling back to an
// open-ended generated reply when nothing structured comes out.
func (e *Engine) freshTurn(ctx context.Context, msg string, req Request, state *bank.SessionState) *bank.Result {
	intent, err := e.extractor.Extract(ctx, msg, req.Accounts)
	if err != nil {
		e.logger.Error("intent extraction failed", "error", err)
		return e.llmUnavailable()
	}

	if intent == nil {
		text, err := e.extractor.Respond(ctx, req.History, msg)
		if err != nil {
			e.logger.Error("fallback response failed", "error", err)
			return e.llmUnavailable()
		}
		return &bank.Result{Success: true, Message: text, FlowSteps: []bank.FlowStep{}}
	}

	// A new top-level request supersedes whatever was pending.
	state.Reset()
	state.Pending = intent
	return e.advance(req, state)
}

// advance re-validates the pending intent and either clarifies or finalizes.
func (e *Engine) advance(req Request, state *bank.SessionState) *bank.Result {
	if missing := Validate(state.Pending); len(missing) > 0 {
		return e.clarify(req, state, missing)
	}
	return e.finalize(req, state)
}

func (e *Engine) clarify(req Request, state *bank.SessionState, missing []string) *bank.Result {
	in := state.Pending
	field := missing[0]

	switch field {
	case bank.FieldAccountID, bank.FieldSourceAccountID, bank.FieldDestinationAccountID:
		if res := e.resolveSlot(req, state, field); res != nil {
			return res
		}
		// Auto-resolved silently; re-enter validation with the patched intent.
		return e.advance(req, state)

	case bank.FieldAmount:
		return e.clarification(state, questionFor(in.Operation, field), nil, missing, bank.AwaitAmount, "")

	case bank.FieldOperation:
		// Unsupported or unknown operation: re-ask what to do and drop the
		// pending intent so the next utterance starts clean.
		res := &bank.Result{
			Success:             false,
			Message:             questionFor(in.Operation, field),
			Intent:              in,
			FlowSteps:           []bank.FlowStep{},
			ClarificationNeeded: true,
			MissingFields:       missing,
			Error:               bank.ErrCodeMissingFields,
		}
		state.Reset()
		return res
	}

	return e.clarification(state, genericQuestion, nil, missing, bank.AwaitNone, "")
}

// resolveSlot fills an account slot from the snapshot. It returns nil when
// the slot was auto-resolved, otherwise the clarification or terminal result.
// CHECK_DEPOSIT never auto-selects, even with a single candidate; a TRANSFER
// source auto-selects only when the customer has exactly one account at all.
func (e *Engine) resolveSlot(req Request, state *bank.SessionState, field string) *bank.Result {
	in := state.Pending
	var typ bank.AccountType
	var exclude int64
	autoSelect := true

	switch field {
	case bank.FieldSourceAccountID:
		typ = in.SourceAccountType
		autoSelect = len(req.Accounts) == 1
	case bank.FieldDestinationAccountID:
		typ = in.DestinationAccountType
		exclude = in.SourceAccountID
	default:
		typ = in.AccountType
		if in.Operation == bank.OpCheckDeposit {
			autoSelect = false
		}
	}

	cands := candidates(req.Accounts, typ, exclude)
	switch {
	case len(cands) == 0:
		return e.terminal(state, bank.ErrCodeNoMatchingAccounts, noAccountsMessage(typ))
	case len(cands) == 1 && autoSelect:
		patchAccountSlot(in, field, cands[0].ID)
		return nil
	}
	return e.clarification(state, questionFor(in.Operation, field), optionsFor(cands), []string{field}, bank.AwaitAccount, field)
}

func (e *Engine) finalize(req Request, state *bank.SessionState) *bank.Result {
	switch state.Pending.Operation {
	case bank.OpBalanceInquiry:
		return e.finalizeBalance(req, state)
	case bank.OpWithdraw:
		return e.finalizeWithdraw(req, state)
	case bank.OpCashDeposit:
		return e.finalizeCashDeposit(req, state)
	case bank.OpCheckDeposit:
		return e.finalizeCheckDeposit(req, state)
	case bank.OpTransfer:
		return e.finalizeTransfer(req, state)
	case bank.OpChangePIN:
		return e.finalizeChangePIN(req, state)
	}
	return e.terminal(state, bank.ErrCodeMissingFields, genericQuestion)
}

func (e *Engine) finalizeBalance(req Request, state *bank.SessionState) *bank.Result {
	in := state.Pending
	if in.AccountID == 0 {
		if res := e.resolveSlot(req, state, bank.FieldAccountID); res != nil {
			return res
		}
	}
	acc, ok := findAccount(req.Accounts, in.AccountID)
	if !ok {
		return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
	}
	msg := fmt.Sprintf("Your %s balance is %.2f %s.", acc.Label(), acc.Balance, acc.Currency)
	return e.success(state, msg, balanceFlow(acc))
}

func (e *Engine) finalizeWithdraw(req Request, state *bank.SessionState) *bank.Result {
	in := state.Pending
	acc, ok := findAccount(req.Accounts, in.AccountID)
	if !ok {
		return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
	}
	// Funds sufficiency is checked by the execution layer, not here.
	denoms := e.breakdown(in.Amount)
	return e.success(state, "I'll help you with that withdrawal. Please review the details on the screen.",
		withdrawalFlow(acc, in.Amount, denoms))
}

func (e *Engine) finalizeCashDeposit(req Request, state *bank.SessionState) *bank.Result {
	in := state.Pending
	acc, ok := findAccount(req.Accounts, in.AccountID)
	if !ok {
		return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
	}
	var denoms *Denominations
	if in.Amount > 0 {
		d := e.breakdown(in.Amount)
		denoms = &d
	}
	return e.success(state, "I'll help you deposit cash. Please review the details on the screen.",
		cashDepositFlow(acc, in.Amount, denoms))
}

func (e *Engine) finalizeCheckDeposit(req Request, state *bank.SessionState) *bank.Result {
	in := state.Pending
	acc, ok := findAccount(req.Accounts, in.AccountID)
	if !ok {
		return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
	}
	if in.Checks == nil || in.Checks.NumChecks == 0 {
		return e.clarification(state, "How many checks would you like to deposit?",
			nil, []string{"num_checks"}, bank.AwaitCheckCount, "")
	}
	if !in.Checks.Complete() {
		next := len(in.Checks.Collected) + 1
		return e.clarification(state, fmt.Sprintf("What is the amount of check %d of %d?", next, in.Checks.NumChecks),
			nil, []string{"check_amount"}, bank.AwaitCheckAmount, "")
	}
	msg := fmt.Sprintf("Depositing %d checks totaling %.2f %s. Please review the details on the screen.",
		in.Checks.NumChecks, in.Checks.Total(), acc.Currency)
	return e.success(state, msg, checkDepositFlow(acc, in.Checks))
}

func (e *Engine) finalizeTransfer(req Request, state *bank.SessionState) *bank.Result {
	in := state.Pending
	src, ok := findAccount(req.Accounts, in.SourceAccountID)
	if !ok {
		return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
	}

	var dst *bank.Account
	if !in.IsExternal {
		d, ok := findAccount(req.Accounts, in.DestinationAccountID)
		if !ok {
			return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
		}
		if d.ID == src.ID {
			// Source and destination must differ; re-prompt the destination.
			in.DestinationAccountID = 0
			if res := e.resolveSlot(req, state, bank.FieldDestinationAccountID); res != nil {
				return res
			}
			return e.advance(req, state)
		}
		dst = &d
	}

	return e.success(state, "I'll help you with that transfer. Please review the details on the screen.",
		transferFlow(src, dst, in.IsExternal, in.Amount))
}

func (e *Engine) finalizeChangePIN(req Request, state *bank.SessionState) *bank.Result {
	if _, ok := findAccount(req.Accounts, state.Pending.AccountID); !ok {
		return e.terminal(state, bank.ErrCodeAccountNotFound, accountNotFoundMessage)
	}
	// PIN entry happens at the secure keypad, never in chat, so there is no
	// screen flow to render.
	return e.success(state, "For security, PINs are changed at the keypad. Please select 'Change PIN' on the PIN pad and follow the prompts.", []bank.FlowStep{})
}

// breakdown serializes access to the shared random source.
func (e *Engine) breakdown(amount float64) Denominations {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Breakdown(amount, e.rng)
}

// clarification builds a recoverable MISSING_FIELDS result and records what
// kind of answer is expected next.
func (e *Engine) clarification(state *bank.SessionState, question string, options []bank.AccountOption, missing []string, await bank.Await, awaitField string) *bank.Result {
	state.Awaiting = await
	state.AwaitField = awaitField
	state.Options = options
	return &bank.Result{
		Success:             false,
		Message:             question,
		Intent:              state.Pending,
		FlowSteps:           []bank.FlowStep{},
		ClarificationNeeded: true,
		Options:             options,
		MissingFields:       missing,
		Error:               bank.ErrCodeMissingFields,
	}
}

// repeatClarification re-asks the current question without touching state.
func (e *Engine) repeatClarification(state *bank.SessionState, message string) *bank.Result {
	return &bank.Result{
		Success:             false,
		Message:             message,
		Intent:              state.Pending,
		FlowSteps:           []bank.FlowStep{},
		ClarificationNeeded: true,
		Options:             state.Options,
		MissingFields:       []string{state.AwaitField},
		Error:               bank.ErrCodeMissingFields,
	}
}

// terminal ends the pending intent with a non-recoverable error code.
func (e *Engine) terminal(state *bank.SessionState, code, message string) *bank.Result {
	in := state.Pending
	state.Reset()
	return &bank.Result{
		Success:   false,
		Message:   message,
		Intent:    in,
		FlowSteps: []bank.FlowStep{},
		Error:     code,
	}
}

// success returns the finalized result and discards the dispatched intent.
func (e *Engine) success(state *bank.SessionState, message string, steps []bank.FlowStep) *bank.Result {
	in := state.Pending
	state.Reset()
	return &bank.Result{
		Success:   true,
		Message:   message,
		Intent:    in,
		FlowSteps: steps,
	}
}

func (e *Engine) llmUnavailable() *bank.Result {
	e.metrics.Errors.WithLabelValues("llm_unavailable").Inc()
	return &bank.Result{
		Success:   false,
		Message:   "Conversational mode unavailable. Please use Traditional ATM.",
		FlowSteps: []bank.FlowStep{},
		Error:     bank.ErrCodeLLMUnavailable,
	}
}

const accountNotFoundMessage = "I couldn't find that account. Please try again."

func noAccountsMessage(typ bank.AccountType) string {
	if typ != "" {
		return fmt.Sprintf("You don't have a %s account available for this.", strings.ToLower(string(typ)))
	}
	return "No eligible accounts are available for this operation."
}

func operationLabel(res *bank.Result) string {
	if res.Intent != nil {
		return string(res.Intent.Operation)
	}
	return "none"
}

func outcomeLabel(res *bank.Result) string {
	switch {
	case res.ClarificationNeeded:
		return "clarification"
	case res.Success:
		return "success"
	case res.Error != "":
		return strings.ToLower(res.Error)
	}
	return "failed"
}
