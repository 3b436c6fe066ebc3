package convo

import "bankchat/internal/bank"

// requirement is one required slot for an operation.
type requirement struct {
	field   string
	missing func(in *bank.Intent) bool
}

var (
	needAccount = requirement{bank.FieldAccountID, func(in *bank.Intent) bool {
		return in.AccountID == 0
	}}
	needAmount = requirement{bank.FieldAmount, func(in *bank.Intent) bool {
		return in.Amount <= 0
	}}
	needSource = requirement{bank.FieldSourceAccountID, func(in *bank.Intent) bool {
		return in.SourceAccountID == 0
	}}
	needDestination = requirement{bank.FieldDestinationAccountID, func(in *bank.Intent) bool {
		return in.DestinationAccountID == 0 && !in.IsExternal
	}}
)

// requirements lists required slots per operation, in the order they are
// clarified. CHECK_DEPOSIT amounts are collected conversationally, so only
// the account is required upfront.
var requirements = map[bank.Operation][]requirement{
	bank.OpBalanceInquiry: {{bank.FieldAccountID, func(in *bank.Intent) bool {
		return in.AccountID == 0 && in.AccountType == ""
	}}},
	bank.OpWithdraw:     {needAccount, needAmount},
	bank.OpCashDeposit:  {needAccount},
	bank.OpCheckDeposit: {needAccount},
	bank.OpTransfer:     {needSource, needDestination, needAmount},
	bank.OpChangePIN:    {needAccount},
}

// Validate returns the missing or invalid fields for the intent, in
// clarification order. DEPOSIT and PAYMENT have no direct flow and report the
// operation itself, as does anything outside the vocabulary.
func Validate(in *bank.Intent) []string {
	switch in.Operation {
	case bank.OpDeposit, bank.OpPayment:
		return []string{bank.FieldOperation}
	}

	reqs, ok := requirements[in.Operation]
	if !ok {
		return []string{bank.FieldOperation}
	}

	var missing []string
	for _, req := range reqs {
		if req.missing(in) {
			missing = append(missing, req.field)
		}
	}
	return missing
}
