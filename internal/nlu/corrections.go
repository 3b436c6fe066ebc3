package nlu

import (
	"regexp"

	"bankchat/internal/bank"
)

// The model misclassifies deposit variants often enough that classification
// is re-checked against the raw message. Rules run in order and must stay
// auditable without re-querying the model.
type correction struct {
	name    string
	applies func(message string, in *bank.Intent) bool
	apply   func(in *bank.Intent)
}

var (
	// Word-bounded so "checking"/"chequing" never counts as a check.
	checkWords = regexp.MustCompile(`(?i)\b(?:pay)?che(?:ck|que)s?\b`)
	cashWords  = regexp.MustCompile(`(?i)\b(?:cash|bills?|coins?|banknotes?)\b`)
)

var corrections = []correction{
	{
		name: "cash_words_force_cash_deposit",
		applies: func(message string, in *bank.Intent) bool {
			return in.Operation == bank.OpDeposit && cashWords.MatchString(message)
		},
		apply: func(in *bank.Intent) { in.Operation = bank.OpCashDeposit },
	},
	{
		name: "check_words_force_check_deposit",
		applies: func(message string, in *bank.Intent) bool {
			if in.Operation != bank.OpDeposit && in.Operation != bank.OpCashDeposit {
				return false
			}
			return checkWords.MatchString(message)
		},
		apply: func(in *bank.Intent) { in.Operation = bank.OpCheckDeposit },
	},
}
