package convo

import (
	"bankchat/internal/bank"
)

// candidates filters the snapshot by canonical type, excluding one id.
// An empty type matches every account.
func candidates(accounts []bank.Account, typ bank.AccountType, excludeID int64) []bank.Account {
	var out []bank.Account
	for _, acc := range accounts {
		if typ != "" && acc.CanonicalType != typ {
			continue
		}
		if excludeID != 0 && acc.ID == excludeID {
			continue
		}
		out = append(out, acc)
	}
	return out
}

func findAccount(accounts []bank.Account, id int64) (bank.Account, bool) {
	for _, acc := range accounts {
		if acc.ID == id {
			return acc, true
		}
	}
	return bank.Account{}, false
}

func optionsFor(accounts []bank.Account) []bank.AccountOption {
	opts := make([]bank.AccountOption, 0, len(accounts))
	for _, acc := range accounts {
		opts = append(opts, bank.AccountOption{
			ID:       acc.ID,
			Label:    acc.Label(),
			Type:     acc.CanonicalType,
			Balance:  acc.Balance,
			Currency: acc.Currency,
		})
	}
	return opts
}

func optionByID(opts []bank.AccountOption, id int64) bool {
	for _, opt := range opts {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// patchAccountSlot writes a selected account id into the named slot. With no
// slot named, a TRANSFER fills the first missing of source then destination;
// everything else fills account_id.
func patchAccountSlot(in *bank.Intent, field string, id int64) {
	if field == "" && in.Operation == bank.OpTransfer {
		if in.SourceAccountID == 0 {
			field = bank.FieldSourceAccountID
		} else {
			field = bank.FieldDestinationAccountID
		}
	}
	switch field {
	case bank.FieldSourceAccountID:
		in.SourceAccountID = id
	case bank.FieldDestinationAccountID:
		in.DestinationAccountID = id
	default:
		in.AccountID = id
	}
}

// slotQuestions is the fixed field-to-question lookup used when validation
// fails, keyed by operation then field. The empty operation row is the
// fallback.
var slotQuestions = map[bank.Operation]map[string]string{
	bank.OpBalanceInquiry: {
		bank.FieldAccountID: "Which account would you like to check?",
	},
	bank.OpWithdraw: {
		bank.FieldAccountID: "Which account would you like to withdraw from?",
		bank.FieldAmount:    "How much would you like to withdraw?",
	},
	bank.OpCashDeposit: {
		bank.FieldAccountID: "Which account would you like to deposit into?",
	},
	bank.OpCheckDeposit: {
		bank.FieldAccountID: "Which account would you like to deposit your checks into?",
	},
	bank.OpTransfer: {
		bank.FieldSourceAccountID:      "Which account should the money come from?",
		bank.FieldDestinationAccountID: "Which account should receive the money?",
		bank.FieldAmount:               "How much would you like to transfer?",
	},
	bank.OpChangePIN: {
		bank.FieldAccountID: "Which account is this PIN change for?",
	},
}

const (
	genericQuestion   = "I need a bit more information to continue. Could you give me more details?"
	operationQuestion = "I can help with withdrawals, cash or check deposits, transfers, balance checks and PIN changes. What would you like to do?"
)

func questionFor(op bank.Operation, field string) string {
	if field == bank.FieldOperation {
		return operationQuestion
	}
	if byField, ok := slotQuestions[op]; ok {
		if q, ok := byField[field]; ok {
			return q
		}
	}
	return genericQuestion
}
