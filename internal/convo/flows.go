package convo

import (
	"bankchat/internal/bank"
)

// Flow builders. Step names are a protocol contract with the UI renderer;
// see the vocabulary in the bank package.

func balanceFlow(acc bank.Account) []bank.FlowStep {
	return []bank.FlowStep{
		{Step: bank.StepBalanceDisplay, Data: map[string]any{
			"account_id":   acc.ID,
			"account_name": acc.Label(),
			"balance":      acc.Balance,
			"currency":     acc.Currency,
		}},
	}
}

func withdrawalFlow(acc bank.Account, amount float64, denoms Denominations) []bank.FlowStep {
	return []bank.FlowStep{
		{Step: bank.StepAccountSelection, Data: map[string]any{
			"account_id": acc.ID, "account_name": acc.Label(),
		}},
		{Step: bank.StepWithdrawalAmount, Data: map[string]any{
			"amount": amount, "currency": acc.Currency,
		}},
		{Step: bank.StepDenominationBreakdown, Data: denoms.Data()},
		{Step: bank.StepWithdrawalConfirmation, Data: map[string]any{
			"operation": string(bank.OpWithdraw), "account_id": acc.ID, "amount": amount,
		}},
	}
}

func cashDepositFlow(acc bank.Account, amount float64, denoms *Denominations) []bank.FlowStep {
	amountData := map[string]any{"currency": acc.Currency}
	if amount > 0 {
		amountData["amount"] = amount
	}
	denomData := map[string]any{}
	if denoms != nil {
		denomData = denoms.Data()
	}
	return []bank.FlowStep{
		{Step: bank.StepAccountSelection, Data: map[string]any{
			"account_id": acc.ID, "account_name": acc.Label(),
		}},
		{Step: bank.StepCashDepositAmount, Data: amountData},
		{Step: bank.StepDenominationBreakdown, Data: denomData},
		{Step: bank.StepCashDepositReview, Data: map[string]any{
			"account_id": acc.ID, "amount": amount,
		}},
		{Step: bank.StepCashDepositConfirmation, Data: map[string]any{
			"operation": string(bank.OpCashDeposit),
		}},
	}
}

func checkDepositFlow(acc bank.Account, checks *bank.CheckCollection) []bank.FlowStep {
	items := make([]map[string]any, 0, len(checks.Collected))
	for _, chk := range checks.Collected {
		items = append(items, map[string]any{
			"check_number": chk.CheckNumber,
			"check_date":   chk.CheckDate,
			"payer_name":   chk.PayerName,
			"amount":       chk.Amount,
		})
	}
	total := checks.Total()
	return []bank.FlowStep{
		{Step: bank.StepAccountSelection, Data: map[string]any{
			"account_id": acc.ID, "account_name": acc.Label(),
		}},
		{Step: bank.StepCheckDepositScreen, Data: map[string]any{
			"num_checks": checks.NumChecks,
			"checks":     items,
			"total":      total,
		}},
		{Step: bank.StepCheckDepositReview, Data: map[string]any{
			"account_id": acc.ID, "total": total,
		}},
		{Step: bank.StepCheckDepositConfirmation, Data: map[string]any{
			"operation": string(bank.OpCheckDeposit),
		}},
	}
}

func transferFlow(src bank.Account, dst *bank.Account, external bool, amount float64) []bank.FlowStep {
	destData := map[string]any{"external": external}
	if dst != nil {
		destData["account_id"] = dst.ID
		destData["account_name"] = dst.Label()
	}
	reviewData := map[string]any{
		"from_account_id": src.ID,
		"amount":          amount,
		"external":        external,
	}
	if dst != nil {
		reviewData["to_account_id"] = dst.ID
	}
	return []bank.FlowStep{
		{Step: bank.StepSourceAccountSelection, Data: map[string]any{
			"account_id": src.ID, "account_name": src.Label(),
		}},
		{Step: bank.StepDestinationAccountSelection, Data: destData},
		{Step: bank.StepTransferAmount, Data: map[string]any{
			"amount": amount, "currency": src.Currency,
		}},
		{Step: bank.StepTransferReview, Data: reviewData},
		{Step: bank.StepTransferConfirmation, Data: map[string]any{
			"operation": string(bank.OpTransfer),
		}},
	}
}
