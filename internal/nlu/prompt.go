package nlu

import (
	"fmt"
	"strings"

	"bankchat/internal/bank"
)

// extractionPrompt asks the model to map one user message onto the intent
// schema. The reply must be a single JSON object.
func extractionPrompt(message string, accounts []bank.Account) string {
	var sb strings.Builder
	sb.WriteString("You are an intent classifier for an ATM banking assistant. ")
	sb.WriteString("Classify the user message into exactly one JSON object and reply with that object only, no extra text.\n\n")
	sb.WriteString("JSON format:\n")
	sb.WriteString(`{"operation":"string","account_id":0,"source_account_id":0,"destination_account_id":0,"account_type":"","source_account_type":"","destination_account_type":"","amount":0,"currency":"USD","is_external":false,"check_number":"","pin_change":false}` + "\n\n")
	sb.WriteString("Operations: WITHDRAW, DEPOSIT, CASH_DEPOSIT, CHECK_DEPOSIT, TRANSFER, PAYMENT, BALANCE_INQUIRY, CHANGE_PIN.\n")
	sb.WriteString("Mapping rules:\n")
	sb.WriteString("- \"take out\", \"get cash\", \"withdraw\" -> WITHDRAW.\n")
	sb.WriteString("- depositing cash, bills or coins -> CASH_DEPOSIT.\n")
	sb.WriteString("- depositing a check, cheque or paycheck -> CHECK_DEPOSIT. A \"check\" is a paper financial instrument.\n")
	sb.WriteString("- \"checking account\" and \"chequing account\" are account types, NOT check deposits.\n")
	sb.WriteString("- moving money between accounts or to another bank -> TRANSFER; set is_external true when the destination is outside this bank.\n")
	sb.WriteString("- asking for a balance -> BALANCE_INQUIRY.\n")
	sb.WriteString("- changing the PIN -> CHANGE_PIN with pin_change true.\n")
	sb.WriteString("- Account types must be normalized to CHECKING or SAVINGS; product names like \"Everyday Chequing\" or \"Holiday Savings\" map to their canonical type.\n")
	sb.WriteString("- Leave numeric fields at 0 and strings empty when the message does not state them. Never invent ids or amounts.\n\n")

	if len(accounts) > 0 {
		sb.WriteString("Customer accounts:\n")
		for _, acc := range accounts {
			sb.WriteString(fmt.Sprintf("- id=%d type=%s name=%q balance=%.2f %s\n",
				acc.ID, acc.CanonicalType, acc.Label(), acc.Balance, acc.Currency))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("User message:\n")
	sb.WriteString(message)
	return sb.String()
}

// fallbackPrompt assembles the open-ended prompt from the last turns of the
// conversation, mirroring the screen-free assistant behavior.
func fallbackPrompt(history []bank.ConversationTurn, message string) string {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n")

	tail := history
	if len(tail) > 5 {
		tail = tail[len(tail)-5:]
	}
	for _, turn := range tail {
		sb.WriteString(string(turn.Sender))
		sb.WriteString(": ")
		sb.WriteString(turn.Content)
		sb.WriteString("\n")
	}
	sb.WriteString("USER: ")
	sb.WriteString(message)
	sb.WriteString("\nASSISTANT: ")
	return sb.String()
}

const systemPrompt = `You are a helpful ATM banking assistant. Follow these rules strictly:

1. Never hallucinate or make up account balances - always use the provided tools to get real data
2. Always confirm transaction details before executing
3. Require PIN confirmation for withdrawals and transfers
4. Provide clear, concise responses
5. If you need information, ask clarifying questions
6. Summarize the transaction before executing
7. Handle errors gracefully and provide specific error messages

Available operations:
- Balance inquiry
- Withdraw money
- Deposit money
- Transfer between accounts
- Generate receipts

Always be professional, secure, and accurate.`
