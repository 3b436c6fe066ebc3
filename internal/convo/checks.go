package convo

import (
	"fmt"

	"bankchat/internal/bank"
)

// maxChecksPerDeposit bounds one batch; counts above it are rejected.
const maxChecksPerDeposit = 50

// payerNames is the fixed pool used to synthesize check details. A real
// deployment reads these from the check scanner; the reader integration is
// stubbed here.
var payerNames = []string{
	"John Smith",
	"Acme Corp",
	"Jane Doe",
	"Global Industries LLC",
	"Robert Johnson",
}

// synthesizeCheck fabricates the non-amount fields of a collected check.
func (e *Engine) synthesizeCheck(amount float64) bank.CheckItem {
	e.mu.Lock()
	number := e.rng.Intn(9000) + 1000
	payer := payerNames[e.rng.Intn(len(payerNames))]
	e.mu.Unlock()

	return bank.CheckItem{
		CheckNumber: fmt.Sprintf("%04d", number),
		CheckDate:   e.now().Format("2006-01-02"),
		PayerName:   payer,
		Amount:      amount,
	}
}
