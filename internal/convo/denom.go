package convo

import (
	"math"
	"math/rand"
)

// Denominations is the simulated bill breakdown for a cash amount. Under the
// current cassette policy coins are never dispensed.
type Denominations struct {
	Bills100    int     `json:"bills_100"`
	Bills50     int     `json:"bills_50"`
	Bills20     int     `json:"bills_20"`
	Bills10     int     `json:"bills_10"`
	Bills5      int     `json:"bills_5"`
	Bills1      int     `json:"bills_1"`
	CoinsAmount float64 `json:"coins_amount"`
}

// Total sums the bill values. It always equals floor(amount) for the amount
// the breakdown was built from.
func (d Denominations) Total() int {
	return d.Bills100*100 + d.Bills50*50 + d.Bills20*20 + d.Bills10*10 + d.Bills5*5 + d.Bills1
}

// Data renders the breakdown for a flow step payload.
func (d Denominations) Data() map[string]any {
	return map[string]any{
		"bills_100":    d.Bills100,
		"bills_50":     d.Bills50,
		"bills_20":     d.Bills20,
		"bills_10":     d.Bills10,
		"bills_5":      d.Bills5,
		"bills_1":      d.Bills1,
		"coins_amount": d.CoinsAmount,
	}
}

// Breakdown allocates roughly 70% of the whole-dollar amount to $100 bills,
// rounded down to a full hundred, draws the $50 count uniformly from what
// fits, and fills the rest greedily from $20 down to $1.
func Breakdown(amount float64, rng *rand.Rand) Denominations {
	var d Denominations
	remaining := int(math.Floor(amount))
	if remaining <= 0 {
		return d
	}

	hundreds := int(float64(remaining)*0.7) / 100 * 100
	d.Bills100 = hundreds / 100
	remaining -= hundreds

	if remaining >= 50 {
		d.Bills50 = rng.Intn(remaining/50 + 1)
		remaining -= d.Bills50 * 50
	}

	d.Bills20 = remaining / 20
	remaining %= 20
	d.Bills10 = remaining / 10
	remaining %= 10
	d.Bills5 = remaining / 5
	d.Bills1 = remaining % 5

	return d
}
