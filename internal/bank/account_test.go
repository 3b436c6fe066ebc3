package bank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalAccountType(t *testing.T) {
	cases := []struct {
		rawType, name string
		want          AccountType
	}{
		{"CHECKING", "", AccountChecking},
		{"SAVINGS", "", AccountSavings},
		{"savings", "", AccountSavings},
		{"DDA", "", AccountChecking},
		{"CHK", "", AccountChecking},
		{"PRODUCT_X", "Everyday Chequing", AccountChecking},
		{"PRODUCT_Y", "Holiday Savings", AccountSavings},
		{"PRODUCT_Z", "Premium Saver", AccountSavings},
		{"", "", AccountChecking}, // unknown defaults to checking
	}
	for _, tc := range cases {
		got := CanonicalAccountType(tc.rawType, tc.name)
		assert.Equal(t, tc.want, got, "type=%q name=%q", tc.rawType, tc.name)
	}
}

func TestAccountLabel(t *testing.T) {
	named := Account{CanonicalType: AccountChecking, AccountName: "Everyday Checking"}
	assert.Equal(t, "Everyday Checking", named.Label())

	unnamed := Account{CanonicalType: AccountSavings}
	assert.Equal(t, "Savings", unnamed.Label())
}

func TestCheckCollection(t *testing.T) {
	var nilChecks *CheckCollection
	assert.False(t, nilChecks.Complete())
	assert.Zero(t, nilChecks.Total())

	c := &CheckCollection{NumChecks: 2}
	assert.False(t, c.Complete())

	c.Collected = append(c.Collected, CheckItem{Amount: 100}, CheckItem{Amount: 250.50})
	assert.True(t, c.Complete())
	assert.Equal(t, 350.50, c.Total())
}

func TestSessionStateReset(t *testing.T) {
	s := &SessionState{
		Pending:    &Intent{Operation: OpWithdraw},
		Awaiting:   AwaitAmount,
		AwaitField: FieldAccountID,
		Options:    []AccountOption{{ID: 1}},
	}
	s.Reset()
	assert.Nil(t, s.Pending)
	assert.Equal(t, AwaitNone, s.Awaiting)
	assert.Empty(t, s.AwaitField)
	assert.Nil(t, s.Options)
}
