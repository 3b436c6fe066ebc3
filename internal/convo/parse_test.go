package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"50", 50, true},
		{" 50 ", 50, true},
		{"$50", 50, true},
		{"1,200.50", 1200.50, true},
		{"0", 0, true},
		{"fifty", 0, false},
		{"50 dollars", 0, false},
		{"-50", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseAmount(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestParseSelection(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"3", 3, true},
		{"account 3", 3, true},
		{"Account:3", 3, true},
		{"account#12", 12, true},
		{"ACCOUNT_7", 7, true},
		{"the first one", 0, false},
		{"3 please", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseSelection(tc.in)
		assert.Equal(t, tc.ok, ok, "input %q", tc.in)
		if ok {
			assert.Equal(t, tc.want, got, "input %q", tc.in)
		}
	}
}

func TestParseCount(t *testing.T) {
	n, ok := parseCount(" 4 ")
	assert.True(t, ok)
	assert.Equal(t, 4, n)

	_, ok = parseCount("four")
	assert.False(t, ok)

	n, ok = parseCount("-2")
	assert.True(t, ok, "sign is for the caller to range-check")
	assert.Equal(t, -2, n)
}
