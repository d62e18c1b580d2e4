package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    LoanStatus
		to      LoanStatus
		allowed bool
	}{
		{"borrowed to overdue", LoanBorrowed, LoanOverdue, true},
		{"borrowed to returned", LoanBorrowed, LoanReturned, true},
		{"borrowed to borrowed on renew", LoanBorrowed, LoanBorrowed, true},
		{"overdue to returned", LoanOverdue, LoanReturned, true},
		{"overdue back to borrowed on extension", LoanOverdue, LoanBorrowed, true},
		{"returned is terminal for borrowed", LoanReturned, LoanBorrowed, false},
		{"returned is terminal for overdue", LoanReturned, LoanOverdue, false},
		{"returned is terminal for returned", LoanReturned, LoanReturned, false},
		{"overdue cannot re-enter overdue", LoanOverdue, LoanOverdue, false},
		{"unknown status has no transitions", LoanStatus("LOST"), LoanReturned, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestLoanStatusIsOpen(t *testing.T) {
	assert.True(t, LoanBorrowed.IsOpen())
	assert.True(t, LoanOverdue.IsOpen())
	assert.False(t, LoanReturned.IsOpen())
	assert.False(t, LoanStatus("").IsOpen())
}

func TestLoanStatusValid(t *testing.T) {
	assert.True(t, LoanBorrowed.Valid())
	assert.True(t, LoanOverdue.Valid())
	assert.True(t, LoanReturned.Valid())
	assert.False(t, LoanStatus("LOST").Valid())
	assert.False(t, LoanStatus("").Valid())
}
