package domain

// Loan lifecycle: BORROWED is the initial state, RETURNED is terminal.
// Only the overdue sweep moves BORROWED to OVERDUE; only a return moves
// an open loan to RETURNED; a renew moves OVERDUE back to BORROWED.
var loanTransitions = map[LoanStatus][]LoanStatus{
	LoanBorrowed: {LoanOverdue, LoanReturned, LoanBorrowed},
	LoanOverdue:  {LoanReturned, LoanBorrowed},
	LoanReturned: {},
}

// CanTransition reports whether a loan may move from one status to another.
// BORROWED -> BORROWED is allowed because a renew keeps the status while
// extending the due date.
func CanTransition(from, to LoanStatus) bool {
	for _, next := range loanTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsOpen reports whether a loan in the given status still holds a copy.
func (s LoanStatus) IsOpen() bool {
	return s == LoanBorrowed || s == LoanOverdue
}

// Valid reports whether s is one of the known loan statuses.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanBorrowed, LoanOverdue, LoanReturned:
		return true
	}
	return false
}
