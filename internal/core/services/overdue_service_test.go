package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
)

func TestSweepMarksLapsedLoans(t *testing.T) {
	store := newFakeStore()
	svc := NewOverdueService(store)

	bookID := store.addBook(activeBook("BK-1", 5, 2))
	lapsedA := store.addLoan(models.Loan{
		UserID: 1, BookID: bookID,
		DueAt:  time.Now().AddDate(0, 0, -1),
		Status: string(domain.LoanBorrowed),
	})
	lapsedB := store.addLoan(models.Loan{
		UserID: 2, BookID: bookID,
		DueAt:  time.Now().AddDate(0, 0, -5),
		Status: string(domain.LoanBorrowed),
	})
	current := store.addLoan(models.Loan{
		UserID: 3, BookID: bookID,
		DueAt:  time.Now().AddDate(0, 0, 3),
		Status: string(domain.LoanBorrowed),
	})
	returnedAt := time.Now()
	returned := store.addLoan(models.Loan{
		UserID: 4, BookID: bookID,
		DueAt:      time.Now().AddDate(0, 0, -10),
		ReturnedAt: &returnedAt,
		Status:     string(domain.LoanReturned),
	})

	marked, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	assert.Equal(t, string(domain.LoanOverdue), store.loan(lapsedA).Status)
	assert.Equal(t, string(domain.LoanOverdue), store.loan(lapsedB).Status)
	assert.Equal(t, string(domain.LoanBorrowed), store.loan(current).Status)
	// Closed loans are out of the sweep's reach no matter how old.
	assert.Equal(t, string(domain.LoanReturned), store.loan(returned).Status)
}

func TestSweepIsIdempotent(t *testing.T) {
	store := newFakeStore()
	svc := NewOverdueService(store)

	bookID := store.addBook(activeBook("BK-1", 1, 0))
	store.addLoan(models.Loan{
		UserID: 1, BookID: bookID,
		DueAt:  time.Now().AddDate(0, 0, -1),
		Status: string(domain.LoanBorrowed),
	})

	first, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), first)

	second, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), second)
}

func TestSweepEmptyStore(t *testing.T) {
	svc := NewOverdueService(newFakeStore())

	marked, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), marked)
}
