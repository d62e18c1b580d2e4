package services

import (
	"context"
	"log"
	"time"

	"liblend/internal/adapters/persistence/repositories"
)

// OverdueService reclassifies lapsed loans. The sweep is idempotent and
// safe to run concurrently with borrow/return/renew: it only ever moves
// BORROWED loans whose due date has passed to OVERDUE, and a return or
// renew that commits first simply takes the row out of the sweep's reach.
type OverdueService struct {
	loans repositories.LoanSweeper
}

// NewOverdueService creates a new overdue service
func NewOverdueService(loans repositories.LoanSweeper) *OverdueService {
	return &OverdueService{loans: loans}
}

// Sweep marks every lapsed BORROWED loan as OVERDUE and returns the
// number of loans updated. A second run with no newly lapsed loans
// updates zero rows.
func (s *OverdueService) Sweep(ctx context.Context) (int64, error) {
	updated, err := s.loans.MarkOverdue(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		log.Printf("✅ Overdue sweep marked %d loan(s)", updated)
	}
	return updated, nil
}
