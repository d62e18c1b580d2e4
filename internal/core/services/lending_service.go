package services

import (
	"context"
	"errors"
	"log"
	"time"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
)

// LendingService is the lending transaction coordinator. Every mutating
// operation runs as one atomic storage transaction: read, validate and
// write under row locks, commit, and only then append the audit record.
// No in-memory state survives between calls; every invocation re-reads
// policy and rows from storage.
//
// Lock order: borrow takes the patron row, then the book row; return
// and renew take the loan row, then the book row. The book row is
// always acquired last, so concurrent operations cannot deadlock.
type LendingService struct {
	store repositories.LendingStore
	users repositories.UserReader
	audit *AuditService
}

// NewLendingService creates a new lending service
func NewLendingService(store repositories.LendingStore, users repositories.UserReader, audit *AuditService) *LendingService {
	return &LendingService{
		store: store,
		users: users,
		audit: audit,
	}
}

// BorrowResult represents a successful borrow
type BorrowResult struct {
	LoanID uint      `json:"loan_id"`
	DueAt  time.Time `json:"due_at"`
}

// ReturnResult represents a successful return
type ReturnResult struct {
	WasLate bool `json:"was_late"`
}

// RenewResult represents a successful renewal
type RenewResult struct {
	NewDueAt          time.Time `json:"new_due_at"`
	RenewalsRemaining int       `json:"renewals_remaining"`
}

// Borrow opens a loan for one copy of a book. createdBy is set when an
// admin opens the loan on behalf of the patron, nil for self-service.
func (s *LendingService) Borrow(ctx context.Context, userID, bookID uint, createdBy *uint) (*BorrowResult, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	var result BorrowResult
	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		settings, err := tx.GetSettings()
		if err != nil {
			return err
		}

		// The patron row lock serializes this patron's borrows across
		// all titles; with the locking loan counts it keeps the limit
		// and duplicate checks race-free even when two concurrent
		// borrows hold different book locks.
		patron, err := tx.GetUserForUpdate(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrForbidden
			}
			return err
		}
		if !patron.IsActive {
			return domain.ErrForbidden
		}

		open, err := tx.CountOpenLoansByUser(userID)
		if err != nil {
			return err
		}
		if open >= int64(settings.MaxLoansPerStudent) {
			return domain.ErrLimitReached
		}

		book, err := tx.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookNotFound
			}
			return err
		}

		dup, err := tx.HasOpenLoan(userID, bookID)
		if err != nil {
			return err
		}
		if dup {
			return domain.ErrDuplicateLoan
		}

		if !book.IsActive {
			return domain.ErrBookInactive
		}
		if book.AvailableCopies <= 0 {
			if book.AvailableCopies < 0 {
				return domain.ConsistencyFault("book %d has negative available copies (%d)", book.ID, book.AvailableCopies)
			}
			return domain.ErrNotAvailable
		}

		book.AvailableCopies--
		if err := tx.SaveBook(book); err != nil {
			return err
		}

		now := time.Now()
		loan := &models.Loan{
			UserID:     userID,
			BookID:     bookID,
			BorrowedAt: now,
			DueAt:      now.AddDate(0, 0, settings.DefaultLoanDays),
			Status:     string(domain.LoanBorrowed),
			CreatedBy:  createdBy,
		}
		if err := tx.CreateLoan(loan); err != nil {
			// The open-loan unique index is the storage-level backstop
			// behind the duplicate check above.
			if repositories.IsDuplicateKey(err) {
				return domain.ErrDuplicateLoan
			}
			return err
		}

		result = BorrowResult{LoanID: loan.ID, DueAt: loan.DueAt}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Return closes a loan and releases its copy. Non-admin callers must own
// the loan. Admin-initiated returns are audited as an override.
func (s *LendingService) Return(ctx context.Context, loanID, userID uint, isAdmin bool) (*ReturnResult, error) {
	if !isAdmin && userID == 0 {
		return nil, domain.ErrUnauthenticated
	}
	if isAdmin {
		if err := requireAdmin(ctx, s.users, userID); err != nil {
			return nil, err
		}
	}

	var result ReturnResult
	var bookID uint
	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		loan, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLoanNotFound
			}
			return err
		}

		if !isAdmin && loan.UserID != userID {
			return domain.ErrNotOwner
		}
		if loan.IsReturned() {
			return domain.ErrAlreadyReturned
		}
		if !domain.CanTransition(domain.LoanStatus(loan.Status), domain.LoanReturned) {
			return domain.ConsistencyFault("loan %d in unexpected status %q", loan.ID, loan.Status)
		}

		now := time.Now()
		loan.Status = string(domain.LoanReturned)
		loan.ReturnedAt = &now
		loan.WasLate = loan.DueAt.Before(now)
		if err := tx.SaveLoan(loan); err != nil {
			return err
		}

		book, err := tx.GetBookForUpdate(loan.BookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ConsistencyFault("loan %d references missing book %d", loan.ID, loan.BookID)
			}
			return err
		}
		// Releasing past the total means a copy was returned that was
		// never reserved. That is a broken ledger, not something to clamp.
		if book.AvailableCopies >= book.TotalCopies {
			return domain.ConsistencyFault("book %d release would exceed total copies (%d/%d)", book.ID, book.AvailableCopies, book.TotalCopies)
		}
		book.AvailableCopies++
		if err := tx.SaveBook(book); err != nil {
			return err
		}

		bookID = book.ID
		result = ReturnResult{WasLate: loan.WasLate}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrConsistencyFault) {
			log.Printf("❌ Consistency fault on return of loan %d: %v", loanID, err)
		}
		return nil, err
	}

	if isAdmin {
		s.recordAudit(ctx, userID, models.AuditLoanOverride, map[string]interface{}{
			"loan_id": loanID,
			"book_id": bookID,
		})
	}
	return &result, nil
}

// Renew extends a loan's due date. The new due date is computed from the
// renewal time, not the previous due date, so a near-due loan always
// gets a full loan period.
func (s *LendingService) Renew(ctx context.Context, loanID, userID uint) (*RenewResult, error) {
	if userID == 0 {
		return nil, domain.ErrUnauthenticated
	}

	var result RenewResult
	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		loan, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLoanNotFound
			}
			return err
		}

		if loan.UserID != userID {
			return domain.ErrNotOwner
		}
		if loan.IsReturned() {
			return domain.ErrAlreadyReturned
		}

		settings, err := tx.GetSettings()
		if err != nil {
			return err
		}
		if !settings.AllowRenewals || loan.RenewCount >= settings.MaxRenewals {
			return domain.ErrRenewalDenied
		}

		loan.DueAt = time.Now().AddDate(0, 0, settings.DefaultLoanDays)
		loan.RenewCount++
		loan.Status = string(domain.LoanBorrowed)
		if err := tx.SaveLoan(loan); err != nil {
			return err
		}

		result = RenewResult{
			NewDueAt:          loan.DueAt,
			RenewalsRemaining: settings.MaxRenewals - loan.RenewCount,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ExtendDueDate sets a new due date on an open loan (admin only). An
// overdue loan goes back to BORROWED since the new date is in the future.
func (s *LendingService) ExtendDueDate(ctx context.Context, loanID uint, newDueAt time.Time, adminID uint) error {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return err
	}
	if !newDueAt.After(time.Now()) {
		return domain.ErrValidation
	}

	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		loan, err := tx.GetLoanForUpdate(loanID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrLoanNotFound
			}
			return err
		}

		if loan.IsReturned() {
			return domain.ErrAlreadyReturned
		}

		loan.DueAt = newDueAt
		loan.Status = string(domain.LoanBorrowed)
		return tx.SaveLoan(loan)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, adminID, models.AuditLoanExtend, map[string]interface{}{
		"loan_id":    loanID,
		"new_due_at": newDueAt,
	})
	return nil
}

// AdjustCatalogTotal changes a book's total copy count (admin only).
// The new total may not go below the number of copies currently out on
// loan; available copies are recomputed to preserve the ledger invariant.
func (s *LendingService) AdjustCatalogTotal(ctx context.Context, bookID uint, newTotal int, adminID uint) error {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return err
	}
	if newTotal < 1 {
		return domain.ErrValidation
	}

	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		book, err := tx.GetBookForUpdate(bookID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrBookNotFound
			}
			return err
		}

		borrowed := book.BorrowedCopies()
		if newTotal < borrowed {
			return domain.ErrBelowBorrowed
		}

		book.TotalCopies = newTotal
		book.AvailableCopies = newTotal - borrowed
		return tx.SaveBook(book)
	})
	if err != nil {
		return err
	}

	s.recordAudit(ctx, adminID, models.AuditBookAdjustTotal, map[string]interface{}{
		"book_id":   bookID,
		"new_total": newTotal,
	})
	return nil
}

// recordAudit appends an audit entry after a committed mutation. A
// failed append is degraded success: logged, never propagated.
func (s *LendingService) recordAudit(ctx context.Context, adminID uint, action string, metadata map[string]interface{}) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, adminID, action, metadata); err != nil {
		logDegradedAudit(action, adminID, err)
	}
}

// requireAdmin re-validates role membership from storage before a
// privileged mutation. The caller's authentication is trusted, its role
// is not.
func requireAdmin(ctx context.Context, users repositories.UserReader, adminID uint) error {
	if adminID == 0 {
		return domain.ErrUnauthenticated
	}
	user, err := users.GetByID(ctx, adminID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !user.IsAdmin() || !user.IsActive {
		return domain.ErrForbidden
	}
	return nil
}
