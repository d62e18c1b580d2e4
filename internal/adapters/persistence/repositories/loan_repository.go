package repositories

import (
	"context"
	"time"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
)

// LoanRepository handles loan reads and the overdue sweep
type LoanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) *LoanRepository {
	return &LoanRepository{db: db}
}

// GetByID gets a loan by ID with relations
func (r *LoanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Book").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// ListByUser lists a patron's loans, open loans first
func (r *LoanRepository) ListByUser(ctx context.Context, userID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Preload("Book").
		Where("user_id = ?", userID).
		Order("returned_at IS NOT NULL, due_at ASC").
		Find(&loans).Error
	return loans, err
}

// List lists all loans with optional status filter and pagination
func (r *LoanRepository) List(ctx context.Context, status string, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	query.Count(&total)

	err := query.
		Preload("User").
		Preload("Book").
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error

	return loans, total, err
}

// MarkOverdue flips every lapsed BORROWED loan to OVERDUE in a single
// statement. Idempotent: loans already OVERDUE or RETURNED never match,
// and a concurrent return/renew on the same row wins because the WHERE
// clause no longer holds by the time this statement sees the row.
func (r *LoanRepository) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&models.Loan{}).
		Where("status = ? AND due_at < ?", domain.LoanBorrowed, now).
		Update("status", domain.LoanOverdue)
	return result.RowsAffected, result.Error
}
