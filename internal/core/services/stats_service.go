package services

import (
	"context"

	"gorm.io/gorm"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
)

// StatsService aggregates library-wide counters
type StatsService struct {
	db *gorm.DB
}

// NewStatsService creates a new stats service
func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// StatsSnapshot represents library-wide statistics read at one instant
type StatsSnapshot struct {
	TotalBooks      int64 `json:"total_books"`
	TotalCopies     int64 `json:"total_copies"`
	AvailableCopies int64 `json:"available_copies"`
	ActiveLoans     int64 `json:"active_loans"`
	OverdueLoans    int64 `json:"overdue_loans"`
	ReturnedLoans   int64 `json:"returned_loans"`
	TotalStudents   int64 `json:"total_students"`
}

// Snapshot reads all counters inside a single transaction so the
// figures are mutually consistent even while loans are in flight.
func (s *StatsService) Snapshot(ctx context.Context) (*StatsSnapshot, error) {
	snap := &StatsSnapshot{}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Book{}).Count(&snap.TotalBooks).Error; err != nil {
			return err
		}

		type copySums struct {
			Total     int64
			Available int64
		}
		var sums copySums
		if err := tx.Model(&models.Book{}).
			Select("COALESCE(SUM(total_copies), 0) AS total, COALESCE(SUM(available_copies), 0) AS available").
			Scan(&sums).Error; err != nil {
			return err
		}
		snap.TotalCopies = sums.Total
		snap.AvailableCopies = sums.Available

		if err := tx.Model(&models.Loan{}).
			Where("status <> ?", domain.LoanReturned).
			Count(&snap.ActiveLoans).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Loan{}).
			Where("status = ?", domain.LoanOverdue).
			Count(&snap.OverdueLoans).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Loan{}).
			Where("status = ?", domain.LoanReturned).
			Count(&snap.ReturnedLoans).Error; err != nil {
			return err
		}
		return tx.Model(&models.User{}).
			Where("role = ? AND is_active = ?", domain.RoleStudent, true).
			Count(&snap.TotalStudents).Error
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
