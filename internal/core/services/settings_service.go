package services

import (
	"context"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/core/domain"
)

// SettingsService manages the single lending policy row
type SettingsService struct {
	store repositories.LendingStore
	users repositories.UserReader
	audit *AuditService
}

// NewSettingsService creates a new settings service
func NewSettingsService(store repositories.LendingStore, users repositories.UserReader, audit *AuditService) *SettingsService {
	return &SettingsService{
		store: store,
		users: users,
		audit: audit,
	}
}

// UpdateSettingsInput represents a partial policy update. Nil fields
// keep their current value.
type UpdateSettingsInput struct {
	MaxLoansPerStudent *int     `json:"max_loans_per_student,omitempty"`
	DefaultLoanDays    *int     `json:"default_loan_days,omitempty"`
	FinePerDay         *float64 `json:"fine_per_day,omitempty"`
	AllowRenewals      *bool    `json:"allow_renewals,omitempty"`
	MaxRenewals        *int     `json:"max_renewals,omitempty"`
}

// Get returns the active policy
func (s *SettingsService) Get(ctx context.Context) (*models.Setting, error) {
	var setting *models.Setting
	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		var txErr error
		setting, txErr = tx.GetSettings()
		return txErr
	})
	return setting, err
}

// Update applies a partial policy change atomically. The new policy is
// effective for every coordinator call that starts after the commit.
func (s *SettingsService) Update(ctx context.Context, input *UpdateSettingsInput, adminID uint) (*models.Setting, error) {
	if err := requireAdmin(ctx, s.users, adminID); err != nil {
		return nil, err
	}

	var updated *models.Setting
	err := s.store.InTx(ctx, func(tx repositories.LendingTx) error {
		setting, err := tx.GetSettings()
		if err != nil {
			return err
		}

		if input.MaxLoansPerStudent != nil {
			setting.MaxLoansPerStudent = *input.MaxLoansPerStudent
		}
		if input.DefaultLoanDays != nil {
			setting.DefaultLoanDays = *input.DefaultLoanDays
		}
		if input.FinePerDay != nil {
			setting.FinePerDay = *input.FinePerDay
		}
		if input.AllowRenewals != nil {
			setting.AllowRenewals = *input.AllowRenewals
		}
		if input.MaxRenewals != nil {
			setting.MaxRenewals = *input.MaxRenewals
		}

		if err := validateSettings(setting); err != nil {
			return err
		}

		updated = setting
		return tx.SaveSettings(setting)
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if auditErr := s.audit.Record(ctx, adminID, models.AuditSettingsUpdate, map[string]interface{}{
			"max_loans_per_student": updated.MaxLoansPerStudent,
			"default_loan_days":     updated.DefaultLoanDays,
			"fine_per_day":          updated.FinePerDay,
			"allow_renewals":        updated.AllowRenewals,
			"max_renewals":          updated.MaxRenewals,
		}); auditErr != nil {
			logDegradedAudit(models.AuditSettingsUpdate, adminID, auditErr)
		}
	}
	return updated, nil
}

func validateSettings(setting *models.Setting) error {
	if setting.MaxLoansPerStudent < 1 {
		return domain.ErrValidation
	}
	if setting.DefaultLoanDays < 1 {
		return domain.ErrValidation
	}
	if setting.FinePerDay < 0 {
		return domain.ErrValidation
	}
	if setting.MaxRenewals < 0 {
		return domain.ErrValidation
	}
	return nil
}
