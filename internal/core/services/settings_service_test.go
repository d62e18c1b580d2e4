package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/core/domain"
)

func intPtr(v int) *int { return &v }

func boolPtr(v bool) *bool { return &v }

func floatPtr(v float64) *float64 { return &v }

func newSettingsFixture(users ...*models.User) (*fakeStore, *fakeAuditStore, *SettingsService) {
	store := newFakeStore()
	audit := &fakeAuditStore{}
	svc := NewSettingsService(store, newFakeUsers(users...), NewAuditService(audit))
	return store, audit, svc
}

func TestSettingsGet(t *testing.T) {
	_, _, svc := newSettingsFixture()

	setting, err := svc.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, setting.MaxLoansPerStudent)
	assert.Equal(t, 14, setting.DefaultLoanDays)
}

func TestSettingsPartialUpdate(t *testing.T) {
	store, audit, svc := newSettingsFixture(testAdmin(1))

	setting, err := svc.Update(context.Background(), &UpdateSettingsInput{
		MaxLoansPerStudent: intPtr(5),
		AllowRenewals:      boolPtr(false),
	}, 1)
	require.NoError(t, err)

	assert.Equal(t, 5, setting.MaxLoansPerStudent)
	assert.False(t, setting.AllowRenewals)
	// Untouched fields keep their current value.
	assert.Equal(t, 14, setting.DefaultLoanDays)
	assert.Equal(t, 1, setting.MaxRenewals)

	assert.Equal(t, 5, store.settings.MaxLoansPerStudent)
	assert.Equal(t, []string{models.AuditSettingsUpdate}, audit.actions())
}

func TestSettingsUpdateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input UpdateSettingsInput
	}{
		{"zero max loans", UpdateSettingsInput{MaxLoansPerStudent: intPtr(0)}},
		{"zero loan days", UpdateSettingsInput{DefaultLoanDays: intPtr(0)}},
		{"negative fine", UpdateSettingsInput{FinePerDay: floatPtr(-1)}},
		{"negative max renewals", UpdateSettingsInput{MaxRenewals: intPtr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, _, svc := newSettingsFixture(testAdmin(1))

			_, err := svc.Update(context.Background(), &tt.input, 1)
			assert.ErrorIs(t, err, domain.ErrValidation)
			// A rejected update leaves the policy untouched.
			assert.Equal(t, 3, store.settings.MaxLoansPerStudent)
			assert.Equal(t, 14, store.settings.DefaultLoanDays)
		})
	}
}

func TestSettingsUpdateRequiresAdmin(t *testing.T) {
	_, _, svc := newSettingsFixture(testStudent(2))

	_, err := svc.Update(context.Background(), &UpdateSettingsInput{MaxLoansPerStudent: intPtr(5)}, 2)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.Update(context.Background(), &UpdateSettingsInput{MaxLoansPerStudent: intPtr(5)}, 0)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestSettingsUpdateDegradedAudit(t *testing.T) {
	store, audit, svc := newSettingsFixture(testAdmin(1))
	audit.failErr = errors.New("audit storage down")

	setting, err := svc.Update(context.Background(), &UpdateSettingsInput{DefaultLoanDays: intPtr(21)}, 1)
	require.NoError(t, err)
	assert.Equal(t, 21, setting.DefaultLoanDays)
	assert.Equal(t, 21, store.settings.DefaultLoanDays)
}
