package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"gorm.io/datatypes"

	"liblend/internal/adapters/persistence/models"
	"liblend/internal/adapters/persistence/repositories"
	"liblend/internal/pkg/pagination"
)

// AuditService handles the append-only admin audit trail
type AuditService struct {
	auditRepo repositories.AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(auditRepo repositories.AuditStore) *AuditService {
	return &AuditService{auditRepo: auditRepo}
}

// Record appends an audit entry for a privileged mutation. Callers treat
// a failure as degraded success: the primary mutation already committed
// and must not be rolled back over a missing audit row.
func (s *AuditService) Record(ctx context.Context, adminID uint, action string, metadata map[string]interface{}) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshal audit metadata: %w", err)
	}

	entry := &models.AuditLog{
		AdminID:  adminID,
		Action:   action,
		Metadata: datatypes.JSON(raw),
	}
	return s.auditRepo.Append(ctx, entry)
}

// logDegradedAudit reports a failed audit append after a committed
// mutation: the operation stands, the trail has a hole.
func logDegradedAudit(action string, adminID uint, err error) {
	log.Printf("⚠️ Audit append failed (action=%s admin=%d): %v; operation committed, audit trail incomplete", action, adminID, err)
}

// AuditListOutput represents an audit listing page
type AuditListOutput struct {
	Entries []*models.AuditLog `json:"entries"`
	Meta    *pagination.Meta   `json:"meta"`
}

// List lists audit entries newest first
func (s *AuditService) List(ctx context.Context, action string, params *pagination.Params) (*AuditListOutput, error) {
	entries, total, err := s.auditRepo.List(ctx, action, params.Offset, params.Limit)
	if err != nil {
		return nil, err
	}
	return &AuditListOutput{
		Entries: entries,
		Meta:    pagination.GetMeta(params, total),
	}, nil
}
