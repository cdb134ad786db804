package services

import (
	"encoding/json"

	"gorm.io/gorm"

	apperrors "finmanager/internal/errors"
	"finmanager/internal/logger"
	"finmanager/internal/models"
	"finmanager/internal/pagination"
)

// auditService writes the audit trail of ledger mutations and pages it back.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records a mutation. Failures are logged and swallowed so the mutation
// itself still succeeds.
func (s *auditService) Log(action, resourceType, resourceID, ipAddress string, changes map[string]any) {
	log := logger.Named("audit")

	entry := &models.AuditLog{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
	}
	if len(changes) > 0 {
		data, err := json.Marshal(changes)
		if err != nil {
			log.Warnw("unencodable audit changes", "error", err, "action", action, "resource_type", resourceType)
			data = []byte("{}")
		}
		entry.Changes = string(data)
	}

	if err := s.db.Create(entry).Error; err != nil {
		log.Errorw("failed to write audit entry",
			"error", err,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
		return
	}
	log.Debugw("audit", "action", action, "resource_type", resourceType, "resource_id", resourceID)
}

// List pages the audit trail, newest first.
func (s *auditService) List(page pagination.PageRequest, filter AuditFilter) (*pagination.PageResponse[models.AuditLog], error) {
	query := s.db.Model(&models.AuditLog{})
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		query = query.Where("resource_id = ?", filter.ResourceID)
	}

	result, err := pagination.Find[models.AuditLog](query, page, "created_at DESC, id DESC")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}
