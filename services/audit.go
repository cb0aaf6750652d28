package services

import (
	"encoding/json"
	"time"

	"salary_portal/models"
	"salary_portal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditService records non-salary events (user lifecycle, salary
// submissions) in the same append-only style as the salary ledger.
type AuditService struct {
	DB *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{DB: db}
}

func (a *AuditService) Record(action, entityType, entityID string, actorID *uint, metadata map[string]interface{}) error {
	entry := models.AuditLog{
		ID:         uuid.New(),
		ActorID:    actorID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		CreatedAt:  time.Now(),
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			utils.Logger.Error("Failed to encode audit metadata", zap.Error(err))
		} else {
			entry.Metadata = string(raw)
		}
	}
	return a.DB.Create(&entry).Error
}

// ListByActor returns an actor's audit entries newest first.
func (a *AuditService) ListByActor(actorID uint, limit int) ([]models.AuditLog, error) {
	if limit <= 0 {
		limit = defaultHistoryPageSize
	}
	var entries []models.AuditLog
	err := a.DB.Where("actor_id = ?", actorID).
		Order("created_at DESC").Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
