// internal/domain/audit/audit.go
package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuditLog is an append-only record of business actions. Rows are never
// updated or deleted.
type AuditLog struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	EventID    string    `json:"event_id" gorm:"uniqueIndex;size:36;not null"`
	Action     string    `json:"action" gorm:"not null;size:100;index"`
	EntityType string    `json:"entity_type" gorm:"size:100;index"`
	EntityID   uint      `json:"entity_id" gorm:"index"`
	ActorID    uint      `json:"actor_id" gorm:"index"`
	Detail     string    `json:"detail" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName returns the table name for AuditLog model
func (AuditLog) TableName() string {
	return "audit_logs"
}

// Recorder writes audit entries. Failures are logged and swallowed so an
// audit problem never rolls back the business transaction it describes.
type Recorder struct {
	db  *gorm.DB
	log *logrus.Logger
}

// NewRecorder creates a new audit recorder
func NewRecorder(db *gorm.DB, log *logrus.Logger) *Recorder {
	return &Recorder{db: db, log: log}
}

// Record appends an audit entry outside the caller's transaction.
func (r *Recorder) Record(action, entityType string, entityID, actorID uint, detail string) {
	entry := &AuditLog{
		EventID:    uuid.New().String(),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Detail:     detail,
	}
	if err := r.db.Create(entry).Error; err != nil {
		r.log.WithFields(logrus.Fields{
			"action":      action,
			"entity_type": entityType,
			"entity_id":   entityID,
			"error":       err,
		}).Error("Failed to write audit log entry")
	}
}

// List retrieves recent audit entries for an entity
func (r *Recorder) List(entityType string, entityID uint, limit int) ([]AuditLog, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var entries []AuditLog
	err := r.db.
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at desc").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
