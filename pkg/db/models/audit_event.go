package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/rentworks/rentworks-backend/pkg/enums"
)

// AuditEvent is an append-only record of a state-changing action.
// Events are never updated or deleted by application code; the
// retention job prunes them past the configured window.
type AuditEvent struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ActorUserID *uuid.UUID        `gorm:"column:actor_user_id;type:uuid;index"`
	Action      enums.AuditAction `gorm:"column:action;not null"`
	EntityType  string            `gorm:"column:entity_type;not null;index:idx_audit_events_entity"`
	EntityID    *uuid.UUID        `gorm:"column:entity_id;type:uuid;index:idx_audit_events_entity"`
	Summary     string            `gorm:"column:summary;not null"`
	Metadata    json.RawMessage   `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime;index"`
}
