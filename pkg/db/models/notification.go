package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danuartha/sewakit-backend/pkg/enums"
)

// Notification stores in-app notification payloads. A nil UserID is a
// broadcast visible to every staff account.
type Notification struct {
	ID        uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    *uuid.UUID             `gorm:"column:user_id;type:uuid;index"`
	Kind      enums.NotificationKind `gorm:"column:kind;type:notification_kind;not null;default:'info'"`
	Title     string                 `gorm:"column:title;not null"`
	Message   string                 `gorm:"column:message;not null"`
	ReadAt    *time.Time             `gorm:"column:read_at"`
	CreatedAt time.Time              `gorm:"column:created_at;autoCreateTime;index"`
}
