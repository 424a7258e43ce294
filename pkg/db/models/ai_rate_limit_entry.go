package models

import (
	"time"

	"github.com/google/uuid"
)

// AIRateLimitEntry records one admitted AI request; rows in the current window are counted.
type AIRateLimitEntry struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Scope     string    `gorm:"column:scope;not null"`
	CreatedAt time.Time `gorm:"column:created_at;not null"`
}

func (AIRateLimitEntry) TableName() string { return "ai_rate_limit_entries" }
