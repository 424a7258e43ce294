package models

import (
	"time"

	"github.com/frostline/frostline-backend/pkg/enums"
)

// CircuitBreakerState is the single persisted row per named breaker.
type CircuitBreakerState struct {
	Name           string             `gorm:"column:name;primaryKey"`
	State          enums.BreakerState `gorm:"column:state;not null;default:'closed'"`
	FailureCount   int                `gorm:"column:failure_count;not null;default:0"`
	LastFailureAt  *time.Time         `gorm:"column:last_failure_at"`
	OpenedAt       *time.Time         `gorm:"column:opened_at"`
	TrialStartedAt *time.Time         `gorm:"column:trial_started_at"`
	Version        int64              `gorm:"column:version;not null;default:0"`
	UpdatedAt      time.Time          `gorm:"column:updated_at"`
}
