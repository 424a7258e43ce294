package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Zone is a delivery region made of whole states. Price sheets and lane rates are per zone.
type Zone struct {
	ID        uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID     uuid.UUID      `gorm:"column:org_id;type:uuid;not null"`
	Name      string         `gorm:"column:name;not null"`
	Color     string         `gorm:"column:color;not null;default:'#2563eb'"`
	States    pq.StringArray `gorm:"column:states;type:text[];not null"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

// Covers reports whether the zone includes the two-letter state code.
func (z Zone) Covers(state string) bool {
	for _, s := range z.States {
		if s == state {
			return true
		}
	}
	return false
}
