package models

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a buyer location shown on the distribution map.
type Customer struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID         uuid.UUID  `gorm:"column:org_id;type:uuid;not null"`
	ZoneID        *uuid.UUID `gorm:"column:zone_id;type:uuid"`
	Name          string     `gorm:"column:name;not null"`
	ContactEmail  *string    `gorm:"column:contact_email"`
	Address       string     `gorm:"column:address;not null"`
	City          string     `gorm:"column:city"`
	State         string     `gorm:"column:state"`
	PostalCode    string     `gorm:"column:postal_code"`
	FormattedAddr *string    `gorm:"column:formatted_address"`
	Latitude      *float64   `gorm:"column:latitude"`
	Longitude     *float64   `gorm:"column:longitude"`
	GeocodedAt    *time.Time `gorm:"column:geocoded_at"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
