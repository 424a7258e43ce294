package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/frostline/frostline-backend/pkg/enums"
)

// ManufacturerDeal is a supplier offer extracted from an email and awaiting review.
type ManufacturerDeal struct {
	ID                 uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrgID              uuid.UUID        `gorm:"column:org_id;type:uuid;not null"`
	Manufacturer       string           `gorm:"column:manufacturer;not null"`
	ProductDescription string           `gorm:"column:product_description;not null"`
	PricePerLb         decimal.Decimal  `gorm:"column:price_per_lb;type:numeric(12,4);not null"`
	Quantity           *string          `gorm:"column:quantity"`
	PackSize           *string          `gorm:"column:pack_size"`
	CaseWeightLbs      *decimal.Decimal `gorm:"column:case_weight_lbs;type:numeric(10,4)"`
	ExpirationDate     *time.Time       `gorm:"column:expiration_date"`
	Terms              *string          `gorm:"column:terms"`
	Status             enums.DealStatus `gorm:"column:status;not null;default:'pending'"`
	SourceEmail        string           `gorm:"column:source_email;not null"`
	RejectionReason    *string          `gorm:"column:rejection_reason"`
	ReviewedBy         *uuid.UUID       `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt         *time.Time       `gorm:"column:reviewed_at"`
	CreatedBy          uuid.UUID        `gorm:"column:created_by;type:uuid;not null"`
	CreatedAt          time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
