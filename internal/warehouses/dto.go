package warehouses

import (
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/db/models"
)

type WarehouseDTO struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Name       string    `json:"name"`
	Address    string    `json:"address"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Latitude   *float64  `json:"lat,omitempty"`
	Longitude  *float64  `json:"lng,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func ToDTO(w models.Warehouse) WarehouseDTO {
	return WarehouseDTO{
		ID:         w.ID,
		Code:       w.Code,
		Name:       w.Name,
		Address:    w.Address,
		City:       w.City,
		State:      w.State,
		PostalCode: w.PostalCode,
		Latitude:   w.Latitude,
		Longitude:  w.Longitude,
		CreatedAt:  w.CreatedAt,
	}
}

func ToDTOs(rows []models.Warehouse) []WarehouseDTO {
	out := make([]WarehouseDTO, 0, len(rows))
	for _, w := range rows {
		out = append(out, ToDTO(w))
	}
	return out
}
