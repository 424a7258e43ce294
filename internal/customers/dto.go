package customers

import (
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/db/models"
	"github.com/frostline/frostline-backend/pkg/pagination"
)

// CustomerDTO is the client view of a customer. Geocoded is false until the
// address resolved to coordinates.
type CustomerDTO struct {
	ID               uuid.UUID  `json:"id"`
	ZoneID           *uuid.UUID `json:"zone_id"`
	Name             string     `json:"name"`
	ContactEmail     *string    `json:"contact_email,omitempty"`
	Address          string     `json:"address"`
	City             string     `json:"city"`
	State            string     `json:"state"`
	PostalCode       string     `json:"postal_code"`
	FormattedAddress *string    `json:"formatted_address,omitempty"`
	Latitude         *float64   `json:"lat,omitempty"`
	Longitude        *float64   `json:"lng,omitempty"`
	Geocoded         bool       `json:"geocoded"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func ToDTO(c models.Customer) CustomerDTO {
	return CustomerDTO{
		ID:               c.ID,
		ZoneID:           c.ZoneID,
		Name:             c.Name,
		ContactEmail:     c.ContactEmail,
		Address:          c.Address,
		City:             c.City,
		State:            c.State,
		PostalCode:       c.PostalCode,
		FormattedAddress: c.FormattedAddr,
		Latitude:         c.Latitude,
		Longitude:        c.Longitude,
		Geocoded:         c.Latitude != nil && c.Longitude != nil,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
	}
}

func ToDTOPage(page pagination.Page[models.Customer]) pagination.Page[CustomerDTO] {
	items := make([]CustomerDTO, 0, len(page.Items))
	for _, c := range page.Items {
		items = append(items, ToDTO(c))
	}
	return pagination.Page[CustomerDTO]{Items: items, NextCursor: page.NextCursor}
}
