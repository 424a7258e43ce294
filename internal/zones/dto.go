package zones

import (
	"time"

	"github.com/google/uuid"

	"github.com/frostline/frostline-backend/pkg/db/models"
)

type ZoneDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	States    []string  `json:"states"`
	UpdatedAt time.Time `json:"updated_at"`
}

func ToDTO(z models.Zone) ZoneDTO {
	states := []string(z.States)
	if states == nil {
		states = []string{}
	}
	return ZoneDTO{ID: z.ID, Name: z.Name, Color: z.Color, States: states, UpdatedAt: z.UpdatedAt}
}

func ToDTOs(rows []models.Zone) []ZoneDTO {
	out := make([]ZoneDTO, 0, len(rows))
	for _, z := range rows {
		out = append(out, ToDTO(z))
	}
	return out
}
