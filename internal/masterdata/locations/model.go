package locations

import (
	"time"

	"github.com/google/uuid"
)

// Type distinguishes laboratory and warehouse locations.
type Type string

const (
	TypeLaboratory Type = "laboratory"
	TypeWarehouse  Type = "warehouse"
)

// Valid reports whether the location type is known.
func (t Type) Valid() bool {
	return t == TypeLaboratory || t == TypeWarehouse
}

// Location represents a physical storage location
type Location struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Type        Type      `json:"type"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
