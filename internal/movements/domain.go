package movements

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Type enumerates stock movement kinds.
type Type string

const (
	TypeEntry    Type = "entry"
	TypeExit     Type = "exit"
	TypeTransfer Type = "transfer"
)

// Valid reports whether the movement type is known.
func (t Type) Valid() bool {
	switch t {
	case TypeEntry, TypeExit, TypeTransfer:
		return true
	}
	return false
}

var (
	// ErrNegativeStock indicates an exit larger than the available quantity.
	ErrNegativeStock = errors.New("movements: insufficient stock")
	// ErrInvalidQuantity marks non-positive quantities.
	ErrInvalidQuantity = errors.New("movements: quantity must be positive")
	// ErrLocationRequired marks a movement missing its location fields.
	ErrLocationRequired = errors.New("movements: location required for movement type")
	// ErrSameLocation marks a transfer between identical locations.
	ErrSameLocation = errors.New("movements: transfer requires distinct locations")
)

// Movement records a stock change for a product batch.
type Movement struct {
	ID               uuid.UUID
	ProductID        string
	ProductName      string
	Type             Type
	Quantity         float64
	FromLocationID   uuid.NullUUID
	FromLocationName string
	ToLocationID     uuid.NullUUID
	ToLocationName   string
	Notes            string
	CreatedBy        uuid.NullUUID
	CreatedAt        time.Time
}

// MovementInput carries the fields accepted on create.
type MovementInput struct {
	ProductID      string
	Type           Type
	Quantity       float64
	FromLocationID uuid.NullUUID
	ToLocationID   uuid.NullUUID
	Notes          string
}
