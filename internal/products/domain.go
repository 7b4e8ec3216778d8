package products

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status tracks a product through the laboratory approval lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusExpired  Status = "expired"
	StatusRejected Status = "rejected"
)

// Valid reports whether the status is one of the known lifecycle states.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusExpired, StatusRejected:
		return true
	}
	return false
}

var (
	// ErrNotPending is returned when an approval decision targets a product
	// that already left the pending state.
	ErrNotPending = errors.New("products: product is not pending approval")
	// ErrInvalidQuantity marks non-positive or malformed quantities.
	ErrInvalidQuantity = errors.New("products: quantity must not be negative")
	// ErrInvalidDates marks an expiry date before the manufacturing date.
	ErrInvalidDates = errors.New("products: expiry date must be after manufacturing date")
)

// Product is a chemical product batch identified by its label code.
type Product struct {
	ID                string
	Name              string
	Batch             string
	Invoice           string
	ManufacturingDate time.Time
	ExpiryDate        time.Time
	Quantity          float64
	Unit              string
	Status            Status
	SupplierID        uuid.NullUUID
	LocationID        uuid.NullUUID
	SupplierName      string
	LocationName      string
	CreatedBy         uuid.NullUUID
	ApprovedBy        uuid.NullUUID
	ApprovedAt        *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// ProductInput carries the fields accepted on create/update.
type ProductInput struct {
	ID                string
	Name              string
	Batch             string
	Invoice           string
	ManufacturingDate time.Time
	ExpiryDate        time.Time
	Quantity          float64
	Unit              string
	SupplierID        uuid.NullUUID
	LocationID        uuid.NullUUID
}

// ListFilter narrows product listings.
type ListFilter struct {
	Status Status
	Search string
	Limit  int
	Offset int
}
