package invoices

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status tracks invoice processing state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusCancelled Status = "cancelled"
)

// Valid reports whether the status is known.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessed, StatusCancelled:
		return true
	}
	return false
}

var (
	// ErrNoItems marks an invoice create without line items.
	ErrNoItems = errors.New("invoices: at least one line item required")
	// ErrInvalidQuantity marks a non-positive line quantity.
	ErrInvalidQuantity = errors.New("invoices: item quantity must be positive")
)

// Invoice is a supplier delivery document.
type Invoice struct {
	ID            uuid.UUID
	InvoiceNumber string
	SupplierID    uuid.NullUUID
	SupplierName  string
	IssueDate     time.Time
	ReceiptDate   *time.Time
	Status        Status
	TotalValue    float64
	Notes         string
	CreatedBy     uuid.NullUUID
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Items         []Item
}

// Item is a single invoice line.
type Item struct {
	ID                uuid.UUID
	InvoiceID         uuid.UUID
	ProductCode       string
	ProductName       string
	Batch             string
	Quantity          float64
	Unit              string
	UnitPrice         float64
	TotalPrice        float64
	ManufacturingDate *time.Time
	ExpiryDate        *time.Time
}

// InvoiceInput carries fields accepted on create/update.
type InvoiceInput struct {
	InvoiceNumber string
	SupplierID    uuid.NullUUID
	IssueDate     time.Time
	ReceiptDate   *time.Time
	Status        Status
	Notes         string
	Items         []ItemInput
}

// ItemInput carries line item fields on create.
type ItemInput struct {
	ProductCode       string
	ProductName       string
	Batch             string
	Quantity          float64
	Unit              string
	UnitPrice         float64
	ManufacturingDate *time.Time
	ExpiryDate        *time.Time
}

// Attachment describes a stored document.
type Attachment struct {
	Key      string
	FileName string
}
