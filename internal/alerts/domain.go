package alerts

import (
	"time"
)

// Kind labels the alert categories produced by the scan.
type Kind string

const (
	KindExpired  Kind = "expired"
	KindExpiring Kind = "expiring"
	KindLowStock Kind = "low_stock"
	KindPending  Kind = "pending_approval"
)

// Severity orders alerts for display.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Alert is one snapshot entry. The ID is deterministic so
// acknowledgements survive snapshot rebuilds.
type Alert struct {
	ID          string     `json:"id"`
	Kind        Kind       `json:"type"`
	Severity    Severity   `json:"severity"`
	ProductID   string     `json:"product_id"`
	ProductName string     `json:"product_name"`
	Message     string     `json:"message"`
	Quantity    float64    `json:"quantity,omitempty"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
}

// Snapshot is the cached alert state for the whole inventory.
type Snapshot struct {
	GeneratedAt time.Time `json:"generated_at"`
	Alerts      []Alert   `json:"alerts"`
}

// Thresholds parameterize the expiring and low-stock rules.
type Thresholds struct {
	ExpiryDays int
	LowStock   float64
}
