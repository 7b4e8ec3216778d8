package notifications

import (
	"time"

	"github.com/google/uuid"
)

// Kind categorizes notifications so preferences can filter them.
type Kind string

const (
	KindExpiry   Kind = "expiry"
	KindLowStock Kind = "low_stock"
	KindMovement Kind = "movement"
	KindApproval Kind = "approval"
	KindSystem   Kind = "system"
)

// Severity mirrors alert severities for display.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Notification is one feed entry for a user.
type Notification struct {
	ID        uuid.UUID      `json:"id"`
	UserID    uuid.UUID      `json:"user_id"`
	Kind      Kind           `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Severity  Severity       `json:"severity"`
	Read      bool           `json:"read"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Preferences controls which notifications a user receives and the
// thresholds used by the alert scan.
type Preferences struct {
	UserID              uuid.UUID `json:"user_id"`
	EmailEnabled        bool      `json:"email_enabled"`
	PushEnabled         bool      `json:"push_enabled"`
	ExpiryAlerts        bool      `json:"expiry_alerts"`
	LowStockAlerts      bool      `json:"low_stock_alerts"`
	MovementAlerts      bool      `json:"movement_alerts"`
	ApprovalAlerts      bool      `json:"approval_alerts"`
	SystemAlerts        bool      `json:"system_alerts"`
	ExpiryDaysThreshold int       `json:"expiry_days_threshold"`
	LowStockThreshold   int       `json:"low_stock_threshold"`
}

// DefaultPreferences returns the preferences applied before a user saves
// their own.
func DefaultPreferences(userID uuid.UUID) Preferences {
	return Preferences{
		UserID:              userID,
		EmailEnabled:        false,
		PushEnabled:         true,
		ExpiryAlerts:        true,
		LowStockAlerts:      true,
		MovementAlerts:      true,
		ApprovalAlerts:      true,
		SystemAlerts:        true,
		ExpiryDaysThreshold: 30,
		LowStockThreshold:   10,
	}
}

// Recipient pairs a user's email with their effective preferences.
type Recipient struct {
	Email       string
	Preferences Preferences
}

// Allows reports whether the preferences admit a notification of the kind.
func (p Preferences) Allows(kind Kind) bool {
	switch kind {
	case KindExpiry:
		return p.ExpiryAlerts
	case KindLowStock:
		return p.LowStockAlerts
	case KindMovement:
		return p.MovementAlerts
	case KindApproval:
		return p.ApprovalAlerts
	case KindSystem:
		return p.SystemAlerts
	}
	return true
}
