package reports

import "time"

// MonthlyMovements counts movements per calendar month.
type MonthlyMovements struct {
	Month     string `json:"month"`
	Entries   int    `json:"entries"`
	Exits     int    `json:"exits"`
	Transfers int    `json:"transfers"`
}

// TopProduct ranks products by movement volume.
type TopProduct struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Moved       float64 `json:"moved"`
}

// LocationSlice is the share of stock held at one location.
type LocationSlice struct {
	LocationID   string  `json:"location_id"`
	LocationName string  `json:"location_name"`
	Products     int     `json:"products"`
	Quantity     float64 `json:"quantity"`
}

// MonthlyCost sums invoice item costs per calendar month.
type MonthlyCost struct {
	Month string  `json:"month"`
	Total float64 `json:"total"`
}

// DepletionProjection estimates when a product runs out based on its
// recent exit rate.
type DepletionProjection struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    float64 `json:"quantity"`
	DailyExits  float64 `json:"daily_exits"`
	DaysToEmpty int     `json:"days_to_empty"`
}

// Overview bundles all dashboard aggregates.
type Overview struct {
	GeneratedAt      time.Time             `json:"generated_at"`
	MonthlyMovements []MonthlyMovements    `json:"monthly_movements"`
	TopProducts      []TopProduct          `json:"top_products"`
	Locations        []LocationSlice       `json:"locations"`
	MonthlyCosts     []MonthlyCost         `json:"monthly_costs"`
	Depletion        []DepletionProjection `json:"depletion"`
}
