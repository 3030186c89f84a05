package models

// Summary backs the dashboard cards.
type Summary struct {
	StockItems   int64   `json:"stockItems"`
	StockUnits   int64   `json:"stockUnits"`
	Sales        int64   `json:"sales"`
	Distributors int64   `json:"distributors"`
	TotalBV      float64 `json:"totalBV"`
}
