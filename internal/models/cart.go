package models

// CartSnapshot is the buyer's selection as kept in the session cookie between requests
type CartSnapshot struct {
	EventID    string         `json:"event_id"`
	Quantities map[string]int `json:"quantities"` // tier id -> quantity
}

// CartView is what the cart endpoints return
type CartView struct {
	EventID string         `json:"event_id"`
	Lines   []SelectedLine `json:"lines"`
	Totals
}
