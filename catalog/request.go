package catalog

// writeStockRequest is the PUT /stock/{id} body.
type writeStockRequest struct {
	ID     int `json:"id"`
	Amount int `json:"amount"`
}
