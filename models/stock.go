package models

// Stock 遠端庫存服務回報的可用數量
type Stock struct {
	ID     int `json:"id"`
	Amount int `json:"amount"`
}
