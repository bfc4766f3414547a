package models

import (
	"time"

	"github.com/google/uuid"

	"goflare.io/shopcart/models/enum"
)

// CartEvent 描述一次購物車狀態變更
type CartEvent struct {
	ID        string             `json:"id"`
	Type      enum.CartEventType `json:"type"`
	ProductID int                `json:"product_id,omitempty"`
	Amount    int                `json:"amount,omitempty"`
	Cart      Cart               `json:"cart"`
	CreatedAt time.Time          `json:"created_at"`
}

func NewCartEvent(eventType enum.CartEventType, productID, amount int, cart Cart) *CartEvent {
	return &CartEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		ProductID: productID,
		Amount:    amount,
		Cart:      cart.Clone(),
		CreatedAt: time.Now(),
	}
}
