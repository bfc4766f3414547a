package models

import (
	"errors"
	"fmt"
)

// CartItem 代表購物車中的單個商品項目
type CartItem struct {
	Product
	Amount int `json:"amount"`
}

// Cart 代表購物車，保留商品加入的順序
type Cart []CartItem

func NewCart() Cart {
	return make(Cart, 0)
}

func NewCartItem(product Product, amount int) CartItem {
	return CartItem{Product: product, Amount: amount}
}

// Subtotal returns price * amount for the item.
func (ci CartItem) Subtotal() float64 {
	return ci.Price * float64(ci.Amount)
}

// Find returns the index of the item holding productID, or -1.
func (c Cart) Find(productID int) int {
	for i := range c {
		if c[i].ID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) Contains(productID int) bool {
	return c.Find(productID) >= 0
}

// Clone returns a copy that shares no backing array with c.
func (c Cart) Clone() Cart {
	out := make(Cart, len(c))
	copy(out, c)
	return out
}

// Remove returns a copy of c without the item holding productID.
func (c Cart) Remove(productID int) Cart {
	out := make(Cart, 0, len(c))
	for _, item := range c {
		if item.ID != productID {
			out = append(out, item)
		}
	}
	return out
}

// Count returns the total number of units across all items.
func (c Cart) Count() int {
	var n int
	for _, item := range c {
		n += item.Amount
	}
	return n
}

func (c Cart) Total() float64 {
	var total float64
	for _, item := range c {
		total += item.Subtotal()
	}
	return total
}

// Validate checks the cart invariants: positive ids and amounts, one item per product.
func (c Cart) Validate() error {
	seen := make(map[int]struct{}, len(c))
	for i, item := range c {
		if item.ID <= 0 {
			return fmt.Errorf("item %d: invalid product id %d", i, item.ID)
		}
		if item.Amount <= 0 {
			return fmt.Errorf("item %d: invalid amount %d for product %d", i, item.Amount, item.ID)
		}
		if _, ok := seen[item.ID]; ok {
			return fmt.Errorf("item %d: %w: product %d", i, ErrDuplicateItem, item.ID)
		}
		seen[item.ID] = struct{}{}
	}
	return nil
}

var ErrDuplicateItem = errors.New("duplicate cart item")
