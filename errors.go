package shopcart

import "errors"

var (
	// ErrStockInsufficient means the operation would take more units than the service has.
	ErrStockInsufficient = errors.New("insufficient stock")
	// ErrInvalidQuantity means a target amount was zero or negative.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrInvalidProductID means a product id that a stored cart could not hold.
	ErrInvalidProductID = errors.New("invalid product id")
	// ErrItemNotInCart means the operation referenced a product the cart does not hold.
	ErrItemNotInCart = errors.New("product not in cart")
	// ErrQueueClosed is returned when an operation is submitted after Close.
	ErrQueueClosed = errors.New("operation queue closed")
	// ErrNoEventBus is returned by SubscribeToEvents without a NATS connection.
	ErrNoEventBus = errors.New("no event bus configured")
)

// User-facing notification messages.
const (
	MessageOutOfStock   = "Requested quantity is out of stock"
	MessageAddFailed    = "Failed to add product"
	MessageRemoveFailed = "Failed to remove product"
	MessageUpdateFailed = "Failed to update product amount"
)
