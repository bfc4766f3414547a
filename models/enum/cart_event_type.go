package enum

// CartEventType 表示購物車變更事件的類型
type CartEventType string

const (
	CartEventTypeProductAdded         CartEventType = "cart.product_added"
	CartEventTypeProductRemoved       CartEventType = "cart.product_removed"
	CartEventTypeProductAmountUpdated CartEventType = "cart.product_amount_updated"
)
