// Package shopcart keeps a shopper's cart in memory, checks every quantity change
// against the remote stock service and persists the cart snapshot after each change.
package shopcart

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"goflare.io/shopcart/cart"
	"goflare.io/shopcart/catalog"
	"goflare.io/shopcart/models"
	"goflare.io/shopcart/models/enum"
	"goflare.io/shopcart/notify"
)

type Service interface {
	// Cart returns a copy of the current cart.
	Cart() models.Cart
	Products(ctx context.Context) ([]models.Product, error)

	AddProduct(ctx context.Context, productID int)
	RemoveProduct(ctx context.Context, productID int)
	UpdateProductAmount(ctx context.Context, req UpdateProductAmount)

	// Subscribe registers handler for cart changes made by this service.
	Subscribe(handler EventHandler) (unsubscribe func())
	// SubscribeToEvents receives cart events from the event bus.
	SubscribeToEvents(handler EventHandler) (*nats.Subscription, error)

	Close()
}

type UpdateProductAmount struct {
	ProductID int `json:"productId"`
	Amount    int `json:"amount"`
}

type service struct {
	catalog  catalog.Client
	cart     cart.Repository
	notifier notify.Notifier

	eventManager *EventManager
	queue        *OperationQueue

	mu    sync.RWMutex
	state models.Cart

	logger *zap.Logger
}

// NewService builds the cart store and initialises it from the repository.
// natsConn may be nil, in which case events stay in process.
func NewService(
	ctx context.Context,
	catalog catalog.Client, cart cart.Repository, notifier notify.Notifier,
	natsConn *nats.Conn,
	logger *zap.Logger) Service {
	s := &service{
		catalog:  catalog,
		cart:     cart,
		notifier: notifier,
		state:    models.NewCart(),
		logger:   logger,
	}
	s.eventManager = NewEventManager(natsConn, logger)
	s.queue = NewOperationQueue(defaultQueueSize, logger)

	s.load(ctx)

	return s
}

// load restores the persisted cart. Any failure leaves the cart empty.
func (s *service) load(ctx context.Context) {
	loaded, err := s.cart.Load(ctx)
	switch {
	case errors.Is(err, cart.ErrMalformedCart):
		s.logger.Warn("Discarding malformed cart snapshot", zap.Error(err))
		loaded = models.NewCart()
	case err != nil:
		s.logger.Error("Failed to load cart, starting empty", zap.Error(err))
		loaded = models.NewCart()
	}

	s.mu.Lock()
	s.state = loaded
	s.mu.Unlock()

	s.logger.Info("Cart loaded", zap.Int("items", len(loaded)), zap.Int("units", loaded.Count()))
}

func (s *service) Cart() models.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.state.Clone()
}

func (s *service) Products(ctx context.Context) ([]models.Product, error) {
	return s.catalog.FetchAllProducts(ctx)
}

func (s *service) Subscribe(handler EventHandler) func() {
	return s.eventManager.Subscribe(handler)
}

func (s *service) SubscribeToEvents(handler EventHandler) (*nats.Subscription, error) {
	return s.eventManager.SubscribeToEvents(handler)
}

func (s *service) Close() {
	s.queue.Shutdown()
}

func (s *service) AddProduct(ctx context.Context, productID int) {
	s.execute(ctx, MessageAddFailed, func(ctx context.Context) error {
		return s.addProduct(ctx, productID)
	})
}

func (s *service) RemoveProduct(ctx context.Context, productID int) {
	s.execute(ctx, MessageRemoveFailed, func(ctx context.Context) error {
		return s.removeProduct(ctx, productID)
	})
}

func (s *service) UpdateProductAmount(ctx context.Context, req UpdateProductAmount) {
	s.execute(ctx, MessageUpdateFailed, func(ctx context.Context) error {
		return s.updateProductAmount(ctx, req.ProductID, req.Amount)
	})
}

// execute queues op and waits for it. Once queued the operation runs to the end
// even if ctx is cancelled; the caller just stops waiting.
func (s *service) execute(ctx context.Context, failure string, op func(context.Context) error) {
	opCtx := context.WithoutCancel(ctx)
	done := make(chan struct{})

	task := func() {
		defer close(done)
		if err := op(opCtx); err != nil {
			s.report(opCtx, failure, err)
		}
	}

	if err := s.queue.Submit(ctx, task); err != nil {
		s.report(opCtx, failure, err)
		return
	}

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("Stopped waiting for cart operation", zap.Error(ctx.Err()))
	}
}

// report turns an operation error into a notification.
func (s *service) report(ctx context.Context, failure string, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		s.logger.Debug("Rejected cart operation", zap.Error(err))
	case errors.Is(err, ErrStockInsufficient):
		s.logger.Info("Cart operation exceeds stock", zap.Error(err))
		s.notifier.Error(ctx, MessageOutOfStock)
	default:
		s.logger.Error("Cart operation failed", zap.String("failure", failure), zap.Error(err))
		s.notifier.Error(ctx, failure)
	}
}

func (s *service) addProduct(ctx context.Context, productID int) error {
	// 購物車快照只接受正整數 id
	if productID <= 0 {
		return fmt.Errorf("add product %d: %w", productID, ErrInvalidProductID)
	}

	stock, err := s.catalog.FetchStock(ctx, productID)
	if err != nil {
		return err
	}
	if stock.Amount <= 0 {
		return fmt.Errorf("%w: product %d has %d units", ErrStockInsufficient, productID, stock.Amount)
	}

	updated := s.Cart()
	var amount int
	if i := updated.Find(productID); i >= 0 {
		updated[i].Amount++
		amount = updated[i].Amount
	} else {
		product, err := s.catalog.FetchProduct(ctx, productID)
		if err != nil {
			return err
		}
		if product.ID != productID {
			return fmt.Errorf("fetch product %d: service returned product %d", productID, product.ID)
		}
		amount = 1
		updated = append(updated, models.NewCartItem(*product, amount))
	}

	if err = s.commit(ctx, updated, enum.CartEventTypeProductAdded, productID, amount); err != nil {
		return err
	}

	// 扣減遠端庫存
	return s.catalog.WriteStock(ctx, productID, stock.Amount-1)
}

func (s *service) removeProduct(ctx context.Context, productID int) error {
	current := s.Cart()
	i := current.Find(productID)
	if i < 0 {
		s.logger.Debug("Product not in cart, nothing to remove", zap.Int("product_id", productID))
		return nil
	}
	removed := current[i]

	stock, err := s.catalog.FetchStock(ctx, productID)
	if err != nil {
		return err
	}

	if err = s.commit(ctx, current.Remove(productID), enum.CartEventTypeProductRemoved, productID, 0); err != nil {
		return err
	}

	// 恢復庫存
	return s.catalog.WriteStock(ctx, productID, stock.Amount+removed.Amount)
}

// updateProductAmount sets an item's amount. The stock write uses the new total,
// not the difference to the previous amount: an increase to n takes n units off
// the remote stock, a decrease to n puts n units back.
// Setting the current amount again is a no-op; the decrease rule would otherwise
// put amount units back.
// TODO: confirm with the product owner whether the stock adjustment should use the
// delta, and whether an unchanged amount should still follow the decrease rule.
func (s *service) updateProductAmount(ctx context.Context, productID, amount int) error {
	if amount <= 0 {
		return fmt.Errorf("%w: %d for product %d", ErrInvalidQuantity, amount, productID)
	}

	stock, err := s.catalog.FetchStock(ctx, productID)
	if err != nil {
		return err
	}

	updated := s.Cart()
	i := updated.Find(productID)
	if i < 0 {
		return fmt.Errorf("update product %d: %w", productID, ErrItemNotInCart)
	}

	previous := updated[i].Amount
	if amount == previous {
		return nil
	}

	increase := amount > previous
	if increase && stock.Amount < amount {
		return fmt.Errorf("%w: product %d has %d units, %d requested", ErrStockInsufficient, productID, stock.Amount, amount)
	}

	updated[i].Amount = amount
	if err = s.commit(ctx, updated, enum.CartEventTypeProductAmountUpdated, productID, amount); err != nil {
		return err
	}

	newStock := stock.Amount + amount
	if increase {
		newStock = stock.Amount - amount
	}
	return s.catalog.WriteStock(ctx, productID, newStock)
}

// commit persists updated, then makes it the current cart and publishes the change.
// Nothing changes in memory when the write fails.
func (s *service) commit(ctx context.Context, updated models.Cart, eventType enum.CartEventType, productID, amount int) error {
	if err := s.cart.Save(ctx, updated); err != nil {
		return fmt.Errorf("persist cart: %w", err)
	}

	s.mu.Lock()
	s.state = updated
	s.mu.Unlock()

	s.logger.Info("Cart updated",
		zap.String("event_type", string(eventType)),
		zap.Int("product_id", productID),
		zap.Int("amount", amount),
		zap.Int("items", len(updated)))

	s.eventManager.Publish(ctx, models.NewCartEvent(eventType, productID, amount, updated))
	return nil
}
