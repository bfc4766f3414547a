package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"goflare.io/shopcart/models"
	"goflare.io/shopcart/storage"
)

// DefaultKey is the storage key the cart snapshot lives under.
const DefaultKey = "@RocketShoes:cart"

// ErrMalformedCart is returned by Load when the stored snapshot cannot be decoded
// or breaks the cart invariants.
var ErrMalformedCart = errors.New("malformed cart snapshot")

var _ Repository = (*repository)(nil)

type Repository interface {
	// Load returns the stored cart. An absent snapshot yields an empty cart and no error.
	Load(ctx context.Context) (models.Cart, error)
	// Save overwrites the stored snapshot with cart.
	Save(ctx context.Context, cart models.Cart) error
}

type repository struct {
	store  storage.KeyValue
	key    string
	logger *zap.Logger
}

func NewRepository(store storage.KeyValue, key string, logger *zap.Logger) Repository {
	if key == "" {
		key = DefaultKey
	}
	return &repository{
		store:  store,
		key:    key,
		logger: logger,
	}
}

func (r *repository) Load(ctx context.Context) (models.Cart, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, storage.ErrNotFound) {
		return models.NewCart(), nil
	}
	if err != nil {
		r.logger.Error("Failed to read cart snapshot", zap.String("key", r.key), zap.Error(err))
		return models.NewCart(), err
	}

	cart, err := decode(raw)
	if err != nil {
		return models.NewCart(), fmt.Errorf("%w: %v", ErrMalformedCart, err)
	}

	return cart, nil
}

func (r *repository) Save(ctx context.Context, cart models.Cart) error {
	if cart == nil {
		cart = models.NewCart()
	}

	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err = r.store.Set(ctx, r.key, string(data)); err != nil {
		r.logger.Error("Failed to write cart snapshot", zap.String("key", r.key), zap.Error(err))
		return err
	}

	return nil
}

// decode parses a snapshot strictly: unknown fields, trailing data, a non-array
// document and invariant violations are all rejected.
func decode(raw string) (models.Cart, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()

	var cart models.Cart
	if err := dec.Decode(&cart); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after cart array")
	}
	if cart == nil {
		// JSON null
		return nil, errors.New("cart snapshot is null")
	}
	if err := cart.Validate(); err != nil {
		return nil, err
	}

	return cart, nil
}
