// Package catalog is the HTTP client for the remote product and stock service.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"goflare.io/shopcart/models"
)

const (
	DefaultBaseURL = "http://localhost:3333"
	defaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of a failed response body ends up in an error.
	maxErrorBody = 512
)

var (
	// ErrNotFound is returned when the service answers 404 for a product or stock id.
	ErrNotFound = errors.New("catalog: not found")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = errors.New("catalog: service unavailable")
)

var _ Client = (*client)(nil)

type Client interface {
	FetchAllProducts(ctx context.Context) ([]models.Product, error)
	FetchProduct(ctx context.Context, productID int) (*models.Product, error)
	FetchStock(ctx context.Context, productID int) (*models.Stock, error)
	// WriteStock overwrites the remote stock amount unconditionally.
	WriteStock(ctx context.Context, productID, amount int) error
}

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Breaker    BreakerSettings
}

type client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	logger  *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &client{
		baseURL: baseURL,
		http:    httpClient,
		breaker: newBreaker(opts.Breaker, logger),
		logger:  logger,
	}
}

func (c *client) FetchAllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.getJSON(ctx, "/products", &products); err != nil {
		return nil, fmt.Errorf("fetch products: %w", err)
	}
	return products, nil
}

func (c *client) FetchProduct(ctx context.Context, productID int) (*models.Product, error) {
	var product models.Product
	if err := c.getJSON(ctx, fmt.Sprintf("/products/%d", productID), &product); err != nil {
		return nil, fmt.Errorf("fetch product %d: %w", productID, err)
	}
	return &product, nil
}

func (c *client) FetchStock(ctx context.Context, productID int) (*models.Stock, error) {
	var stock models.Stock
	if err := c.getJSON(ctx, fmt.Sprintf("/stock/%d", productID), &stock); err != nil {
		return nil, fmt.Errorf("fetch stock %d: %w", productID, err)
	}
	return &stock, nil
}

func (c *client) WriteStock(ctx context.Context, productID, amount int) error {
	body, err := json.Marshal(writeStockRequest{ID: productID, Amount: amount})
	if err != nil {
		return fmt.Errorf("marshal stock %d: %w", productID, err)
	}

	resp, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/stock/%d", productID), body)
	if err != nil {
		return fmt.Errorf("write stock %d: %w", productID, err)
	}
	defer drain(resp)

	c.logger.Debug("stock written", zap.Int("product_id", productID), zap.Int("amount", amount))
	return nil
}

func (c *client) getJSON(ctx context.Context, path string, out any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer drain(resp)

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode response", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// do sends the request through the circuit breaker. Any non-2xx status is an error;
// a 404 maps to ErrNotFound and does not count against the breaker.
func (c *client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			drain(resp)
			return nil, notFoundError{path: path}
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			drain(resp)
			return nil, &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
		}

		return resp, nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warn("catalog breaker rejected request", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err != nil {
		var nf notFoundError
		if !errors.As(err, &nf) {
			c.logger.Error("catalog request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		}
		return nil, err
	}

	return resp, nil
}

// StatusError reports an unexpected HTTP status from the service.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

type notFoundError struct {
	path string
}

func (e notFoundError) Error() string { return fmt.Sprintf("%s: %v", e.path, ErrNotFound) }

func (e notFoundError) Unwrap() error { return ErrNotFound }

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
