package catalog

import (
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

const (
	defaultMaxFailures  = 5
	defaultOpenTimeout  = 30 * time.Second
	defaultHalfOpenReqs = 1
)

// BreakerSettings tunes the circuit breaker in front of the service.
// Zero values select the defaults.
type BreakerSettings struct {
	// MaxConsecutiveFailures trips the breaker.
	MaxConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// HalfOpenRequests is the number of probes allowed while half-open.
	HalfOpenRequests uint32
}

func newBreaker(s BreakerSettings, logger *zap.Logger) *gobreaker.CircuitBreaker[*http.Response] {
	maxFailures := s.MaxConsecutiveFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	openTimeout := s.OpenTimeout
	if openTimeout <= 0 {
		openTimeout = defaultOpenTimeout
	}
	halfOpen := s.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = defaultHalfOpenReqs
	}

	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "catalog",
		MaxRequests: halfOpen,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: func(err error) bool {
			// an unknown id is an answer, not an outage
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}
