package provider

import (
	"context"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerProvider wraps a provider with a circuit breaker so repeated
// upstream failures stop opening new streams for a while instead of
// burning tokens on a dead connection.
type BreakerProvider struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerProvider wraps inner with a circuit breaker that trips after
// three consecutive stream-open failures and retries after 30 seconds.
func NewBreakerProvider(inner Provider) *BreakerProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        inner.Name(),
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &BreakerProvider{inner: inner, cb: cb}
}

// Name returns the wrapped provider's name.
func (p *BreakerProvider) Name() string {
	return p.inner.Name()
}

// IsAvailable defers to the wrapped provider.
func (p *BreakerProvider) IsAvailable() error {
	return p.inner.IsAvailable()
}

// Stream opens a stream through the breaker. Only stream opening counts
// toward the breaker; failures mid-stream are the session's concern.
func (p *BreakerProvider) Stream(ctx context.Context, system, user string) (ChunkStream, error) {
	v, err := p.cb.Execute(func() (interface{}, error) {
		return p.inner.Stream(ctx, system, user)
	})
	if err != nil {
		return nil, err
	}
	return v.(ChunkStream), nil
}
