// Package embedding turns chunk texts into vectors through an external
// embedding service, in batches, with bounded retries.
package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/clever-documents/internal/core/domain"
	"github.com/custodia-labs/clever-documents/internal/core/ports/driven"
	"github.com/custodia-labs/clever-documents/internal/logger"
)

// Ensure Batcher implements the interface.
var _ driven.EmbeddingService = (*Batcher)(nil)

// Default batching values.
const (
	DefaultBatchSize   = 10
	DefaultConcurrency = 4
)

// Batcher splits inputs into service-sized batches, issues them with bounded
// concurrency and reassembles vectors in input order. A run either returns
// one vector per input or an error and no vectors.
type Batcher struct {
	svc         driven.EmbeddingService
	batchSize   int
	concurrency int
	retrier     Retrier
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
}

// Option configures a Batcher.
type Option func(*Batcher)

// WithBatchSize sets the maximum texts per service call.
func WithBatchSize(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

// WithConcurrency sets how many batch calls may be in flight.
func WithConcurrency(n int) Option {
	return func(b *Batcher) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithRetryPolicy sets the backoff policy for transient failures.
func WithRetryPolicy(p domain.RetryPolicy) Option {
	return func(b *Batcher) {
		b.retrier.Policy = p
	}
}

// WithSleeper replaces the clock used between retries.
func WithSleeper(s Sleeper) Option {
	return func(b *Batcher) {
		b.retrier.Sleep = s
	}
}

// WithRateLimit caps outbound calls per second. rps <= 0 disables the limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *Batcher) {
		if rps <= 0 {
			b.limiter = nil
			return
		}
		b.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
	}
}

// WithCircuitBreaker replaces the default breaker. nil disables it.
func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(b *Batcher) {
		b.breaker = cb
	}
}

// NewCircuitBreaker builds the breaker used around the embedding service.
// Only transient failures count; an invalid request leaves it closed.
func NewCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("embedding circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
		IsSuccessful: func(err error) bool {
			return err == nil || !IsTransient(err)
		},
	})
}

// NewBatcher wraps svc.
func NewBatcher(svc driven.EmbeddingService, opts ...Option) *Batcher {
	b := &Batcher{
		svc:         svc,
		batchSize:   DefaultBatchSize,
		concurrency: DefaultConcurrency,
		retrier:     Retrier{Policy: domain.DefaultRetryPolicy()},
		breaker:     NewCircuitBreaker("embedding:" + svc.ModelName()),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// EmbedBatch returns one vector per text in input order.
// Empty input returns no vectors without calling the service.
func (b *Batcher) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	out := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.concurrency)

	batches := 0
	for start := 0; start < len(texts); start += b.batchSize {
		end := min(start+b.batchSize, len(texts))
		batch := batches
		batches++

		g.Go(func() error {
			vectors, err := b.call(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("batch %d [%d,%d): %w", batch, start, end, err)
			}
			// Each batch owns its slot range; order is restored here.
			copy(out[start:end], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	logger.Debug("embedded texts", "texts", len(texts), "batches", batches, "model", b.svc.ModelName())
	return out, nil
}

// Embed returns the vector of a single text, with the same retry policy.
func (b *Batcher) Embed(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := b.retrier.Do(ctx, "embed", func(ctx context.Context) error {
		res, err := b.execute(ctx, func() (any, error) {
			return b.svc.Embed(ctx, text)
		})
		if err != nil {
			return err
		}
		vector = res.([]float32)
		return nil
	})
	return vector, err
}

func (b *Batcher) call(ctx context.Context, texts []string) ([][]float32, error) {
	var vectors [][]float32
	err := b.retrier.Do(ctx, "embed batch", func(ctx context.Context) error {
		res, err := b.execute(ctx, func() (any, error) {
			return b.svc.EmbedBatch(ctx, texts)
		})
		if err != nil {
			return err
		}
		got := res.([][]float32)
		if len(got) != len(texts) {
			return fmt.Errorf("%w: service returned %d vectors for %d texts",
				domain.ErrRecordCountMismatch, len(got), len(texts))
		}
		vectors = got
		return nil
	})
	return vectors, err
}

// execute applies the rate limit and circuit breaker to one service call.
func (b *Batcher) execute(ctx context.Context, fn func() (any, error)) (any, error) {
	if b.limiter != nil {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	if b.breaker == nil {
		return fn()
	}
	return b.breaker.Execute(fn)
}

// Dimensions returns the wrapped service's vector size.
func (b *Batcher) Dimensions() int {
	return b.svc.Dimensions()
}

// ModelName returns the wrapped service's model.
func (b *Batcher) ModelName() string {
	return b.svc.ModelName()
}

// Ping checks the wrapped service.
func (b *Batcher) Ping(ctx context.Context) error {
	return b.svc.Ping(ctx)
}

// Close closes the wrapped service.
func (b *Batcher) Close() error {
	return b.svc.Close()
}
