package holders

// Balance enrichment: resolves the live balance of each candidate address.
// Addresses are processed in fixed-size batches. Lookups inside a batch run
// concurrently and the batch finishes only when all of them are done.
// A lookup that keeps failing drops its address; it never fails the run.

import (
	"context"
	"fmt"
	"time"

	logging "token-holders/internal/infra/log"
	"token-holders/internal/infra/retry"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type BalanceLookup interface {
	// Balance returns the current balance of address in token, or "" if the
	// upstream has no entry for it.
	Balance(ctx context.Context, token, address string) (string, error)
}

type EnricherConfig struct {
	BatchSize   int
	MaxAttempts int
	// BaseDelay is both the first backoff step and the pause between batches.
	BaseDelay time.Duration
}

func DefaultEnricherConfig() EnricherConfig {
	return EnricherConfig{BatchSize: 10, MaxAttempts: 3, BaseDelay: 300 * time.Millisecond}
}

type EnrichStats struct {
	Batches  int
	Lookups  int
	Attempts int
	Failed   int
	Empty    int
	Holders  int
}

type Enricher struct {
	lookup BalanceLookup
	cfg    EnricherConfig
	sleep  func(ctx context.Context, d time.Duration) error
}

func NewEnricher(lookup BalanceLookup, cfg EnricherConfig) *Enricher {
	def := DefaultEnricherConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	return &Enricher{lookup: lookup, cfg: cfg, sleep: retry.Sleep}
}

// Batches splits addrs into consecutive groups of at most size elements.
func Batches(addrs []string, size int) [][]string {
	if size <= 0 {
		size = 1
	}
	batches := make([][]string, 0, (len(addrs)+size-1)/size)
	for i := 0; i < len(addrs); i += size {
		end := min(i+size, len(addrs))
		batches = append(batches, addrs[i:end])
	}
	return batches
}

type lookupResult struct {
	balance  decimal.Decimal
	holding  bool
	attempts int
	err      error
}

// Enrich returns a Holder for every address with a strictly positive live
// balance, in the order of addresses. The only error it returns is a context error.
func (e *Enricher) Enrich(ctx context.Context, token string, addresses []string) ([]Holder, EnrichStats, error) {
	var stats EnrichStats
	holders := make([]Holder, 0, len(addresses))

	batches := Batches(addresses, e.cfg.BatchSize)
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return holders, stats, err
		}

		results := make([]lookupResult, len(batch))

		var g errgroup.Group
		g.SetLimit(e.cfg.BatchSize)
		for j, addr := range batch {
			g.Go(func() error {
				results[j] = e.lookupWithRetry(ctx, token, addr)
				return nil
			})
		}
		_ = g.Wait()

		stats.Batches++
		for j, res := range results {
			stats.Lookups++
			stats.Attempts += res.attempts
			switch {
			case res.err != nil:
				stats.Failed++
				logging.LogWarn("Balance lookup failed, skipping address",
					zap.String("address", batch[j]),
					zap.Int("attempts", res.attempts),
					zap.Error(res.err))
			case res.holding:
				holders = append(holders, Holder{Address: batch[j], Balance: res.balance})
			default:
				stats.Empty++
			}
		}

		if err := ctx.Err(); err != nil {
			return holders, stats, err
		}

		logging.LogDebug("Balance batch done",
			zap.Int("batch", i+1),
			zap.Int("batches", len(batches)),
			zap.Int("holders", len(holders)))

		if i < len(batches)-1 {
			if err := e.sleep(ctx, e.cfg.BaseDelay); err != nil {
				return holders, stats, err
			}
		}
	}

	stats.Holders = len(holders)
	return holders, stats, nil
}

func (e *Enricher) lookupWithRetry(ctx context.Context, token, addr string) lookupResult {
	var value string
	// MaxDelay also caps Retry-After, so one 429 cannot stall the batch.
	attempts, err := retry.Do(ctx, retry.Options{
		MaxAttempts: e.cfg.MaxAttempts,
		BaseDelay:   e.cfg.BaseDelay,
		MaxDelay:    4 * e.cfg.BaseDelay,
		Backoff:     2.0,
		Retryable:   retry.Always,
		Sleep:       e.sleep,
		OnRetry: func(attempt int, delay time.Duration, err error) {
			logging.LogDebug("Retrying balance lookup",
				zap.String("address", addr),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(err))
		},
	}, func(int) error {
		v, err := e.lookup.Balance(ctx, token, addr)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return lookupResult{attempts: attempts, err: fmt.Errorf("%w: %w", ErrBalanceLookupFailed, err)}
	}

	balance, ok := parseBalance(value)
	return lookupResult{balance: balance, holding: ok, attempts: attempts}
}

// parseBalance treats missing, malformed, zero and negative values as no holding.
func parseBalance(v string) (decimal.Decimal, bool) {
	if v == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		logging.LogDebug("Ignoring malformed balance value", zap.String("value", v))
		return decimal.Zero, false
	}
	if !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}
