package holders

// Paginated REST transfer source.
// Walks pages from 1 upward and stops at the first page shorter than the page size.
// MaxPages bounds the walk for providers that never return a short page.

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"token-holders/internal/clients_api/tokenapi"
	logging "token-holders/internal/infra/log"
	"token-holders/internal/infra/retry"

	"go.uber.org/zap"
)

type PageFetcher interface {
	FetchPage(ctx context.Context, tokenAddress string, pageNumber, pageSize int) ([]tokenapi.Transfer, error)
}

type PaginatedSource struct {
	client    PageFetcher
	pageSize  int
	pageDelay time.Duration
	maxPages  int
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewPaginatedSource builds a REST source. maxPages <= 0 disables the cap.
func NewPaginatedSource(client PageFetcher, pageSize int, pageDelay time.Duration, maxPages int) *PaginatedSource {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &PaginatedSource{
		client:    client,
		pageSize:  pageSize,
		pageDelay: pageDelay,
		maxPages:  maxPages,
		sleep:     retry.Sleep,
	}
}

func (s *PaginatedSource) Name() string { return "rest" }

func (s *PaginatedSource) FetchTransfers(ctx context.Context, token string, fn func([]TransferRecord) error) error {
	for page := 1; ; page++ {
		start := time.Now()
		raw, err := s.client.FetchPage(ctx, token, page, s.pageSize)
		if err != nil {
			return s.classify(page, err)
		}

		records := make([]TransferRecord, 0, len(raw))
		for i, t := range raw {
			rec, err := restRecord(t)
			if err != nil {
				return &TransferFetchError{Source: s.Name(), Page: page, Err: fmt.Errorf("record %d: %w", i, err)}
			}
			records = append(records, rec)
		}

		logging.LogDebug("Fetched transfer page",
			zap.Int("page", page),
			zap.Int("records", len(records)),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()))

		if len(records) > 0 {
			if err := fn(records); err != nil {
				return err
			}
		}

		if len(raw) < s.pageSize {
			return nil
		}
		if s.maxPages > 0 && page >= s.maxPages {
			return &TransferFetchError{Source: s.Name(), Page: page, Err: ErrPageLimitReached}
		}
		if err := s.sleep(ctx, s.pageDelay); err != nil {
			return err
		}
	}
}

func (s *PaginatedSource) classify(page int, err error) error {
	var he *retry.HTTPError
	if errors.As(err, &he) {
		if he.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w (page %d): %w", ErrRateLimitExceeded, page, err)
		}
		return &TransferFetchError{
			Source:     s.Name(),
			Page:       page,
			StatusCode: he.StatusCode,
			Body:       string(he.Body),
			Err:        err,
		}
	}
	return &TransferFetchError{Source: s.Name(), Page: page, Err: err}
}

func restRecord(t tokenapi.Transfer) (TransferRecord, error) {
	from, err := NormalizeAddress(t.From)
	if err != nil {
		return TransferRecord{}, fmt.Errorf("from: %w", err)
	}
	to, err := NormalizeAddress(t.To)
	if err != nil {
		return TransferRecord{}, fmt.Errorf("to: %w", err)
	}
	return TransferRecord{From: from, To: to, Value: t.Value, Timestamp: t.Timestamp}, nil
}
