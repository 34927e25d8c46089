package holders

import (
	"context"
	"errors"
	"fmt"

	"token-holders/internal/clients_api/bitquery"
	"token-holders/internal/infra/retry"
)

type RecentTransfersFetcher interface {
	RecentTransfers(ctx context.Context, token string, limit int) ([]bitquery.Transfer, error)
}

// BulkSource fetches the most recent transfers in one request. It does not
// retry: only balance enrichment retries.
type BulkSource struct {
	client RecentTransfersFetcher
	limit  int
}

func NewBulkSource(client RecentTransfersFetcher, limit int) *BulkSource {
	if limit <= 0 {
		limit = 1000
	}
	return &BulkSource{client: client, limit: limit}
}

func (s *BulkSource) Name() string { return "graphql" }

func (s *BulkSource) FetchTransfers(ctx context.Context, token string, fn func([]TransferRecord) error) error {
	raw, err := s.client.RecentTransfers(ctx, token, s.limit)
	if err != nil {
		fe := &TransferFetchError{Source: s.Name(), Err: err}
		var he *retry.HTTPError
		if errors.As(err, &he) {
			fe.StatusCode = he.StatusCode
			fe.Body = string(he.Body)
		}
		return fe
	}

	records := make([]TransferRecord, 0, len(raw))
	for i, t := range raw {
		from, err := NormalizeAddress(t.Sender)
		if err != nil {
			return &TransferFetchError{Source: s.Name(), Err: fmt.Errorf("record %d sender: %w", i, err)}
		}
		to, err := NormalizeAddress(t.Receiver)
		if err != nil {
			return &TransferFetchError{Source: s.Name(), Err: fmt.Errorf("record %d receiver: %w", i, err)}
		}
		records = append(records, TransferRecord{From: from, To: to, Timestamp: t.Timestamp})
	}

	if len(records) == 0 {
		return nil
	}
	return fn(records)
}
