package holders

import (
	"context"

	"github.com/shopspring/decimal"
)

// TransferRecord is one token movement. Value is the raw integer amount and is
// empty for sources that do not report amounts.
type TransferRecord struct {
	From      string
	To        string
	Value     string
	Timestamp string
}

// Holder is one exported row.
type Holder struct {
	Address string
	Balance decimal.Decimal
}

// DefaultDustThreshold is the balance at or below which a ledger entry is dropped.
var DefaultDustThreshold = decimal.New(1, -10)

// TransferSource produces transfer records for a token. Records are handed to
// fn in retrieval order, one call per page (or one call for bulk sources).
// An error returned by fn stops the fetch and is returned unchanged.
type TransferSource interface {
	Name() string
	FetchTransfers(ctx context.Context, token string, fn func([]TransferRecord) error) error
}

// Mode selects where holder balances come from.
type Mode string

const (
	// ModeLedger sums the values of the fetched transfers.
	ModeLedger Mode = "ledger"
	// ModeLive queries each candidate address for its current balance.
	ModeLive Mode = "live"
)
