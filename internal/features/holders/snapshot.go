package holders

// Holder snapshot pipeline:
// validate token -> fetch transfers -> ledger or address set -> (live) enrich -> holders.

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "token-holders/internal/infra/log"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Snapshot struct {
	Source   TransferSource
	Enricher *Enricher // required in ModeLive
	Mode     Mode
	Decimals int32
	// DustThreshold applies to ledger balances. Zero value means DefaultDustThreshold.
	DustThreshold decimal.Decimal
}

type Result struct {
	Token      string
	Mode       Mode
	Source     string
	Holders    []Holder
	Transfers  int
	Pages      int
	Candidates int
	Enrich     EnrichStats
	Duration   time.Duration
}

func (s *Snapshot) Run(ctx context.Context, tokenAddress string) (*Result, error) {
	token, err := ValidateAddress(tokenAddress)
	if err != nil {
		return nil, err
	}
	if s.Source == nil {
		return nil, errors.New("snapshot: no transfer source configured")
	}

	mode := s.Mode
	if mode == "" {
		mode = ModeLedger
	}
	if mode == ModeLive && s.Enricher == nil {
		return nil, errors.New("snapshot: live mode requires a balance enricher")
	}
	if mode != ModeLive && mode != ModeLedger {
		return nil, fmt.Errorf("snapshot: unknown mode %q", mode)
	}

	start := time.Now()
	res := &Result{Token: token, Mode: mode, Source: s.Source.Name()}

	logging.LogInfo("Snapshot started",
		zap.String("token", token),
		zap.String("source", res.Source),
		zap.String("mode", string(mode)))

	ledger := NewLedger(s.Decimals)
	set := NewAddressSet()

	err = s.Source.FetchTransfers(ctx, token, func(records []TransferRecord) error {
		res.Pages++
		for _, rec := range records {
			if mode == ModeLive {
				set.Add(rec)
			} else if err := ledger.Apply(rec); err != nil {
				return &TransferFetchError{Source: res.Source, Page: res.Pages, Err: err}
			}
			res.Transfers++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if mode == ModeLedger {
		res.Candidates = ledger.Len()
		threshold := s.DustThreshold
		if threshold.IsZero() {
			threshold = DefaultDustThreshold
		}
		res.Holders = ledger.Holders(threshold)
	} else {
		res.Candidates = set.Len()
		holders, stats, err := s.Enricher.Enrich(ctx, token, set.Addresses())
		if err != nil {
			return nil, err
		}
		res.Holders = holders
		res.Enrich = stats
	}

	res.Duration = time.Since(start)
	logging.LogSuccess("Snapshot finished",
		zap.String("token", token),
		zap.Int("transfers", res.Transfers),
		zap.Int("candidates", res.Candidates),
		zap.Int("holders", len(res.Holders)),
		zap.Int64("duration_ms", res.Duration.Milliseconds()))

	return res, nil
}
