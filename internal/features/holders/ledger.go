package holders

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Ledger accumulates net balances from transfer values.
// Balances may go negative while records are applied; only the final sum matters.
type Ledger struct {
	decimals int32
	balances map[string]decimal.Decimal
	order    []string
	records  int
}

func NewLedger(decimals int32) *Ledger {
	return &Ledger{
		decimals: decimals,
		balances: make(map[string]decimal.Decimal),
	}
}

// Apply debits rec.From and credits rec.To by rec.Value / 10^decimals.
func (l *Ledger) Apply(rec TransferRecord) error {
	raw, err := decimal.NewFromString(rec.Value)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidAmount, rec.Value, err)
	}
	if !raw.IsInteger() || raw.IsNegative() {
		return fmt.Errorf("%w: %q is not a non-negative integer", ErrInvalidAmount, rec.Value)
	}

	amount := raw.Shift(-l.decimals)
	l.add(rec.From, amount.Neg())
	l.add(rec.To, amount)
	l.records++
	return nil
}

func (l *Ledger) add(addr string, delta decimal.Decimal) {
	cur, ok := l.balances[addr]
	if !ok {
		l.order = append(l.order, addr)
		l.balances[addr] = delta
		return
	}
	l.balances[addr] = cur.Add(delta)
}

// Balance returns the accumulated balance of addr (zero if never seen).
func (l *Ledger) Balance(addr string) decimal.Decimal {
	return l.balances[addr]
}

// Addresses returns every address seen, in first-seen order.
func (l *Ledger) Addresses() []string {
	out := make([]string, len(l.order))
	copy(out, l.order)
	return out
}

func (l *Ledger) Len() int     { return len(l.order) }
func (l *Ledger) Records() int { return l.records }

// Total is the sum of all balances. Every debit has a matching credit, so it is zero.
func (l *Ledger) Total() decimal.Decimal {
	total := decimal.Zero
	for _, b := range l.balances {
		total = total.Add(b)
	}
	return total
}

// Holders returns entries whose balance is strictly greater than threshold,
// in first-seen order.
func (l *Ledger) Holders(threshold decimal.Decimal) []Holder {
	out := make([]Holder, 0, len(l.order))
	for _, addr := range l.order {
		if b := l.balances[addr]; b.GreaterThan(threshold) {
			out = append(out, Holder{Address: addr, Balance: b})
		}
	}
	return out
}

// AddressSet collects distinct senders and receivers in first-seen order.
type AddressSet struct {
	seen  map[string]struct{}
	order []string
}

func NewAddressSet() *AddressSet {
	return &AddressSet{seen: make(map[string]struct{})}
}

func (s *AddressSet) Add(rec TransferRecord) {
	s.insert(rec.From)
	s.insert(rec.To)
}

func (s *AddressSet) insert(addr string) {
	if _, ok := s.seen[addr]; ok {
		return
	}
	s.seen[addr] = struct{}{}
	s.order = append(s.order, addr)
}

func (s *AddressSet) Addresses() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

func (s *AddressSet) Len() int { return len(s.order) }
