package holders

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addr(n int) string {
	return fmt.Sprintf("0x%040x", n)
}

const oneToken = "1000000000000000000"

func TestLedger_SingleTransfer(t *testing.T) {
	l := NewLedger(18)
	require.NoError(t, l.Apply(TransferRecord{From: addr(1), To: addr(2), Value: oneToken}))

	assert.True(t, l.Balance(addr(1)).Equal(decimal.NewFromInt(-1)))
	assert.True(t, l.Balance(addr(2)).Equal(decimal.NewFromInt(1)))
	assert.Equal(t, []string{addr(1), addr(2)}, l.Addresses())
	assert.Equal(t, 1, l.Records())
}

func TestLedger_NegativeMidStream(t *testing.T) {
	l := NewLedger(18)
	// B spends before the credit that funded it is replayed.
	require.NoError(t, l.Apply(TransferRecord{From: addr(2), To: addr(3), Value: oneToken}))
	assert.True(t, l.Balance(addr(2)).IsNegative())

	require.NoError(t, l.Apply(TransferRecord{From: addr(1), To: addr(2), Value: oneToken}))
	assert.True(t, l.Balance(addr(2)).IsZero())
	assert.True(t, l.Balance(addr(3)).Equal(decimal.NewFromInt(1)))
}

func TestLedger_OrderIndependentAndZeroSum(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	records := make([]TransferRecord, 200)
	for i := range records {
		records[i] = TransferRecord{
			From:  addr(rng.Intn(15)),
			To:    addr(rng.Intn(15)),
			Value: fmt.Sprintf("%d%09d", rng.Intn(1000), rng.Intn(1_000_000_000)),
		}
	}

	apply := func(recs []TransferRecord) *Ledger {
		l := NewLedger(18)
		for _, r := range recs {
			require.NoError(t, l.Apply(r))
		}
		return l
	}

	base := apply(records)
	assert.True(t, base.Total().IsZero(), "total = %s", base.Total())

	for round := 0; round < 5; round++ {
		shuffled := append([]TransferRecord(nil), records...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		other := apply(shuffled)
		assert.True(t, other.Total().IsZero())
		for _, a := range base.Addresses() {
			assert.True(t, base.Balance(a).Equal(other.Balance(a)), "balance of %s differs", a)
		}
	}
}

func TestLedger_Decimals(t *testing.T) {
	l := NewLedger(6)
	require.NoError(t, l.Apply(TransferRecord{From: addr(1), To: addr(2), Value: "1500000"}))
	assert.Equal(t, "1.5", l.Balance(addr(2)).String())
}

func TestLedger_RejectsBadValues(t *testing.T) {
	for _, v := range []string{"", "abc", "1.5", "-10"} {
		l := NewLedger(18)
		err := l.Apply(TransferRecord{From: addr(1), To: addr(2), Value: v})
		require.ErrorIs(t, err, ErrInvalidAmount, "value %q", v)
		assert.Equal(t, 0, l.Len())
	}
}

func TestLedger_DustFilter(t *testing.T) {
	l := NewLedger(0)
	// exactly at the threshold, just above it, zero and negative
	l.add(addr(1), DefaultDustThreshold)
	l.add(addr(2), DefaultDustThreshold.Add(decimal.New(1, -20)))
	l.add(addr(3), decimal.Zero)
	l.add(addr(4), decimal.NewFromInt(-5))
	l.add(addr(5), decimal.NewFromInt(7))

	got := l.Holders(DefaultDustThreshold)
	require.Len(t, got, 2)
	assert.Equal(t, addr(2), got[0].Address)
	assert.Equal(t, addr(5), got[1].Address)
}

func TestAddressSet_Dedup(t *testing.T) {
	s := NewAddressSet()
	s.Add(TransferRecord{From: addr(1), To: addr(2)})
	s.Add(TransferRecord{From: addr(2), To: addr(1)})
	s.Add(TransferRecord{From: addr(3), To: addr(3)})

	assert.Equal(t, []string{addr(1), addr(2), addr(3)}, s.Addresses())
	assert.Equal(t, 3, s.Len())
}
