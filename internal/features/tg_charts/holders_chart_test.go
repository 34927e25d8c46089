package tg_charts

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"token-holders/internal/features/holders"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func holder(n int, balance string) holders.Holder {
	return holders.Holder{Address: fmt.Sprintf("0x%040x", n), Balance: decimal.RequireFromString(balance)}
}

func TestTopHolders(t *testing.T) {
	list := []holders.Holder{
		holder(1, "5"),
		holder(2, "50"),
		holder(3, "5"),
		holder(4, "0.5"),
	}
	got := TopHolders(list, 3)
	require.Len(t, got, 3)
	assert.Equal(t, list[1].Address, got[0].Address)
	assert.Equal(t, list[0].Address, got[1].Address, "ties keep input order")
	assert.Equal(t, list[2].Address, got[2].Address)
	assert.Equal(t, "5", list[0].Balance.String())
}

func TestGenerateHoldersChart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "charts", "holders.png")
	list := make([]holders.Holder, 30)
	for i := range list {
		list[i] = holder(i+1, fmt.Sprintf("%d.5", (i+1)*1000))
	}

	require.NoError(t, GenerateHoldersChart(path, fmt.Sprintf("0x%040x", 0xdead), list, 10))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, chartWidth, cfg.Width)
	assert.Equal(t, chartHeight, cfg.Height)
}

func TestGenerateHoldersChart_Empty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holders.png")
	require.Error(t, GenerateHoldersChart(path, "0x0", nil, 10))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFormatBalance(t *testing.T) {
	cases := map[string]string{
		"0.000012345": "0",
		"0.25":        "0.25",
		"12":          "12",
		"999.999":     "1000",
		"1500":        "1.5K",
		"2000000":     "2M",
		"7250000000":  "7.3B",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatBalance(decimal.RequireFromString(in)), in)
	}
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0x0000..dead", ShortAddress(fmt.Sprintf("0x%040x", 0xdead)))
	assert.Equal(t, "0xabc", ShortAddress("0xabc"))
}
