package holders

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAddress_Accepts(t *testing.T) {
	cases := map[string]string{
		"lowercase":   "0x" + strings.Repeat("ab", 20),
		"uppercase":   "0x" + strings.Repeat("AB", 20),
		"checksummed": "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		"digits only": "0x" + strings.Repeat("0", 40),
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			got, err := ValidateAddress(in)
			require.NoError(t, err)
			assert.Equal(t, strings.ToLower(in), got)
		})
	}
}

func TestValidateAddress_Rejects(t *testing.T) {
	cases := map[string]string{
		"empty":          "",
		"prefix only":    "0x",
		"no prefix":      strings.Repeat("ab", 20) + "00",
		"bare 40 hex":    strings.Repeat("ab", 20),
		"upper prefix":   "0X" + strings.Repeat("ab", 20),
		"too short":      "0x" + strings.Repeat("a", 39),
		"too long":       "0x" + strings.Repeat("a", 41),
		"non-hex":        "0x" + strings.Repeat("g", 40),
		"inner space":    "0x" + strings.Repeat("a", 20) + " " + strings.Repeat("a", 19),
		"trailing space": "0x" + strings.Repeat("a", 40) + " ",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateAddress(in)
			require.ErrorIs(t, err, ErrInvalidAddressFormat)
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	got, err := NormalizeAddress(" 0X" + strings.Repeat("AB", 20) + " ")
	require.NoError(t, err)
	assert.Equal(t, "0x"+strings.Repeat("ab", 20), got)

	_, err = NormalizeAddress("0xnope")
	require.ErrorIs(t, err, ErrInvalidAddressFormat)
}
