package holders

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ValidateAddress checks that s is "0x" followed by exactly 40 hex digits
// (either case) and returns the canonical lowercase form.
func ValidateAddress(s string) (string, error) {
	if !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddressFormat, s)
	}
	return canonical(s), nil
}

// NormalizeAddress is ValidateAddress for addresses coming from upstream APIs,
// which occasionally send "0X" prefixes or checksummed forms.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0X") {
		s = "0x" + s[2:]
	}
	return ValidateAddress(s)
}

func canonical(s string) string {
	return strings.ToLower(common.HexToAddress(s).Hex())
}
