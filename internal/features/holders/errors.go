package holders

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAddressFormat = errors.New("invalid address format")
	ErrRateLimitExceeded    = errors.New("rate limit exceeded")
	ErrTransferFetchFailed  = errors.New("transfer fetch failed")
	ErrBalanceLookupFailed  = errors.New("balance lookup failed")
	ErrPageLimitReached     = errors.New("page limit reached before the provider returned a partial page")
	ErrInvalidAmount        = errors.New("invalid transfer amount")
)

// TransferFetchError describes a failed transfer fetch.
// errors.Is(err, ErrTransferFetchFailed) holds for every TransferFetchError.
type TransferFetchError struct {
	Source     string
	Page       int // 0 for sources without pages
	StatusCode int // 0 when no HTTP response was received
	Body       string
	Err        error
}

func (e *TransferFetchError) Error() string {
	var b strings.Builder
	b.WriteString("transfer fetch failed")

	var meta []string
	if e.Source != "" {
		meta = append(meta, e.Source)
	}
	if e.Page > 0 {
		meta = append(meta, fmt.Sprintf("page %d", e.Page))
	}
	if e.StatusCode > 0 {
		meta = append(meta, fmt.Sprintf("status %d", e.StatusCode))
	}
	if len(meta) > 0 {
		b.WriteString(" (" + strings.Join(meta, ", ") + ")")
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *TransferFetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrTransferFetchFailed}
	}
	return []error{ErrTransferFetchFailed, e.Err}
}
