package models

import (
	"fmt"
	"regexp"

	"github.com/aman-zulfiqar/chattrade/internal/errs"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// UnknownSymbol marks a balance that could not be determined.
const UnknownSymbol = "UNKNOWN"

// TokenBalance is a display-ready balance for one asset.
type TokenBalance struct {
	Symbol   string `json:"symbol"`
	Balance  string `json:"balance"`
	Decimals uint8  `json:"decimals"`
}

// UnknownBalance is distinct from a real zero balance.
func UnknownBalance() TokenBalance {
	return TokenBalance{Symbol: UnknownSymbol, Balance: "0", Decimals: 18}
}

func (b TokenBalance) IsUnknown() bool {
	return b.Symbol == UnknownSymbol
}

// IsAddress reports whether s is 0x followed by exactly 40 hex digits.
func IsAddress(s string) bool {
	return addressRe.MatchString(s)
}

func ValidateAddress(s string) error {
	if !IsAddress(s) {
		return fmt.Errorf("%w: %q", errs.ErrInvalidAddress, s)
	}
	return nil
}
