package amount

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/aman-zulfiqar/chattrade/internal/errs"
	"github.com/shopspring/decimal"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseUnits converts a human decimal string ("1.5") into base units scaled
// by decimals. Anything outside the digits[.digits] grammar, or carrying more
// fractional digits than the asset supports, is ErrInvalidAmount.
func ParseUnits(s string, decimals uint8) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !decimalPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: %q", errs.ErrInvalidAmount, s)
	}
	if i := strings.IndexByte(s, '.'); i >= 0 && len(s)-i-1 > int(decimals) {
		return nil, fmt.Errorf("%w: precision exceeds %d decimals", errs.ErrInvalidAmount, decimals)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidAmount, err)
	}
	return d.Shift(int32(decimals)).BigInt(), nil
}

// FormatUnits renders base units as a decimal string with trailing zeros trimmed.
func FormatUnits(v *big.Int, decimals uint8) string {
	if v == nil {
		return "0"
	}
	return decimal.NewFromBigInt(v, -int32(decimals)).String()
}

// Rescale converts v between two decimal scales, truncating when narrowing.
func Rescale(v *big.Int, from, to uint8) *big.Int {
	out := new(big.Int).Set(v)
	switch {
	case to > from:
		out.Mul(out, pow10(to-from))
	case from > to:
		out.Quo(out, pow10(from-to))
	}
	return out
}

// Ratio returns (num / 10^numDec) / (den / 10^denDec) with places fractional digits.
func Ratio(num *big.Int, numDec uint8, den *big.Int, denDec uint8, places int32) string {
	if den == nil || den.Sign() == 0 {
		return decimal.Zero.StringFixed(places)
	}
	n := decimal.NewFromBigInt(num, -int32(numDec))
	d := decimal.NewFromBigInt(den, -int32(denDec))
	return n.DivRound(d, places).StringFixed(places)
}

// ApplyBps returns v * (10000 - bps) / 10000 using integer math.
func ApplyBps(v *big.Int, bps uint16) *big.Int {
	if bps >= 10000 {
		return new(big.Int)
	}
	out := new(big.Int).Mul(v, big.NewInt(int64(10000-bps)))
	return out.Quo(out, big.NewInt(10000))
}

func pow10(n uint8) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}
