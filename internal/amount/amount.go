package amount

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxMagnitude bounds user-entered amounts. Anything at or above this is
// rejected at the edit boundary and never enters form state.
var MaxMagnitude = decimal.New(1, 18)

// Validate parses a user-entered decimal string. It returns an error for
// anything that is not a plain non-negative decimal below MaxMagnitude.
// An empty string is valid and means "no amount".
func Validate(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("amount %q is not numeric", s)
	}
	if d.IsNegative() {
		return fmt.Errorf("amount %q is negative", s)
	}
	if d.GreaterThanOrEqual(MaxMagnitude) {
		return fmt.Errorf("amount %q exceeds maximum magnitude", s)
	}
	return nil
}

// HasValue reports whether s parses to a positive amount.
func HasValue(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return false
	}
	return d.IsPositive()
}

// ToRaw converts a human-readable decimal string to integer base units
// using the token's decimal precision. Rounding is floor (truncation
// toward zero) so the raw amount never exceeds what the user typed.
func ToRaw(s string, decimals uint8) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount %q is not numeric", s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount %q is negative", s)
	}
	raw := d.Shift(int32(decimals)).Floor()
	if !raw.BigInt().IsUint64() {
		return 0, fmt.Errorf("amount %q overflows uint64 at %d decimals", s, decimals)
	}
	return raw.BigInt().Uint64(), nil
}

// FromRaw converts integer base units back to a human-readable decimal
// string at the token's full precision, with trailing zeros trimmed.
func FromRaw(raw uint64, decimals uint8) string {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals)).String()
}

// Display renders integer base units as a fixed 6-decimal string, the
// precision the terminal uses for the derived form side.
func Display(raw uint64, decimals uint8) string {
	return decimal.NewFromUint64(raw).Shift(-int32(decimals)).StringFixed(6)
}

// UIFloat converts base units to a float64 for logging and price math.
// Not for exact accounting.
func UIFloat(raw uint64, decimals uint8) float64 {
	return float64(raw) / math.Pow10(int(decimals))
}
