// Package core holds the budget domain: money parsing, calendar
// partitioning, entities and their invariants.
package core

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidAmount is returned when an amount cannot be parsed to cents.
var ErrInvalidAmount = fmt.Errorf("%w: invalid amount", ErrValidation)

// Money is an amount in integer cents. All stored and compared amounts use
// cents; decimal values exist only at the edges for display.
type Money struct {
	Cents int64 `json:"cents"`
}

// Amount returns the decimal value for display purposes.
// Use cents for calculations to avoid floating-point drift.
func (m Money) Amount() float64 {
	return float64(m.Cents) / 100.0
}

// MarshalJSON emits both the exact cents and the major-unit equivalent, so
// clients never divide by 100 themselves. Unmarshalling reads the cents field
// through the struct tag and ignores the derived amount.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cents  int64   `json:"cents"`
		Amount float64 `json:"amount"`
	}{m.Cents, m.Amount()})
}

// ParseAmountToCents converts a user-entered amount to cents.
//
// Both dot and comma are accepted as decimal separators. Any character that
// is not a digit or a separator is stripped. When more than one separator is
// present only the first one is honored; the rest are discarded as thousands
// noise, so "1.234.56" parses the same as "1.23456". The result is the value
// times 100, rounded half-up to the nearest cent. The arithmetic stays in
// integers so "1.005" lands on 101 instead of falling prey to the float64
// representation of 1.005.
//
// Sign handling falls out of the stripping rule: a minus sign is stripped,
// so the result is never negative. Positivity or non-negativity constraints
// belong to the caller.
func ParseAmountToCents(s string) (int64, error) {
	var b strings.Builder
	seenSep := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == ',':
			if !seenSep {
				b.WriteByte('.')
				seenSep = true
			}
		}
	}
	cleaned := b.String()
	if cleaned == "" || cleaned == "." {
		return 0, ErrInvalidAmount
	}

	intPart, fracPart, _ := strings.Cut(cleaned, ".")
	var cents int64
	if intPart != "" {
		whole, err := strconv.ParseInt(intPart, 10, 64)
		if err != nil {
			return 0, ErrInvalidAmount
		}
		cents = whole * 100
	}
	// The first two fraction digits are cents; the third decides half-up
	// rounding (a fourth digit onward can never flip a half).
	frac := fracPart + "000"
	cents += int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if frac[2] >= '5' {
		cents++
	}
	return cents, nil
}

// CentsToAmount converts cents back to a decimal value. Inverse of
// ParseAmountToCents up to two decimal places.
func CentsToAmount(cents int64) float64 {
	return float64(cents) / 100.0
}
