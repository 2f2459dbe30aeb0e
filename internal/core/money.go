// Package core holds the ledger domain: transactions, goals, debts and the
// pure arithmetic derived from them.
//
// Amounts are exact decimals. Stored amounts carry at most two fractional
// digits; derived values such as allocations keep full precision.
package core

import "github.com/shopspring/decimal"

func init() {
	// Amounts are rendered as JSON numbers, matching what clients send.
	decimal.MarshalJSONWithoutQuotes = true
}

// MaxAmount bounds every stored amount so it fits NUMERIC(16,2) and int64 cents.
var MaxAmount = decimal.New(1, 14)

// Bounds checked on every parsed amount before any arithmetic. Values
// outside them are far beyond MaxAmount or cent precision anyway, and
// rescaling them would cost time proportional to the exponent.
const (
	maxAmountDigits   = 32
	minAmountExponent = -16
	maxAmountExponent = 16
)

// CheckMagnitude rejects amounts whose exponent or digit count is out of
// range. It only inspects the representation, so it is cheap for any input.
func CheckMagnitude(field string, d decimal.Decimal) error {
	if e := d.Exponent(); e > maxAmountExponent {
		return NewValidationError(field, field+" is too large")
	} else if e < minAmountExponent {
		return NewValidationError(field, field+" has too many decimal places")
	}
	if d.NumDigits() > maxAmountDigits {
		return NewValidationError(field, field+" has too many digits")
	}
	return nil
}

// Cents converts an amount to integer cents. Callers validate scale first.
func Cents(d decimal.Decimal) int64 {
	return d.Shift(2).IntPart()
}

// FromCents is the inverse of Cents.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// ValidatePositive checks an amount that must be > 0 with cent precision.
func ValidatePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return NewValidationError(field, field+" must be greater than 0")
	}
	return validateScale(field, d)
}

// ValidateNonNegative checks an amount that must be >= 0 with cent precision.
func ValidateNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return NewValidationError(field, field+" must not be negative")
	}
	return validateScale(field, d)
}

func validateScale(field string, d decimal.Decimal) error {
	if err := CheckMagnitude(field, d); err != nil {
		return err
	}
	if !d.Equal(d.Truncate(2)) {
		return NewValidationError(field, field+" must have at most two decimal places")
	}
	if d.GreaterThanOrEqual(MaxAmount) {
		return NewValidationError(field, field+" is too large")
	}
	return nil
}
