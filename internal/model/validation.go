package model

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// NumericString accepts either a JSON number or a JSON string and keeps the
// literal text, so that malformed numbers surface as field errors instead of
// decode failures.
type NumericString string

// UnmarshalJSON implements json.Unmarshaler
func (n *NumericString) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" {
		*n = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = NumericString(strings.TrimSpace(s))
		return nil
	}
	*n = NumericString(raw)
	return nil
}

// IsSet reports whether a value was supplied
func (n NumericString) IsSet() bool {
	return n != ""
}

// String returns the literal text
func (n NumericString) String() string {
	return string(n)
}

// NumericFromDecimal renders d as a NumericString
func NumericFromDecimal(d decimal.Decimal) NumericString {
	return NumericString(d.String())
}

// FieldErrors maps a request field name to its first validation message
type FieldErrors map[string]string

// Add records msg for field unless the field already has a message
func (fe FieldErrors) Add(field, msg string) {
	if msg == "" {
		return
	}
	if _, exists := fe[field]; !exists {
		fe[field] = msg
	}
}

// Has reports whether field failed validation
func (fe FieldErrors) Has(field string) bool {
	_, ok := fe[field]
	return ok
}

// Empty reports whether no field failed
func (fe FieldErrors) Empty() bool {
	return len(fe) == 0
}

// Limits on parsed numbers. Arithmetic on a decimal rescales it to its
// exponent, so huge exponents would stall comparisons.
const (
	maxDecimalExponent = 18
	minDecimalExponent = -30
	maxDecimalDigits   = 30
)

// ErrNumberOutOfRange is returned for numbers beyond the accepted precision
var ErrNumberOutOfRange = errors.New("number out of range")

// ParseDecimal parses s, rejecting numbers with too many digits or an
// exponent outside the supported range.
func ParseDecimal(s string) (decimal.Decimal, error) {
	num, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !DecimalInRange(num) {
		return decimal.Zero, ErrNumberOutOfRange
	}
	return num, nil
}

// DecimalInRange reports whether d fits the accepted digits and exponent
func DecimalInRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp <= maxDecimalExponent && exp >= minDecimalExponent && d.NumDigits() <= maxDecimalDigits
}

// NumberRule describes the generic numeric field checks
type NumberRule struct {
	Required bool
	Integer  bool
	Min      *decimal.Decimal
	Max      *decimal.Decimal
}

// Bound is a convenience for building NumberRule limits
func Bound(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// ValidateNumber parses value under rule. It returns the parsed number, whether
// a value was present, and an error message ("" when valid).
func ValidateNumber(value NumericString, rule NumberRule) (decimal.Decimal, bool, string) {
	if !value.IsSet() {
		if rule.Required {
			return decimal.Zero, false, "This field is required"
		}
		return decimal.Zero, false, ""
	}

	num, err := ParseDecimal(value.String())
	if err != nil {
		return decimal.Zero, true, "Please enter a valid number"
	}

	if rule.Integer && !num.IsInteger() {
		return num, true, "Please enter a whole number"
	}

	if rule.Min != nil && num.LessThan(*rule.Min) {
		return num, true, "Value must be at least " + rule.Min.String()
	}

	if rule.Max != nil && num.GreaterThan(*rule.Max) {
		return num, true, "Value must be less than " + rule.Max.String()
	}

	return num, true, ""
}

// ValidateText checks length limits on a free-text field
func ValidateText(value string, required bool, minLen, maxLen int) string {
	if value == "" {
		if required {
			return "This field is required"
		}
		return ""
	}
	if minLen > 0 && len(value) < minLen {
		return "Must be at least " + itoa(minLen) + " characters"
	}
	if maxLen > 0 && len(value) > maxLen {
		return "Must be less than " + itoa(maxLen) + " characters"
	}
	return ""
}

func itoa(n int) string {
	return decimal.NewFromInt(int64(n)).String()
}
