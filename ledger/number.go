package ledger

import "github.com/shopspring/decimal"

// Number is a decimal value that can also represent the MISSING sentinel —
// "not yet supplied by the user" — which is distinct from a zero amount or
// from an intentionally-absent optional field (nil). Partial postings carry
// MISSING numbers until the booking engine interpolates them; a directive
// that still holds one after booking is a booker contract violation (§7).
type Number struct {
	value   decimal.Decimal
	missing bool
}

// MissingNumber is the MISSING sentinel.
var MissingNumber = Number{missing: true}

// NewNumber wraps a concrete decimal value.
func NewNumber(d decimal.Decimal) Number { return Number{value: d} }

// IsMissing reports whether this number is the MISSING sentinel.
func (n Number) IsMissing() bool { return n.missing }

// Decimal returns the underlying value. Callers must check IsMissing first;
// it returns decimal.Zero for a missing number.
func (n Number) Decimal() decimal.Decimal {
	if n.missing {
		return decimal.Zero
	}
	return n.value
}

func (n Number) String() string {
	if n.missing {
		return "MISSING"
	}
	return n.value.String()
}

// Add, Sub, Mul, Div and Neg all propagate MISSING: an operation touching a
// missing operand yields a missing result rather than silently treating it
// as zero.
func (n Number) Add(o Number) Number {
	if n.missing || o.missing {
		return MissingNumber
	}
	return NewNumber(n.value.Add(o.value))
}

func (n Number) Sub(o Number) Number {
	if n.missing || o.missing {
		return MissingNumber
	}
	return NewNumber(n.value.Sub(o.value))
}

func (n Number) Mul(o Number) Number {
	if n.missing || o.missing {
		return MissingNumber
	}
	return NewNumber(n.value.Mul(o.value))
}

func (n Number) Div(o Number) Number {
	if n.missing || o.missing {
		return MissingNumber
	}
	return NewNumber(n.value.Div(o.value))
}

func (n Number) Neg() Number {
	if n.missing {
		return MissingNumber
	}
	return NewNumber(n.value.Neg())
}

func (n Number) IsZero() bool {
	return !n.missing && n.value.IsZero()
}

func (n Number) IsNegative() bool {
	return !n.missing && n.value.IsNegative()
}

func (n Number) Sign() int {
	if n.missing {
		return 0
	}
	return n.value.Sign()
}
