package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/mfriedlander/ledgerd/ast"
)

// Cost is a fully resolved lot: the booking engine has settled on a concrete
// per-unit price, currency, acquisition date and label. Positions in an
// Inventory are keyed in part by Cost.
type Cost struct {
	NumberPer Number
	Currency  string
	Date      time.Time
	Label     string
}

// Key returns a comparable identity for use as an Inventory map key. Two
// Costs with the same Key are the same lot.
func (c *Cost) Key() string {
	if c == nil {
		return "\x00nocost"
	}
	return fmt.Sprintf("%s|%s|%s|%s", c.NumberPer.String(), c.Currency, c.Date.Format("2006-01-02"), c.Label)
}

func (c *Cost) String() string {
	if c == nil {
		return ""
	}
	parts := []string{fmt.Sprintf("%s %s", c.NumberPer.String(), c.Currency)}
	if !c.Date.IsZero() {
		parts = append(parts, c.Date.Format("2006-01-02"))
	}
	if c.Label != "" {
		parts = append(parts, fmt.Sprintf("%q", c.Label))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Equal compares two bound costs for the STRICT_WITH_SIZE / lot-equality
// checks used by booking.
func (c *Cost) Equal(o *Cost) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.NumberPer.Decimal().Equal(o.NumberPer.Decimal()) &&
		c.Currency == o.Currency &&
		c.Date.Equal(o.Date) &&
		c.Label == o.Label
}

// CostSpec is the unbound cost specification a parsed Posting carries before
// booking resolves it to a concrete Cost. Any field may be MISSING/absent:
//   - NumberPer / NumberTotal: Number, MISSING when not given.
//   - Currency: "" means MISSING (account currencies never validate to "").
//   - Date: nil means "use the transaction date".
//   - Merge: true for the {*} merge-cost marker.
//
// An entirely empty, non-merge spec ({}) requests automatic lot selection
// per the account's booking method.
type CostSpec struct {
	NumberPer   Number
	NumberTotal Number
	Currency    string
	Date        *time.Time
	Label       string
	Merge       bool
}

// IsEmpty reports whether this is the {} "auto-select" spec.
func (cs *CostSpec) IsEmpty() bool {
	if cs == nil {
		return false
	}
	return !cs.Merge && cs.NumberPer.IsMissing() && cs.NumberTotal.IsMissing() &&
		cs.Currency == "" && cs.Date == nil && cs.Label == ""
}

// CostSpecFromAST converts the parser's ast.Cost into our CostSpec,
// preserving the distinction between per-unit ({X CUR}) and total
// ({{X CUR}}) cost syntax via ast.Cost.IsTotal.
func CostSpecFromAST(c *ast.Cost) (*CostSpec, error) {
	if c == nil {
		return nil, nil
	}
	if c.IsMergeCost() {
		return &CostSpec{Merge: true, NumberPer: MissingNumber, NumberTotal: MissingNumber}, nil
	}
	spec := &CostSpec{NumberPer: MissingNumber, NumberTotal: MissingNumber, Label: c.Label}
	if c.Date != nil {
		t := c.Date.Time
		spec.Date = &t
	}
	if c.Amount != nil {
		d, err := ParseAmount(c.Amount)
		if err != nil {
			return nil, fmt.Errorf("invalid cost amount: %w", err)
		}
		if c.IsTotal {
			spec.NumberTotal = NewNumber(d)
		} else {
			spec.NumberPer = NewNumber(d)
		}
		spec.Currency = c.Amount.Currency
	}
	return spec, nil
}

// Resolve converts a fully-known CostSpec (no remaining MISSING numbers,
// after booking/interpolation) plus the posting's units into a bound Cost.
// unit_cost = (number_total + number_per * |units|) / |units|, omitting
// whichever term was never supplied (§4.6 step 6).
func (cs *CostSpec) Resolve(units Number, txnDate time.Time) (*Cost, error) {
	if cs == nil {
		return nil, nil
	}
	if units.IsMissing() || units.IsZero() {
		return nil, fmt.Errorf("cannot resolve cost with zero or missing units")
	}

	date := txnDate
	if cs.Date != nil {
		date = *cs.Date
	}

	absUnits := units.Decimal().Abs()

	switch {
	case !cs.NumberPer.IsMissing() && !cs.NumberTotal.IsMissing():
		total := cs.NumberTotal.Decimal().Add(cs.NumberPer.Decimal().Mul(absUnits))
		return &Cost{NumberPer: NewNumber(total.Div(absUnits)), Currency: cs.Currency, Date: date, Label: cs.Label}, nil
	case !cs.NumberPer.IsMissing():
		return &Cost{NumberPer: cs.NumberPer, Currency: cs.Currency, Date: date, Label: cs.Label}, nil
	case !cs.NumberTotal.IsMissing():
		perUnit := cs.NumberTotal.Decimal().Div(absUnits)
		return &Cost{NumberPer: NewNumber(perUnit), Currency: cs.Currency, Date: date, Label: cs.Label}, nil
	default:
		return nil, fmt.Errorf("cost specification has no number to resolve")
	}
}
