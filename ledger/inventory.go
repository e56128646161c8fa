package ledger

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Amount pairs a Number with its currency. Unlike ast.Amount (which stores
// the raw parsed string), ledger.Amount is the booking engine's working
// representation and can carry MissingNumber.
type Amount struct {
	Number   Number
	Currency string
}

func (a Amount) String() string {
	return fmt.Sprintf("%s %s", a.Number.String(), a.Currency)
}

// Position is one lot (or uncosted holding) inside an Inventory: a currency
// amount with an optional bound Cost. A nil Cost means an uncosted position.
type Position struct {
	Units Amount
	Cost  *Cost
}

func (p *Position) key() string {
	return p.Units.Currency + "\x1f" + p.Cost.Key()
}

func (p *Position) String() string {
	if p.Cost == nil {
		return p.Units.String()
	}
	return p.Units.String() + " " + p.Cost.String()
}

// Outcome reports what AddAmount / AddPosition did to the inventory.
type Outcome int

const (
	Ignored Outcome = iota
	Created
	Reduced
	Augmented
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "CREATED"
	case Reduced:
		return "REDUCED"
	case Augmented:
		return "AUGMENTED"
	default:
		return "IGNORED"
	}
}

// Inventory is a multiset of Positions keyed by (currency, cost-identity). It
// never holds a zero-unit position and never holds two positions with the
// same key (§4.1 invariants).
type Inventory struct {
	positions map[string]*Position
	// order preserves first-insertion order per key for deterministic
	// iteration (errors/printing reproducibility), independent of Go's
	// randomized map order.
	order []string
}

// NewInventory returns an empty inventory.
func NewInventory() *Inventory {
	return &Inventory{positions: make(map[string]*Position)}
}

// AddAmount adds units of currency, optionally at cost, returning the prior
// position (nil if none existed) and what happened.
//
//   - No existing entry at the key: IGNORED if units == 0, else CREATED.
//   - Existing entry, opposite sign from the new units: REDUCED.
//   - Existing entry, same sign (or existing is zero, impossible by
//     invariant): AUGMENTED.
//   - If the resulting number is zero, the entry is removed.
func (inv *Inventory) AddAmount(units Number, currency string, cost *Cost) (*Position, Outcome) {
	key := currency + "\x1f" + cost.Key()
	existing, ok := inv.positions[key]

	if !ok {
		if units.IsZero() {
			return nil, Ignored
		}
		pos := &Position{Units: Amount{Number: units, Currency: currency}, Cost: cost}
		inv.positions[key] = pos
		inv.order = append(inv.order, key)
		return nil, Created
	}

	prior := &Position{Units: existing.Units, Cost: existing.Cost}
	outcome := Augmented
	if existing.Units.Number.Sign() != 0 && units.Sign() != 0 && existing.Units.Number.Sign() != units.Sign() {
		outcome = Reduced
	}

	newNumber := existing.Units.Number.Add(units)
	if newNumber.IsZero() {
		delete(inv.positions, key)
		inv.removeOrder(key)
	} else {
		existing.Units.Number = newNumber
	}

	return prior, outcome
}

// AddPosition adds a full position (equivalent to AddAmount(p.Units.Number, p.Units.Currency, p.Cost)).
func (inv *Inventory) AddPosition(p *Position) (*Position, Outcome) {
	return inv.AddAmount(p.Units.Number, p.Units.Currency, p.Cost)
}

// AddInventory applies every position of other to inv, in iteration order.
func (inv *Inventory) AddInventory(other *Inventory) {
	for _, p := range other.Positions() {
		inv.AddPosition(p)
	}
}

func (inv *Inventory) removeOrder(key string) {
	for i, k := range inv.order {
		if k == key {
			inv.order = append(inv.order[:i], inv.order[i+1:]...)
			return
		}
	}
}

// Positions returns all positions in deterministic (currency, cost-key) order.
func (inv *Inventory) Positions() []*Position {
	keys := make([]string, len(inv.order))
	copy(keys, inv.order)
	sort.Strings(keys)
	out := make([]*Position, 0, len(keys))
	for _, k := range keys {
		if p, ok := inv.positions[k]; ok {
			out = append(out, p)
		}
	}
	return out
}

// PositionsForCurrency returns positions whose Units.Currency matches c.
func (inv *Inventory) PositionsForCurrency(c string) []*Position {
	var out []*Position
	for _, p := range inv.Positions() {
		if p.Units.Currency == c {
			out = append(out, p)
		}
	}
	return out
}

// IsEmpty reports whether the inventory holds no positions.
func (inv *Inventory) IsEmpty() bool {
	return len(inv.positions) == 0
}

// IsReducedBy reports whether adding `amount` of `currency` would reduce an
// existing position: some position of that currency has the opposite sign
// and amount is non-zero.
func (inv *Inventory) IsReducedBy(amount Number, currency string) bool {
	if amount.IsZero() || amount.IsMissing() {
		return false
	}
	for _, p := range inv.PositionsForCurrency(currency) {
		if p.Units.Number.Sign() != 0 && p.Units.Number.Sign() != amount.Sign() {
			return true
		}
	}
	return false
}

// IsSmall reports whether every position's |units| is within its currency's
// tolerance. tolerances maps currency -> tolerance; "*" is the wildcard
// fallback used when a currency has no specific entry.
func (inv *Inventory) IsSmall(tolerances map[string]decimal.Decimal) bool {
	for _, p := range inv.Positions() {
		tol, ok := tolerances[p.Units.Currency]
		if !ok {
			tol, ok = tolerances["*"]
		}
		if !ok {
			return false
		}
		if p.Units.Number.Decimal().Abs().GreaterThan(tol) {
			return false
		}
	}
	return true
}

// IsMixed reports whether two positions of the same currency carry opposite
// signs.
func (inv *Inventory) IsMixed() bool {
	for _, c := range inv.Currencies() {
		seenPos, seenNeg := false, false
		for _, p := range inv.PositionsForCurrency(c) {
			switch {
			case p.Units.Number.IsNegative():
				seenNeg = true
			case !p.Units.Number.IsZero():
				seenPos = true
			}
		}
		if seenPos && seenNeg {
			return true
		}
	}
	return false
}

// GetCurrencyUnits returns the signed sum of units.number across all
// positions of the given currency (zero if none).
func (inv *Inventory) GetCurrencyUnits(currency string) Number {
	total := NewNumber(decimal.Zero)
	for _, p := range inv.PositionsForCurrency(currency) {
		total = total.Add(p.Units.Number)
	}
	return total
}

// Currencies returns the distinct set of units-currencies held.
func (inv *Inventory) Currencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range inv.Positions() {
		if !seen[p.Units.Currency] {
			seen[p.Units.Currency] = true
			out = append(out, p.Units.Currency)
		}
	}
	sort.Strings(out)
	return out
}

// CostCurrencies returns the distinct set of cost-currencies among costed
// positions.
func (inv *Inventory) CostCurrencies() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range inv.Positions() {
		if p.Cost != nil && !seen[p.Cost.Currency] {
			seen[p.Cost.Currency] = true
			out = append(out, p.Cost.Currency)
		}
	}
	sort.Strings(out)
	return out
}

// CurrencyPair is a (units-currency, cost-currency) pair; CostCurrency is ""
// for uncosted positions.
type CurrencyPair struct {
	UnitsCurrency string
	CostCurrency  string
}

// CurrencyPairs returns the distinct (units-currency, cost-currency|"") set.
func (inv *Inventory) CurrencyPairs() []CurrencyPair {
	seen := make(map[CurrencyPair]bool)
	var out []CurrencyPair
	for _, p := range inv.Positions() {
		cc := ""
		if p.Cost != nil {
			cc = p.Cost.Currency
		}
		pair := CurrencyPair{UnitsCurrency: p.Units.Currency, CostCurrency: cc}
		if !seen[pair] {
			seen[pair] = true
			out = append(out, pair)
		}
	}
	return out
}

// Average groups positions by (units-currency, cost-currency) and collapses
// each group into a single position: units = sum, cost-number = total-cost /
// total-units, cost-date = earliest, cost-label = "". Groups whose total
// units sum to zero are dropped. Uncosted groups pass through unchanged
// (there is nothing to average).
func (inv *Inventory) Average() *Inventory {
	type group struct {
		totalUnits decimal.Decimal
		totalCost  decimal.Decimal
		currency   string
		costCur    string
		earliest   *Cost
		anyCost    bool
	}
	groups := make(map[CurrencyPair]*group)
	var order []CurrencyPair

	for _, p := range inv.Positions() {
		cc := ""
		if p.Cost != nil {
			cc = p.Cost.Currency
		}
		key := CurrencyPair{UnitsCurrency: p.Units.Currency, CostCurrency: cc}
		g, ok := groups[key]
		if !ok {
			g = &group{currency: p.Units.Currency, costCur: cc}
			groups[key] = g
			order = append(order, key)
		}
		g.totalUnits = g.totalUnits.Add(p.Units.Number.Decimal())
		if p.Cost != nil {
			g.anyCost = true
			g.totalCost = g.totalCost.Add(p.Units.Number.Decimal().Mul(p.Cost.NumberPer.Decimal()))
			if g.earliest == nil || p.Cost.Date.Before(g.earliest.Date) {
				g.earliest = p.Cost
			}
		}
	}

	out := NewInventory()
	for _, key := range order {
		g := groups[key]
		if g.totalUnits.IsZero() {
			continue
		}
		var cost *Cost
		if g.anyCost {
			cost = &Cost{
				NumberPer: NewNumber(g.totalCost.Div(g.totalUnits)),
				Currency:  g.costCur,
				Date:      g.earliest.Date,
			}
		}
		out.AddAmount(NewNumber(g.totalUnits), g.currency, cost)
	}
	return out
}

// Split returns one inventory per units-currency.
func (inv *Inventory) Split() map[string]*Inventory {
	out := make(map[string]*Inventory)
	for _, p := range inv.Positions() {
		sub, ok := out[p.Units.Currency]
		if !ok {
			sub = NewInventory()
			out[p.Units.Currency] = sub
		}
		sub.AddPosition(p)
	}
	return out
}

// CheckInvariants asserts uniqueness of keys and non-zero units. It is a
// sanity check, not user-facing validation — a violation indicates a bug in
// the booking engine itself.
func (inv *Inventory) CheckInvariants() error {
	seen := make(map[string]bool)
	for key, p := range inv.positions {
		if seen[key] {
			return fmt.Errorf("inventory invariant violated: duplicate key %s", key)
		}
		seen[key] = true
		if p.Units.Number.IsZero() {
			return fmt.Errorf("inventory invariant violated: zero-unit position for %s", key)
		}
	}
	return nil
}

func (inv *Inventory) String() string {
	if inv.IsEmpty() {
		return "()"
	}
	var out string
	for i, p := range inv.Positions() {
		if i > 0 {
			out += ", "
		}
		out += p.String()
	}
	return "(" + out + ")"
}
