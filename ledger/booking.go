package ledger

import (
	"fmt"
	"sort"
	"time"
)

// ApplyPosting books one posting's units into an account's inventory,
// resolving an unbound CostSpec against the existing holdings and the
// account's booking method. It mirrors the teacher's reduceWithBooking /
// reduceWithAverage dispatch, generalized to the full STRICT /
// STRICT_WITH_SIZE / NONE / AVERAGE / FIFO / LIFO / HIFO method set and to
// Cost/CostSpec rather than the teacher's per-unit-only lotSpec.
//
// units is the posting's signed amount (already resolved from MISSING by
// the interpolation pass). A nil costSpec is an uncosted posting. txnDate
// supplies the cost date when costSpec omits one.
func ApplyPosting(inv *Inventory, units Number, currency string, costSpec *CostSpec, booking Booking, txnDate time.Time) error {
	if costSpec == nil {
		inv.AddAmount(units, currency, nil)
		return nil
	}

	// Augmentations (and zero amounts) always bind their own cost;
	// there is nothing existing to match against.
	if !units.IsNegative() {
		cost, err := costSpec.Resolve(units, txnDate)
		if err != nil {
			// {} or {*} on an augmentation: no number was given at all,
			// which Beancount treats as "cost equals nothing to track" —
			// reject, since an augmentation must state its cost.
			if costSpec.IsEmpty() || costSpec.Merge {
				return fmt.Errorf("augmenting posting in %s requires an explicit cost", currency)
			}
			return err
		}
		inv.AddAmount(units, currency, cost)
		return nil
	}

	// Reduction with an explicit (fully specified) cost: match that exact
	// lot, no booking-method dispatch needed.
	if !costSpec.IsEmpty() && !costSpec.Merge {
		cost, err := costSpec.Resolve(units, txnDate)
		if err != nil {
			return err
		}
		return reduceExactLot(inv, units, currency, cost)
	}

	return reduceLots(inv, units, currency, booking)
}

// reduceExactLot reduces a specific, fully-identified lot (cost spec gave an
// exact number/currency/date/label). The lot must exist and must hold at
// least |units|.
func reduceExactLot(inv *Inventory, units Number, currency string, cost *Cost) error {
	for _, p := range inv.PositionsForCurrency(currency) {
		if p.Cost.Equal(cost) {
			if p.Units.Number.Decimal().LessThan(units.Decimal().Abs()) {
				return fmt.Errorf("insufficient units in lot %s %s for reduction of %s", currency, cost.String(), units.Decimal().Abs().String())
			}
			inv.AddAmount(units, currency, p.Cost)
			return nil
		}
	}
	return fmt.Errorf("no matching lot %s %s found to reduce", currency, cost.String())
}

// reduceLots implements booking-method lot selection for a reduction whose
// cost spec is {} (auto-select) or {*} (merge/average).
func reduceLots(inv *Inventory, units Number, currency string, booking Booking) error {
	lots := inv.PositionsForCurrency(currency)
	if len(lots) == 0 {
		return fmt.Errorf("no lots available to reduce for %s", currency)
	}

	switch booking {
	case BookingNone:
		// NONE never matches against existing lots; the reduction is just
		// recorded as its own (uncosted) negative position.
		inv.AddAmount(units, currency, nil)
		return nil

	case BookingAverage:
		return reduceAverage(inv, units, currency, lots)

	case BookingStrict:
		return fmt.Errorf("STRICT booking requires an explicit cost to disambiguate the lot for %s", currency)

	case BookingStrictWithSize:
		return reduceBySizeMatch(inv, units, currency, lots)

	case BookingFIFO, BookingLIFO, BookingHIFO, BookingUnset:
		sorted := sortLotsForBooking(lots, booking)
		return reduceInOrder(inv, units, currency, sorted)

	default:
		return fmt.Errorf("unsupported booking method %s", booking)
	}
}

// reduceBySizeMatch implements STRICT_WITH_SIZE: an empty cost spec is
// accepted only when exactly one held lot's size matches |units|.
func reduceBySizeMatch(inv *Inventory, units Number, currency string, lots []*Position) error {
	target := units.Decimal().Abs()
	var match *Position
	count := 0
	for _, p := range lots {
		if p.Units.Number.Decimal().Abs().Equal(target) {
			match = p
			count++
		}
	}
	if count != 1 {
		return fmt.Errorf("STRICT_WITH_SIZE booking found %d lots of size %s for %s, need exactly 1", count, target.String(), currency)
	}
	inv.AddAmount(units, currency, match.Cost)
	return nil
}

// sortLotsForBooking orders lots for FIFO/LIFO/HIFO reduction. Uncosted
// (date-less) lots sort first under FIFO and last under LIFO, matching the
// teacher's treatment of lots with no acquisition date.
func sortLotsForBooking(lots []*Position, booking Booking) []*Position {
	sorted := make([]*Position, len(lots))
	copy(sorted, lots)

	switch booking {
	case BookingHIFO:
		sort.SliceStable(sorted, func(i, j int) bool {
			ci, cj := sorted[i].Cost, sorted[j].Cost
			if ci == nil || cj == nil {
				return ci != nil // costed lots sort before uncosted
			}
			return ci.NumberPer.Decimal().GreaterThan(cj.NumberPer.Decimal())
		})
	case BookingLIFO:
		sort.SliceStable(sorted, func(i, j int) bool {
			ci, cj := sorted[i].Cost, sorted[j].Cost
			if ci == nil && cj == nil {
				return false
			}
			if ci == nil {
				return false
			}
			if cj == nil {
				return true
			}
			return ci.Date.After(cj.Date)
		})
	default: // FIFO and unset
		sort.SliceStable(sorted, func(i, j int) bool {
			ci, cj := sorted[i].Cost, sorted[j].Cost
			if ci == nil && cj == nil {
				return false
			}
			if ci == nil {
				return true
			}
			if cj == nil {
				return false
			}
			return ci.Date.Before(cj.Date)
		})
	}
	return sorted
}

// reduceInOrder walks sorted lots, consuming them until |units| has been
// fully reduced.
func reduceInOrder(inv *Inventory, units Number, currency string, sorted []*Position) error {
	remaining := units.Decimal().Abs()
	for _, p := range sorted {
		if remaining.IsZero() {
			break
		}
		available := p.Units.Number.Decimal()
		take := available
		if take.GreaterThan(remaining) {
			take = remaining
		}
		inv.AddAmount(NewNumber(take.Neg()), currency, p.Cost)
		remaining = remaining.Sub(take)
	}
	if !remaining.IsZero() {
		return fmt.Errorf("insufficient total units for %s: need %s more", currency, remaining.String())
	}
	return nil
}

// reduceAverage implements AVERAGE booking: all of the currency's lots are
// averaged into one position, the reduction is taken from that average, and
// the remainder (if any) is re-stored as a single averaged lot.
func reduceAverage(inv *Inventory, units Number, currency string, lots []*Position) error {
	totalUnits := NewNumber(lots[0].Units.Number.Decimal().Sub(lots[0].Units.Number.Decimal()))
	for _, p := range lots {
		totalUnits = totalUnits.Add(p.Units.Number)
		inv.AddAmount(p.Units.Number.Neg(), currency, p.Cost)
	}

	reduceAmount := units.Decimal().Abs()
	if totalUnits.Decimal().LessThan(reduceAmount) {
		return fmt.Errorf("insufficient total units for %s: have %s, need %s", currency, totalUnits.String(), reduceAmount.String())
	}

	remaining := totalUnits.Decimal().Sub(reduceAmount)
	if remaining.IsZero() {
		return nil
	}

	avg := averageCost(lots)
	inv.AddAmount(NewNumber(remaining), currency, avg)
	return nil
}

func averageCost(lots []*Position) *Cost {
	var totalUnits, totalCost = lots[0].Units.Number.Decimal().Sub(lots[0].Units.Number.Decimal()), lots[0].Units.Number.Decimal().Sub(lots[0].Units.Number.Decimal())
	var costCurrency string
	var earliest time.Time
	any := false
	for _, p := range lots {
		totalUnits = totalUnits.Add(p.Units.Number.Decimal())
		if p.Cost != nil {
			any = true
			costCurrency = p.Cost.Currency
			totalCost = totalCost.Add(p.Units.Number.Decimal().Mul(p.Cost.NumberPer.Decimal()))
			if earliest.IsZero() || p.Cost.Date.Before(earliest) {
				earliest = p.Cost.Date
			}
		}
	}
	if !any || totalUnits.IsZero() {
		return nil
	}
	return &Cost{NumberPer: NewNumber(totalCost.Div(totalUnits)), Currency: costCurrency, Date: earliest}
}
