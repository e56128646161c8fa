package ledger

import (
	"sort"
	"time"

	"github.com/mfriedlander/ledgerd/ast"
	"github.com/shopspring/decimal"
)

// pricePair is the canonical (base, quote) key a PriceMap stores samples
// under. Canonicalization happens once, at Build time; callers never see a
// pair stored under both directions.
type pricePair struct {
	Base  string
	Quote string
}

// pricePoint is one dated sample: 1 Base = Rate Quote.
type pricePoint struct {
	Date time.Time
	Rate decimal.Decimal
}

// PriceMap is a reconciled, queryable index of currency prices. Unlike a
// write-through bidirectional graph, it decides ONE canonical direction per
// currency pair at build time and derives the other direction from it.
type PriceMap struct {
	series map[pricePair][]pricePoint
}

// rawPrice is one parsed `price` directive, before canonicalization.
type rawPrice struct {
	Date     time.Time
	Base     string
	Quote    string
	Rate     decimal.Decimal
}

// NewPriceMap builds a PriceMap from `price` directives.
//
// Reconciliation: group samples by unordered currency pair. If only one
// direction was ever stated explicitly, it is canonical. If both directions
// appear (A→B and B→A both stated, e.g. by two different price feeds), the
// side with fewer samples is inverted (rate → 1/rate, base/quote swapped)
// and merged into the side with more samples, which becomes canonical.
// Ties prefer whichever direction was encountered first.
//
// After canonical forward series are fixed, every one of them materializes
// its pointwise-reciprocal inverse series too, so GetPrice never needs to
// invert at query time.
func NewPriceMap(prices []*ast.Price) (*PriceMap, error) {
	type bucket struct {
		forward  []rawPrice // as first encountered orientation
		reverse  []rawPrice // opposite orientation, if seen
		base     string     // orientation of "forward" above
		quote    string
	}

	buckets := make(map[string]*bucket)
	var order []string

	for _, p := range prices {
		rate, err := ParseAmount(p.Amount)
		if err != nil {
			return nil, err
		}
		if rate.IsZero() {
			continue
		}
		base, quote := p.Commodity, p.Amount.Currency
		unordered := unorderedKey(base, quote)
		b, ok := buckets[unordered]
		if !ok {
			b = &bucket{base: base, quote: quote}
			buckets[unordered] = b
			order = append(order, unordered)
		}
		rp := rawPrice{Date: p.Date.Time, Base: base, Quote: quote, Rate: rate}
		if base == b.base && quote == b.quote {
			b.forward = append(b.forward, rp)
		} else {
			b.reverse = append(b.reverse, rp)
		}
	}

	pm := &PriceMap{series: make(map[pricePair][]pricePoint)}

	for _, unordered := range order {
		b := buckets[unordered]
		canonicalBase, canonicalQuote := b.base, b.quote
		canonical := b.forward
		other := b.reverse

		if len(b.reverse) > len(b.forward) {
			canonicalBase, canonicalQuote = b.quote, b.base
			canonical = b.reverse
			other = b.forward
		}

		var points []pricePoint
		for _, rp := range canonical {
			points = append(points, pricePoint{Date: rp.Date, Rate: rp.Rate})
		}
		for _, rp := range other {
			// rp runs in the non-canonical direction; invert into canonical.
			points = append(points, pricePoint{Date: rp.Date, Rate: decimal.NewFromInt(1).Div(rp.Rate)})
		}

		sort.Slice(points, func(i, j int) bool { return points[i].Date.Before(points[j].Date) })

		forwardPair := pricePair{Base: canonicalBase, Quote: canonicalQuote}
		pm.series[forwardPair] = points

		inversePair := pricePair{Base: canonicalQuote, Quote: canonicalBase}
		inverse := make([]pricePoint, len(points))
		for i, pt := range points {
			inverse[i] = pricePoint{Date: pt.Date, Rate: decimal.NewFromInt(1).Div(pt.Rate)}
		}
		pm.series[inversePair] = inverse
	}

	return pm, nil
}

func unorderedKey(a, b string) string {
	if a < b {
		return a + "\x1f" + b
	}
	return b + "\x1f" + a
}

// GetPrice returns the most recent rate for base→quote with a sample date
// strictly before the given date, forward-filled. Same-currency pairs
// always return 1. A date on or before the earliest sample (and any pair
// with no samples at all) returns (zero, false).
func (pm *PriceMap) GetPrice(date time.Time, base, quote string) (decimal.Decimal, bool) {
	if base == quote {
		return decimal.NewFromInt(1), true
	}
	points, ok := pm.series[pricePair{Base: base, Quote: quote}]
	if !ok || len(points) == 0 {
		return decimal.Zero, false
	}
	// First index whose date is NOT strictly-less-than `date`, i.e. the
	// first sample at-or-after the query date. The answer is the sample
	// immediately before that index.
	idx := sort.Search(len(points), func(i int) bool {
		return !points[i].Date.Before(date)
	})
	if idx == 0 {
		return decimal.Zero, false
	}
	return points[idx-1].Rate, true
}

// GetLatestPrice returns the most recent sample for base→quote regardless
// of date.
func (pm *PriceMap) GetLatestPrice(base, quote string) (decimal.Decimal, time.Time, bool) {
	if base == quote {
		return decimal.NewFromInt(1), time.Time{}, true
	}
	points, ok := pm.series[pricePair{Base: base, Quote: quote}]
	if !ok || len(points) == 0 {
		return decimal.Zero, time.Time{}, false
	}
	last := points[len(points)-1]
	return last.Rate, last.Date, true
}

// PricePoint is a public, read-only view of one dated sample.
type PricePoint struct {
	Date time.Time
	Rate decimal.Decimal
}

// GetAllPrices returns the full reconciled series for base→quote, oldest
// first.
func (pm *PriceMap) GetAllPrices(base, quote string) []PricePoint {
	points := pm.series[pricePair{Base: base, Quote: quote}]
	out := make([]PricePoint, len(points))
	for i, p := range points {
		out[i] = PricePoint{Date: p.Date, Rate: p.Rate}
	}
	return out
}

// priceAtOrBefore returns the sample with the latest date not after `date`
// for the given pair, or (zero, false) if the pair is unknown or every
// sample postdates `date`. Unlike GetPrice, the boundary date itself
// qualifies - Project synthesizes rates from samples whose dates line up
// exactly, so the comparison must be inclusive.
func (pm *PriceMap) priceAtOrBefore(pair pricePair, date time.Time) (decimal.Decimal, bool) {
	points := pm.series[pair]
	idx := sort.Search(len(points), func(i int) bool { return points[i].Date.After(date) })
	if idx == 0 {
		return decimal.Zero, false
	}
	return points[idx-1].Rate, true
}

// Project synthesizes (B, to) entries from (B, from) x (from, to) for every
// currency B carrying a priced series against `from` (optionally restricted
// to baseSet), skipping dates already present for (B, to). It mutates the
// map in place, materializing both the new forward (B, to) series and its
// pointwise-reciprocal inverse (to, B) - the same reconciliation contract
// NewPriceMap applies to directly-stated pairs.
func (pm *PriceMap) Project(from, to string, baseSet ...string) {
	if from == to {
		return
	}

	var allow map[string]bool
	if len(baseSet) > 0 {
		allow = make(map[string]bool, len(baseSet))
		for _, b := range baseSet {
			allow[b] = true
		}
	}

	type synthesis struct {
		pair   pricePair
		points []pricePoint
	}
	var additions []synthesis

	for pair, points := range pm.series {
		if pair.Quote != from || pair.Base == to {
			continue
		}
		base := pair.Base
		if allow != nil && !allow[base] {
			continue
		}

		present := make(map[string]bool)
		for _, p := range pm.series[pricePair{Base: base, Quote: to}] {
			present[p.Date.Format("2006-01-02")] = true
		}

		var synthesized []pricePoint
		for _, p := range points {
			key := p.Date.Format("2006-01-02")
			if present[key] {
				continue
			}
			rate, ok := pm.priceAtOrBefore(pricePair{Base: from, Quote: to}, p.Date)
			if !ok {
				continue
			}
			synthesized = append(synthesized, pricePoint{Date: p.Date, Rate: p.Rate.Mul(rate)})
			present[key] = true
		}
		if len(synthesized) > 0 {
			additions = append(additions, synthesis{pair: pricePair{Base: base, Quote: to}, points: synthesized})
		}
	}

	for _, add := range additions {
		merged := append(append([]pricePoint{}, pm.series[add.pair]...), add.points...)
		sort.Slice(merged, func(i, j int) bool { return merged[i].Date.Before(merged[j].Date) })
		pm.series[add.pair] = merged

		inverse := make([]pricePoint, len(add.points))
		for i, p := range add.points {
			inverse[i] = pricePoint{Date: p.Date, Rate: decimal.NewFromInt(1).Div(p.Rate)}
		}
		invPair := pricePair{Base: add.pair.Quote, Quote: add.pair.Base}
		mergedInv := append(append([]pricePoint{}, pm.series[invPair]...), inverse...)
		sort.Slice(mergedInv, func(i, j int) bool { return mergedInv[i].Date.Before(mergedInv[j].Date) })
		pm.series[invPair] = mergedInv
	}
}
