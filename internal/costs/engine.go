// Package costs implements the protocol cost and repurchase calculation
// engine: a deterministic, side-effect-free transformation from protocol
// rows plus two lookup collaborators (unit conversion, exchange rates) to
// costed output rows and protocol totals.
package costs

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/protoplan/costs-api/internal/currency"
	"github.com/protoplan/costs-api/internal/obs"
	"github.com/protoplan/costs-api/internal/protocol"
	"github.com/protoplan/costs-api/internal/units"
)

// Engine computes protocol costs. It holds no state across batches; every
// collaborator and policy is injected, and zero values degrade to sensible
// defaults (flat fees, default pricing policy, rate fallback of 1).
type Engine struct {
	Units   units.Converter
	Rates   currency.Provider
	Fees    FeePolicy
	Pricing *PricingPolicy

	// RatePolicy controls degradation when an exchange rate lookup fails.
	RatePolicy RatePolicy
	// IncludeBaseTaxInPrice folds the flat base tax into the unit price
	// instead of charging it per order. The caller decides per context.
	IncludeBaseTaxInPrice bool

	Logger *zerolog.Logger
}

func (e *Engine) logger() *zerolog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	l := zerolog.Nop()
	return &l
}

func (e *Engine) pricing() PricingPolicy {
	if e.Pricing != nil {
		return *e.Pricing
	}
	return DefaultPricingPolicy()
}

func (e *Engine) fees() FeePolicy {
	if e.Fees != nil {
		return e.Fees
	}
	return FlatOrderFee{}
}

type ratePair struct {
	from, to string
}

type rateResult struct {
	rate float64
	err  error
}

// Calculate runs the full costing pipeline over one batch of rows. The
// output has the same cardinality and order as the input; rows that cannot
// be priced come back with every derived field absent and a skip reason.
// Nothing in the pipeline aborts the batch: malformed rows degrade to "no
// cost computed".
func (e *Engine) Calculate(ctx context.Context, rows []protocol.Row) ([]protocol.Derived, protocol.Totals, error) {
	states := make([]*rowState, len(rows))
	for i, row := range rows {
		st := &rowState{index: i}
		pr, err := protocol.Validate(row)
		if err != nil {
			st.skip = err.Error()
			obs.CountSkippedRow("missing_input")
			e.logger().Debug().Int("row", i).Str("reason", st.skip).Msg("row excluded from costing")
		} else {
			st.pr = pr
		}
		states[i] = st
	}

	rates := e.prefetchRates(ctx, states)
	for _, st := range states {
		if st.pr == nil {
			continue
		}
		if st.pr.HasExchangeRate {
			st.rate = st.pr.ExchangeRate
			continue
		}
		pair := ratePair{st.pr.ListingCurrencyCode, st.pr.UserCurrencyCode}
		res := rates[pair]
		if res.err == nil {
			st.rate = res.rate
			continue
		}
		switch e.RatePolicy {
		case RatePropagate:
			st.skip = "exchange rate unavailable: " + pair.from + " to " + pair.to
			obs.CountSkippedRow("rate_unavailable")
		default:
			st.rate = 1
			st.rateFallback = true
			e.logger().Warn().
				Str("from", pair.from).
				Str("to", pair.to).
				Err(res.err).
				Msg("exchange rate lookup failed, defaulting to 1")
		}
	}

	for _, st := range states {
		if st.pr != nil && st.skip == "" {
			st.productsPerMonth = e.productsPerMonth(st.pr)
		}
	}

	for _, group := range groupBundles(states) {
		resolveBundle(group)
	}

	derived := make([]protocol.Derived, len(rows))
	for i, st := range states {
		derived[i] = e.deriveRow(rows[i], st)
	}
	return derived, TotalCosts(derived), nil
}

// CalculateRow prices a single row outside of any bundle context.
func (e *Engine) CalculateRow(ctx context.Context, row protocol.Row) (protocol.Derived, error) {
	out, _, err := e.Calculate(ctx, []protocol.Row{row})
	if err != nil {
		return protocol.Derived{}, err
	}
	return out[0], nil
}

// prefetchRates resolves every distinct currency pair the batch needs before
// any row is priced. Lookups for independent pairs run concurrently; rows
// carrying a pre-supplied rate and identity pairs never hit the provider.
func (e *Engine) prefetchRates(ctx context.Context, states []*rowState) map[ratePair]rateResult {
	pairs := make(map[ratePair]struct{})
	for _, st := range states {
		if st.pr == nil || st.pr.HasExchangeRate {
			continue
		}
		if st.pr.ListingCurrencyCode == st.pr.UserCurrencyCode {
			continue
		}
		pairs[ratePair{st.pr.ListingCurrencyCode, st.pr.UserCurrencyCode}] = struct{}{}
	}

	results := make(map[ratePair]rateResult, len(pairs)+1)
	for _, st := range states {
		if st.pr != nil && st.pr.ListingCurrencyCode == st.pr.UserCurrencyCode {
			results[ratePair{st.pr.ListingCurrencyCode, st.pr.UserCurrencyCode}] = rateResult{rate: 1}
		}
	}
	if len(pairs) == 0 {
		return results
	}
	if e.Rates == nil {
		for pair := range pairs {
			results[pair] = rateResult{err: currency.ErrRateUnavailable}
		}
		return results
	}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for pair := range pairs {
		wg.Add(1)
		go func(p ratePair) {
			defer wg.Done()
			rate, err := e.Rates.Rate(ctx, p.from, p.to)
			if err == nil && rate <= 0 {
				err = currency.ErrRateUnavailable
			}
			mu.Lock()
			results[p] = rateResult{rate: rate, err: err}
			mu.Unlock()
		}(pair)
	}
	wg.Wait()
	return results
}

// deriveRow assembles the output record for one row. Bundle visibility
// blanks costPerMonth, feesPerMonth, listingsPerMonth and repurchase on all
// but the group's lowest-priority row so protocol totals count each bundle
// purchase once.
func (e *Engine) deriveRow(in protocol.Row, st *rowState) protocol.Derived {
	out := protocol.Derived{Row: in}
	if st.pr == nil || st.skip != "" {
		out.Skipped = st.skip
		return out
	}

	price := e.priceListing(st.pr, st.rate)
	fees := e.orderFees(st.pr, price, st.listingsPerMonth)

	costPerMonth := price.priceWithTax * st.listingsPerMonth *
		st.pr.Quantity * st.proportion / st.pr.NBundleProducts

	out.RateFallback = st.rateFallback
	out.ProductsPerMonth = protocol.NumberOf(st.productsPerMonth)
	out.AmountProportion = protocol.NumberOf(st.proportion)
	out.ExchangeRateUsed = protocol.NumberOf(price.exchangeRate)
	out.DiscountedPrice = protocol.NumberOf(price.discountedPrice)
	out.PriceWithTax = protocol.NumberOf(price.priceWithTax)
	out.MaxListingsPerOrder = protocol.NumberOf(fees.maxListingsPerOrder)
	out.OrdersPerMonth = protocol.NumberOf(fees.ordersPerMonth)
	if st.visible {
		out.ListingsPerMonth = protocol.NumberOf(st.listingsPerMonth)
		out.CostPerMonth = protocol.NumberOf(costPerMonth)
		out.FeesPerMonth = protocol.NumberOf(fees.feesPerMonth)
		out.Repurchase = protocol.NumberOf(Repurchase(st.listingsPerMonth))
	}
	return out
}

// TotalCosts sums monthly cost and fees across rows, treating absent values
// as 0 so hidden bundle rows never double count.
func TotalCosts(rows []protocol.Derived) protocol.Totals {
	var t protocol.Totals
	for _, row := range rows {
		if row.CostPerMonth != nil {
			t.CostPerMonth += row.CostPerMonth.Float()
		}
		if row.FeesPerMonth != nil {
			t.FeesPerMonth += row.FeesPerMonth.Float()
		}
	}
	return t
}
