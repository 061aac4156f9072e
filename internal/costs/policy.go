package costs

import (
	"strings"

	"github.com/protoplan/costs-api/internal/protocol"
)

// RatePolicy decides what happens to a row when its exchange rate cannot be
// resolved.
type RatePolicy int

const (
	// RateDefaultToOne substitutes a rate of 1, flags the row, and keeps
	// going. The computed cost is approximate, not absent.
	RateDefaultToOne RatePolicy = iota
	// RatePropagate excludes the row from costing with a reason instead of
	// pricing it with a made-up rate.
	RatePropagate
)

// ParseRatePolicy maps a config string onto a RatePolicy. Unknown values
// fall back to the degrade-and-continue default.
func ParseRatePolicy(s string) RatePolicy {
	if strings.EqualFold(strings.TrimSpace(s), "propagate") {
		return RatePropagate
	}
	return RateDefaultToOne
}

// PricingPolicy captures the country and currency conditional tax rules that
// would otherwise live as literals inside the price calculation.
type PricingPolicy struct {
	// SalesTaxCountryID is the country both vendor and user must reside in
	// for the listing's sales tax to apply.
	SalesTaxCountryID int64
	// SalesTaxCurrency is the currency the listing must be priced in for
	// sales tax to apply.
	SalesTaxCurrency string
}

// DefaultPricingPolicy returns the US sales tax rule used by the production
// dataset.
func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{SalesTaxCountryID: 2, SalesTaxCurrency: "USD"}
}

func (p PricingPolicy) salesTaxApplies(row *protocol.Priceable) bool {
	return p.SalesTaxCountryID != 0 &&
		row.VendorCountryID == p.SalesTaxCountryID &&
		row.UserCountryID == p.SalesTaxCountryID &&
		row.ListingCurrencyCode == p.SalesTaxCurrency
}

// OrderTerms is what a fee policy produces for one listing: the basket value
// ceiling for a single order, the per-order delivery charge (listing
// currency), and the per-order base tax (user currency).
type OrderTerms struct {
	BasketLimit   float64
	DeliveryPrice float64
	BaseTax       float64
}

// FeePolicy derives per-order terms for a priced listing. Implementations
// encode vendor-specific heuristics; the optimizer itself never guesses.
// exchangeRate is the listing-to-user conversion already resolved for the
// row, for policies that estimate user-currency charges.
type FeePolicy interface {
	Terms(row *protocol.Priceable, exchangeRate float64) OrderTerms
}

// FlatOrderFee uses exactly the basket limit, delivery price and base tax
// carried on the row, with zero defaults for absent values.
type FlatOrderFee struct{}

// Terms implements FeePolicy.
func (FlatOrderFee) Terms(row *protocol.Priceable, _ float64) OrderTerms {
	return OrderTerms{
		BasketLimit:   row.BasketLimit,
		DeliveryPrice: row.DeliveryPrice,
		BaseTax:       row.BaseTax,
	}
}

// DeliveryBracket is one tier of a vendor's delivery pricing.
type DeliveryBracket struct {
	BasketLimit   float64
	DeliveryPrice float64
}

// BracketedDelivery fills in missing basket limits and delivery prices from
// delivery brackets. Explicit row values always win; an explicit zero
// delivery price marks a free-delivery bracket and suppresses estimation.
// NextBracket, when set, overrides the estimate for vendors where paying
// into a higher basket tier unlocks cheaper delivery.
type BracketedDelivery struct {
	Domestic      DeliveryBracket
	International DeliveryBracket
	NextBracket   *DeliveryBracket
}

// Terms implements FeePolicy.
func (b BracketedDelivery) Terms(row *protocol.Priceable, _ float64) OrderTerms {
	terms := OrderTerms{
		BasketLimit:   row.BasketLimit,
		DeliveryPrice: row.DeliveryPrice,
		BaseTax:       row.BaseTax,
	}
	if row.HasBasketLimit && row.HasDeliveryPrice {
		return terms
	}
	if row.HasDeliveryPrice && row.DeliveryPrice == 0 {
		// Explicit free delivery: only the basket ceiling may need estimating.
		if !row.HasBasketLimit {
			terms.BasketLimit = b.bracketFor(row).BasketLimit
		}
		return terms
	}
	bracket := b.bracketFor(row)
	if b.NextBracket != nil {
		bracket = *b.NextBracket
	}
	if !row.HasBasketLimit {
		terms.BasketLimit = bracket.BasketLimit
	}
	if !row.HasDeliveryPrice {
		terms.DeliveryPrice = bracket.DeliveryPrice
	}
	return terms
}

func (b BracketedDelivery) bracketFor(row *protocol.Priceable) DeliveryBracket {
	if row.Domestic() {
		return b.Domestic
	}
	return b.International
}

// HeuristicCountryTax layers an estimated customs charge on top of another
// policy for international orders that carry no explicit base tax. The
// estimate is ImportTaxPercent of the converted listing price per order.
type HeuristicCountryTax struct {
	Next             FeePolicy
	ImportTaxPercent float64
}

// Terms implements FeePolicy.
func (h HeuristicCountryTax) Terms(row *protocol.Priceable, exchangeRate float64) OrderTerms {
	next := h.Next
	if next == nil {
		next = FlatOrderFee{}
	}
	terms := next.Terms(row, exchangeRate)
	if terms.BaseTax == 0 && !row.Domestic() && h.ImportTaxPercent > 0 {
		terms.BaseTax = row.Price * exchangeRate * h.ImportTaxPercent / 100
	}
	return terms
}
