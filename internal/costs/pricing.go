package costs

import (
	"math"

	"github.com/protoplan/costs-api/internal/protocol"
)

// pricedListing holds the currency-normalised unit price of one listing and
// the intermediates surfaced for transparency.
type pricedListing struct {
	exchangeRate    float64
	discountedPrice float64 // listing currency, before delivery and taxes
	priceWithTax    float64 // user currency
}

// priceListing turns a listing's raw price into a monthly-comparable,
// currency-normalised, tax-and-discount-adjusted unit price:
//
//  1. fold applied discounts multiplicatively in list order,
//  2. add the per-listing delivery surcharge (vendor currency, taxed),
//  3. apply taxPercent and the policy-gated sales tax,
//  4. convert to the user's currency,
//  5. optionally add the flat base tax post-conversion.
func (e *Engine) priceListing(row *protocol.Priceable, rate float64) pricedListing {
	discounted := row.Price
	for _, d := range row.Discounts {
		if d.Applied {
			discounted *= (100 - d.SavingPercent.Float()) / 100
		}
	}

	salesTax := 0.0
	if row.SalesTax != 0 && e.pricing().salesTaxApplies(row) {
		salesTax = row.SalesTax
	}

	withTax := (discounted + row.DeliveryPerListing) *
		(1 + row.TaxPercent/100) *
		(1 + salesTax/100) *
		rate
	if e.IncludeBaseTaxInPrice {
		withTax += row.BaseTax
	}

	return pricedListing{
		exchangeRate:    rate,
		discountedPrice: discounted,
		priceWithTax:    withTax,
	}
}

// orderFees amortises per-order charges over a month of purchases for one
// row. maxListingsPerOrder is floored at 1 so a tight basket limit can never
// zero out the division.
type orderFees struct {
	maxListingsPerOrder float64
	ordersPerMonth      float64
	feesPerMonth        float64
}

func (e *Engine) orderFees(row *protocol.Priceable, price pricedListing, listingsPerMonth float64) orderFees {
	terms := e.fees().Terms(row, price.exchangeRate)
	if e.IncludeBaseTaxInPrice {
		// Base tax already folded into the unit price; do not charge it again
		// per order.
		terms.BaseTax = 0
	}

	maxPerOrder := 1.0
	if terms.BasketLimit > 0 && price.priceWithTax > 0 {
		if n := math.Floor(terms.BasketLimit / price.priceWithTax); n > 1 {
			maxPerOrder = n
		}
	}
	ordersPerMonth := listingsPerMonth / maxPerOrder

	// Delivery is charged in the listing's currency, base tax in the user's.
	feesPerMonth := (terms.DeliveryPrice*price.exchangeRate + terms.BaseTax) *
		ordersPerMonth * row.Quantity / row.NBundleProducts

	return orderFees{
		maxListingsPerOrder: maxPerOrder,
		ordersPerMonth:      ordersPerMonth,
		feesPerMonth:        feesPerMonth,
	}
}
