package costs

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/protoplan/costs-api/internal/protocol"
)

func priceableRow() *protocol.Priceable {
	return &protocol.Priceable{
		ProtocolID:          1,
		ProductID:           5,
		ListingID:           9,
		Dose:                1,
		DoseUnitID:          2,
		DosesPerDay:         2,
		DaysPerMonth:        30,
		Amount:              60,
		AmountUnitID:        2,
		Quantity:            1,
		NBundleProducts:     1,
		Price:               100,
		UserCurrencyCode:    "USD",
		ListingCurrencyCode: "USD",
		VendorCountryID:     2,
		UserCountryID:       1,
	}
}

func TestPriceListingDiscountsCompound(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	row.Discounts = []protocol.Discount{
		{Applied: true, SavingPercent: 50},
		{Applied: false, SavingPercent: 99},
		{Applied: true, SavingPercent: 10},
	}

	p := e.priceListing(row, 1)
	require.InDelta(t, 45.0, p.discountedPrice, 1e-9)
	require.InDelta(t, 45.0, p.priceWithTax, 1e-9)
}

func TestPriceListingSalesTaxGate(t *testing.T) {
	t.Parallel()

	e := &Engine{}

	row := priceableRow()
	row.SalesTax = 8
	row.VendorCountryID = 2
	row.UserCountryID = 2

	p := e.priceListing(row, 1)
	require.InDelta(t, 108.0, p.priceWithTax, 1e-9)

	// Same listing sold across a border: no sales tax.
	row.UserCountryID = 1
	p = e.priceListing(row, 1)
	require.InDelta(t, 100.0, p.priceWithTax, 1e-9)

	// Same countries but a non-matching listing currency: no sales tax.
	row.UserCountryID = 2
	row.ListingCurrencyCode = "CAD"
	p = e.priceListing(row, 1)
	require.InDelta(t, 100.0, p.priceWithTax, 1e-9)
}

func TestPriceListingTaxesDeliveryPerListing(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	row.Price = 10
	row.DeliveryPerListing = 2
	row.TaxPercent = 20

	p := e.priceListing(row, 1)
	require.InDelta(t, 14.4, p.priceWithTax, 1e-9)
}

func TestPriceListingConvertsAfterTax(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	row.Price = 10
	row.TaxPercent = 20

	p := e.priceListing(row, 0.5)
	require.InDelta(t, 6.0, p.priceWithTax, 1e-9)
	require.InDelta(t, 10.0, p.discountedPrice, 1e-9)
}

func TestPriceListingBaseTaxOptIn(t *testing.T) {
	t.Parallel()

	row := priceableRow()
	row.Price = 10
	row.BaseTax = 3

	e := &Engine{}
	p := e.priceListing(row, 0.5)
	require.InDelta(t, 5.0, p.priceWithTax, 1e-9)

	// Folded in after conversion, in the user's currency.
	e = &Engine{IncludeBaseTaxInPrice: true}
	p = e.priceListing(row, 0.5)
	require.InDelta(t, 8.0, p.priceWithTax, 1e-9)
}

func TestOrderFeesAmortisation(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	row.BasketLimit = 100
	row.HasBasketLimit = true
	row.DeliveryPrice = 4
	row.HasDeliveryPrice = true

	price := pricedListing{exchangeRate: 2, priceWithTax: 12}
	fees := e.orderFees(row, price, 2)

	require.InDelta(t, 8.0, fees.maxListingsPerOrder, 1e-9)
	require.InDelta(t, 0.25, fees.ordersPerMonth, 1e-9)
	// (delivery 4 * rate 2 + base tax 0) * 0.25 orders
	require.InDelta(t, 2.0, fees.feesPerMonth, 1e-9)
}

func TestOrderFeesBasketLimitBeyondIntRange(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	// A quotient far outside int range must still floor exactly.
	row.BasketLimit = 1e19
	row.HasBasketLimit = true

	fees := e.orderFees(row, pricedListing{exchangeRate: 1, priceWithTax: 1}, 1)
	require.Equal(t, 1e19, fees.maxListingsPerOrder)
}

func TestOrderFeesFloorAtOneListingPerOrder(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	row.BasketLimit = 5
	row.HasBasketLimit = true

	fees := e.orderFees(row, pricedListing{exchangeRate: 1, priceWithTax: 12}, 3)
	require.InDelta(t, 1.0, fees.maxListingsPerOrder, 1e-9)
	require.InDelta(t, 3.0, fees.ordersPerMonth, 1e-9)
}

func TestOrderFeesBaseTaxNotDoubleCharged(t *testing.T) {
	t.Parallel()

	row := priceableRow()
	row.BaseTax = 5
	row.DeliveryPrice = 4
	row.HasDeliveryPrice = true

	price := pricedListing{exchangeRate: 1, priceWithTax: 20}

	e := &Engine{}
	fees := e.orderFees(row, price, 1)
	require.InDelta(t, 9.0, fees.feesPerMonth, 1e-9)

	// When base tax lives in the price, per-order fees drop it.
	e = &Engine{IncludeBaseTaxInPrice: true}
	fees = e.orderFees(row, price, 1)
	require.InDelta(t, 4.0, fees.feesPerMonth, 1e-9)
}

func TestOrderFeesSplitAcrossBundleProducts(t *testing.T) {
	t.Parallel()

	e := &Engine{}
	row := priceableRow()
	row.DeliveryPrice = 6
	row.HasDeliveryPrice = true
	row.Quantity = 2
	row.NBundleProducts = 3

	fees := e.orderFees(row, pricedListing{exchangeRate: 1, priceWithTax: 10}, 1)
	require.InDelta(t, 4.0, fees.feesPerMonth, 1e-9)
}
