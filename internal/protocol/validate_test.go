package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func completeRow() Row {
	return Row{
		ProtocolID:          1,
		ProductID:           NumberOf(5),
		ListingID:           NumberOf(9),
		Dose:                NumberOf(1),
		DoseUnitID:          NumberOf(2),
		DosesPerDay:         NumberOf(2),
		DaysPerMonth:        NumberOf(30),
		Amount:              NumberOf(60),
		AmountUnitID:        NumberOf(2),
		Price:               NumberOf(10),
		UserCurrencyCode:    "GBP",
		ListingCurrencyCode: "USD",
		VendorCountryID:     NumberOf(2),
		UserCountryID:       NumberOf(1),
	}
}

func TestValidateComplete(t *testing.T) {
	t.Parallel()

	p, err := Validate(completeRow())
	require.NoError(t, err)
	require.Equal(t, int64(5), p.ProductID)
	require.Equal(t, int64(9), p.ListingID)
	require.Nil(t, p.BundleID)
	require.Equal(t, 1.0, p.Quantity)
	require.Equal(t, 1.0, p.NBundleProducts)
	require.False(t, p.HasBasketLimit)
	require.False(t, p.HasExchangeRate)
}

func TestValidateMissingFields(t *testing.T) {
	t.Parallel()

	cases := []struct {
		field string
		mut   func(*Row)
	}{
		{"listingId", func(r *Row) { r.ListingID = nil }},
		{"productId", func(r *Row) { r.ProductID = NumberOf(0) }},
		{"dose", func(r *Row) { r.Dose = nil }},
		{"doseUnitId", func(r *Row) { r.DoseUnitID = nil }},
		{"dosesPerDay", func(r *Row) { r.DosesPerDay = nil }},
		{"daysPerMonth", func(r *Row) { r.DaysPerMonth = nil }},
		{"amount", func(r *Row) { r.Amount = NumberOf(0) }},
		{"amountUnitId", func(r *Row) { r.AmountUnitID = nil }},
		{"price", func(r *Row) { r.Price = nil }},
		{"userCurrencyCode", func(r *Row) { r.UserCurrencyCode = "" }},
		{"listingCurrencyCode", func(r *Row) { r.ListingCurrencyCode = "" }},
		{"vendorCountryId", func(r *Row) { r.VendorCountryID = nil }},
		{"userCountryId", func(r *Row) { r.UserCountryID = nil }},
	}
	for _, tc := range cases {
		t.Run(tc.field, func(t *testing.T) {
			row := completeRow()
			tc.mut(&row)
			p, err := Validate(row)
			require.Nil(t, p)
			require.ErrorIs(t, err, ErrNotPriceable)
			require.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestValidateZeroDoseIsPriceable(t *testing.T) {
	t.Parallel()

	row := completeRow()
	row.Dose = NumberOf(0)
	p, err := Validate(row)
	require.NoError(t, err)
	require.Equal(t, 0.0, p.Dose)
}

func TestValidateOptionalDefaults(t *testing.T) {
	t.Parallel()

	row := completeRow()
	row.BundleID = NumberOf(7)
	row.Quantity = NumberOf(2)
	row.NBundleProducts = NumberOf(3)
	row.BasketLimit = NumberOf(150)
	row.ExchangeRate = NumberOf(0.8)
	row.DeliveryPrice = NumberOf(0)

	p, err := Validate(row)
	require.NoError(t, err)
	require.NotNil(t, p.BundleID)
	require.Equal(t, int64(7), *p.BundleID)
	require.Equal(t, 2.0, p.Quantity)
	require.Equal(t, 3.0, p.NBundleProducts)
	require.True(t, p.HasBasketLimit)
	require.Equal(t, 150.0, p.BasketLimit)
	require.True(t, p.HasExchangeRate)
	require.Equal(t, 0.8, p.ExchangeRate)
	// An explicit zero delivery price is data, not absence.
	require.True(t, p.HasDeliveryPrice)
	require.Equal(t, 0.0, p.DeliveryPrice)
}
