package protocol

import (
	"bytes"
	"math"
	"sort"
	"strconv"
)

// Number is a float64 that tolerates the loose typing of upstream protocol
// exports: it decodes from JSON numbers or numeric strings, and marshals
// non-finite values as null so "repurchase never" survives serialisation.
type Number float64

// UnmarshalJSON accepts numbers and quoted numeric strings.
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		if s == "" {
			*n = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*n = Number(v)
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number(v)
	return nil
}

// MarshalJSON renders NaN and infinities as null.
func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, f, 'f', -1, 64), nil
}

// Float returns the underlying float64.
func (n Number) Float() float64 { return float64(n) }

// Discount is one promotional reduction attached to a listing. Applied
// discounts compound multiplicatively in list order.
type Discount struct {
	Applied       bool   `json:"applied"`
	SavingPercent Number `json:"savingPercent"`
}

// Row is one line of a dosing protocol joined with its candidate listing and
// the tax and delivery attributes needed to price it. Leaf fields are
// pointers because upstream join data is sparse; nothing downstream touches
// them before validation has produced a Priceable.
type Row struct {
	ProtocolID int64   `json:"protocolId"`
	ProductID  *Number `json:"productId,omitempty"`
	ListingID  *Number `json:"listingId,omitempty"`
	BundleID   *Number `json:"bundleId,omitempty"`
	Priority   int     `json:"priority"`

	Dose            *Number `json:"dose,omitempty"`
	DoseUnitID      *Number `json:"doseUnitId,omitempty"`
	DosesPerDay     *Number `json:"dosesPerDay,omitempty"`
	DaysPerMonth    *Number `json:"daysPerMonth,omitempty"`
	Amount          *Number `json:"amount,omitempty"`
	AmountUnitID    *Number `json:"amountUnitId,omitempty"`
	Quantity        *Number `json:"quantity,omitempty"`
	NBundleProducts *Number `json:"nBundleProducts,omitempty"`

	Price              *Number    `json:"price,omitempty"`
	Discounts          []Discount `json:"discounts,omitempty"`
	DeliveryPrice      *Number    `json:"deliveryPrice,omitempty"`
	DeliveryPerListing *Number    `json:"deliveryPerListing,omitempty"`
	BasketLimit        *Number    `json:"basketLimit,omitempty"`
	TaxPercent         *Number    `json:"taxPercent,omitempty"`
	SalesTax           *Number    `json:"salesTax,omitempty"`
	BaseTax            *Number    `json:"baseTax,omitempty"`
	ExchangeRate       *Number    `json:"exchangeRate,omitempty"`

	UserCurrencyCode    string  `json:"userCurrencyCode,omitempty"`
	ListingCurrencyCode string  `json:"listingCurrencyCode,omitempty"`
	VendorCountryID     *Number `json:"vendorCountryId,omitempty"`
	UserCountryID       *Number `json:"userCountryId,omitempty"`
}

// Derived is the engine output: the input row extended with computed cost
// fields. Nil means "not computed", either because the row was skipped or
// because bundle visibility blanks the field to avoid double counting.
type Derived struct {
	Row

	// Skipped carries the reason a row was excluded from costing.
	Skipped string `json:"skipped,omitempty"`
	// RateFallback is set when a default exchange rate was substituted
	// after a failed lookup.
	RateFallback bool `json:"rateFallback,omitempty"`

	ProductsPerMonth    *Number `json:"productsPerMonth,omitempty"`
	ListingsPerMonth    *Number `json:"listingsPerMonth,omitempty"`
	AmountProportion    *Number `json:"amountProportion,omitempty"`
	ExchangeRateUsed    *Number `json:"exchangeRateUsed,omitempty"`
	DiscountedPrice     *Number `json:"discountedPrice,omitempty"`
	PriceWithTax        *Number `json:"priceWithTax,omitempty"`
	MaxListingsPerOrder *Number `json:"maxListingsPerOrder,omitempty"`
	OrdersPerMonth      *Number `json:"ordersPerMonth,omitempty"`
	CostPerMonth        *Number `json:"costPerMonth,omitempty"`
	FeesPerMonth        *Number `json:"feesPerMonth,omitempty"`
	Repurchase          *Number `json:"repurchase,omitempty"`
}

// Totals aggregates monthly cost and fees across a protocol.
type Totals struct {
	CostPerMonth float64 `json:"costPerMonth"`
	FeesPerMonth float64 `json:"feesPerMonth"`
}

// SortRows returns a copy of rows ordered by ascending priority. The sort is
// stable so rows sharing a priority keep their input order.
func SortRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// NumberOf wraps a float64 for use in pointer fields.
func NumberOf(v float64) *Number {
	n := Number(v)
	return &n
}
