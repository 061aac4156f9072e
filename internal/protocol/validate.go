package protocol

import (
	"errors"
	"fmt"
)

// ErrNotPriceable marks rows that cannot enter the costing pipeline. The
// wrapped message names the first missing or unusable field.
var ErrNotPriceable = errors.New("row not priceable")

// Priceable is a Row whose required costing fields are all present and
// coerced to concrete numeric types. Downstream calculation code works only
// with Priceable values and never re-checks optionality.
type Priceable struct {
	ProtocolID int64
	ProductID  int64
	ListingID  int64
	BundleID   *int64
	Priority   int

	Dose         float64
	DoseUnitID   int64
	DosesPerDay  float64
	DaysPerMonth float64
	Amount       float64
	AmountUnitID int64

	// Quantity and NBundleProducts default to 1 when absent.
	Quantity        float64
	NBundleProducts float64

	Price              float64
	Discounts          []Discount
	DeliveryPrice      float64
	HasDeliveryPrice   bool
	DeliveryPerListing float64
	BasketLimit        float64
	HasBasketLimit     bool
	TaxPercent         float64
	SalesTax           float64
	BaseTax            float64
	ExchangeRate       float64
	HasExchangeRate    bool

	UserCurrencyCode    string
	ListingCurrencyCode string
	VendorCountryID     int64
	UserCountryID       int64
}

// Domestic reports whether vendor and user share a country.
func (p *Priceable) Domestic() bool {
	return p.VendorCountryID == p.UserCountryID
}

// Validate coerces a Row into a Priceable, or explains why it cannot be
// priced. Missing required fields are a data condition, not a failure: the
// caller records the reason and keeps going with the rest of the batch.
func Validate(r Row) (*Priceable, error) {
	switch {
	case r.ListingID == nil || *r.ListingID == 0:
		return nil, missing("listingId")
	case r.ProductID == nil || *r.ProductID == 0:
		return nil, missing("productId")
	case r.Dose == nil:
		return nil, missing("dose")
	case r.DoseUnitID == nil:
		return nil, missing("doseUnitId")
	case r.DosesPerDay == nil:
		return nil, missing("dosesPerDay")
	case r.DaysPerMonth == nil:
		return nil, missing("daysPerMonth")
	case r.Amount == nil || *r.Amount == 0:
		return nil, missing("amount")
	case r.AmountUnitID == nil || *r.AmountUnitID == 0:
		return nil, missing("amountUnitId")
	case r.Price == nil:
		return nil, missing("price")
	case r.UserCurrencyCode == "":
		return nil, missing("userCurrencyCode")
	case r.ListingCurrencyCode == "":
		return nil, missing("listingCurrencyCode")
	case r.VendorCountryID == nil || *r.VendorCountryID == 0:
		return nil, missing("vendorCountryId")
	case r.UserCountryID == nil || *r.UserCountryID == 0:
		return nil, missing("userCountryId")
	}

	p := &Priceable{
		ProtocolID:          r.ProtocolID,
		ProductID:           int64(*r.ProductID),
		ListingID:           int64(*r.ListingID),
		Priority:            r.Priority,
		Dose:                r.Dose.Float(),
		DoseUnitID:          int64(*r.DoseUnitID),
		DosesPerDay:         r.DosesPerDay.Float(),
		DaysPerMonth:        r.DaysPerMonth.Float(),
		Amount:              r.Amount.Float(),
		AmountUnitID:        int64(*r.AmountUnitID),
		Quantity:            1,
		NBundleProducts:     1,
		Price:               r.Price.Float(),
		Discounts:           r.Discounts,
		UserCurrencyCode:    r.UserCurrencyCode,
		ListingCurrencyCode: r.ListingCurrencyCode,
		VendorCountryID:     int64(*r.VendorCountryID),
		UserCountryID:       int64(*r.UserCountryID),
	}

	if r.BundleID != nil && *r.BundleID != 0 {
		id := int64(*r.BundleID)
		p.BundleID = &id
	}
	if r.Quantity != nil && *r.Quantity > 0 {
		p.Quantity = r.Quantity.Float()
	}
	if r.NBundleProducts != nil && *r.NBundleProducts > 0 {
		p.NBundleProducts = r.NBundleProducts.Float()
	}
	if r.DeliveryPrice != nil {
		p.DeliveryPrice = r.DeliveryPrice.Float()
		p.HasDeliveryPrice = true
	}
	if r.DeliveryPerListing != nil {
		p.DeliveryPerListing = r.DeliveryPerListing.Float()
	}
	if r.BasketLimit != nil && *r.BasketLimit > 0 {
		p.BasketLimit = r.BasketLimit.Float()
		p.HasBasketLimit = true
	}
	if r.TaxPercent != nil {
		p.TaxPercent = r.TaxPercent.Float()
	}
	if r.SalesTax != nil {
		p.SalesTax = r.SalesTax.Float()
	}
	if r.BaseTax != nil {
		p.BaseTax = r.BaseTax.Float()
	}
	if r.ExchangeRate != nil && *r.ExchangeRate > 0 {
		p.ExchangeRate = r.ExchangeRate.Float()
		p.HasExchangeRate = true
	}
	return p, nil
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrNotPriceable, field)
}
