// Package units resolves conversion factors between dosing units and the
// package units a listing is sold in.
package units

// Converter resolves a multiplicative factor for converting a dose expressed
// in fromUnitID into the unit identified by toUnitID. productID allows
// product-specific factors (e.g. density-dependent volume to mass). The
// second return is false when no conversion is known; callers decide how to
// degrade.
type Converter interface {
	Factor(fromUnitID, toUnitID, productID int64) (float64, bool)
}

type pairKey struct {
	from, to int64
}

type productKey struct {
	from, to, product int64
}

// Table is a static Converter backed by unit ratio rows with optional
// per-product overrides. Product overrides win over generic ratios, and the
// inverse of a known ratio is derived automatically.
type Table struct {
	ratios   map[pairKey]float64
	products map[productKey]float64
}

// NewTable returns an empty conversion table.
func NewTable() *Table {
	return &Table{
		ratios:   make(map[pairKey]float64),
		products: make(map[productKey]float64),
	}
}

// Add registers a generic unit ratio: one fromUnit equals factor toUnits.
func (t *Table) Add(fromUnitID, toUnitID int64, factor float64) {
	if factor == 0 {
		return
	}
	t.ratios[pairKey{fromUnitID, toUnitID}] = factor
}

// AddProduct registers a product-specific ratio.
func (t *Table) AddProduct(fromUnitID, toUnitID, productID int64, factor float64) {
	if factor == 0 {
		return
	}
	t.products[productKey{fromUnitID, toUnitID, productID}] = factor
}

// Factor implements Converter.
func (t *Table) Factor(fromUnitID, toUnitID, productID int64) (float64, bool) {
	if fromUnitID == toUnitID {
		return 1, true
	}
	if f, ok := t.products[productKey{fromUnitID, toUnitID, productID}]; ok {
		return f, true
	}
	if f, ok := t.products[productKey{toUnitID, fromUnitID, productID}]; ok {
		return 1 / f, true
	}
	if f, ok := t.ratios[pairKey{fromUnitID, toUnitID}]; ok {
		return f, true
	}
	if f, ok := t.ratios[pairKey{toUnitID, fromUnitID}]; ok {
		return 1 / f, true
	}
	return 0, false
}

// Common unit identifiers used by the default metric table. The IDs follow
// the upstream unit dictionary.
const (
	UnitMicrogram int64 = 1
	UnitMilligram int64 = 2
	UnitGram      int64 = 3
	UnitKilogram  int64 = 4
	UnitMillilitre int64 = 10
	UnitLitre      int64 = 11
	UnitIU         int64 = 20
	UnitCapsule    int64 = 30
	UnitScoop      int64 = 31
	UnitDrop       int64 = 32
)

// DefaultTable returns a table preloaded with the metric mass and volume
// ratios. IU, capsule, scoop and drop conversions are product-specific and
// must be added per product.
func DefaultTable() *Table {
	t := NewTable()
	t.Add(UnitMicrogram, UnitMilligram, 0.001)
	t.Add(UnitMilligram, UnitGram, 0.001)
	t.Add(UnitGram, UnitKilogram, 0.001)
	t.Add(UnitMicrogram, UnitGram, 0.000001)
	t.Add(UnitMilligram, UnitKilogram, 0.000001)
	t.Add(UnitMillilitre, UnitLitre, 0.001)
	return t
}
