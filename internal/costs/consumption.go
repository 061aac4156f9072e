package costs

import "github.com/protoplan/costs-api/internal/protocol"

// avgDaysPerMonth is the mean length of a calendar month (365.24 / 12),
// used so repurchase intervals stay consistent across month lengths.
const avgDaysPerMonth = 365.24 / 12

// productsPerMonth returns the quantity of product a row consumes over an
// average month, expressed in the listing's package units.
func (e *Engine) productsPerMonth(row *protocol.Priceable) float64 {
	factor := 1.0
	if e.Units != nil {
		if f, ok := e.Units.Factor(row.DoseUnitID, row.AmountUnitID, row.ProductID); ok && f != 0 {
			factor = f
		} else {
			// Data-quality gap, not a failure: proceed with the unscaled dose.
			e.logger().Warn().
				Int64("productId", row.ProductID).
				Int64("doseUnitId", row.DoseUnitID).
				Int64("amountUnitId", row.AmountUnitID).
				Msg("no unit conversion factor, assuming 1")
		}
	}
	return row.Dose * row.DosesPerDay * row.DaysPerMonth * factor / row.Amount
}

// Repurchase converts monthly listing throughput into average days between
// reorders. A zero throughput yields +Inf, which callers read as
// "effectively never" rather than an error.
func Repurchase(listingsPerMonth float64) float64 {
	return avgDaysPerMonth / listingsPerMonth
}
