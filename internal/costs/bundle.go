package costs

import "github.com/protoplan/costs-api/internal/protocol"

// rowState carries one input row through the calculation pipeline.
type rowState struct {
	index int
	pr    *protocol.Priceable
	skip  string

	rate         float64
	rateFallback bool

	productsPerMonth float64
	proportion       float64
	listingsPerMonth float64
	visible          bool
}

// groupBundles partitions priceable rows into bundle groups. Rows sharing a
// bundleId form one group; rows without one form singleton groups. Group
// membership follows input order so downstream tie-breaks stay
// deterministic.
func groupBundles(states []*rowState) [][]*rowState {
	var groups [][]*rowState
	byBundle := make(map[int64]int)
	for _, st := range states {
		if st.pr == nil || st.skip != "" {
			continue
		}
		if st.pr.BundleID == nil {
			groups = append(groups, []*rowState{st})
			continue
		}
		id := *st.pr.BundleID
		if gi, ok := byBundle[id]; ok {
			groups[gi] = append(groups[gi], st)
			continue
		}
		byBundle[id] = len(groups)
		groups = append(groups, []*rowState{st})
	}
	return groups
}

// resolveBundle derives the shared quantities of one bundle group:
//
//   - amountProportion: each row's share of the group's total monthly
//     consumption of its product (sums to 1 per product subgroup),
//   - listingsPerMonth: the dominant requirement, max over the group of
//     productsPerMonth / quantity; a bundle orders the dominant quantity
//     once, not once per row,
//   - visibility: the lowest-priority row carries the group's cost fields;
//     among equal priorities the first row in input order wins.
func resolveBundle(group []*rowState) {
	totalByProduct := make(map[int64]float64, len(group))
	for _, st := range group {
		totalByProduct[st.pr.ProductID] += st.productsPerMonth
	}

	maxListings := 0.0
	for _, st := range group {
		if total := totalByProduct[st.pr.ProductID]; total > 0 {
			st.proportion = st.productsPerMonth / total
		} else {
			// Zero total consumption: a defined zero, never NaN.
			st.proportion = 0
		}
		if lpm := st.productsPerMonth / st.pr.Quantity; lpm > maxListings {
			maxListings = lpm
		}
	}

	visible := group[0]
	for _, st := range group[1:] {
		if st.pr.Priority < visible.pr.Priority {
			visible = st
		}
	}
	for _, st := range group {
		st.listingsPerMonth = maxListings
		st.visible = st == visible
	}
}
