package units

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTableFactor(t *testing.T) {
	t.Parallel()

	table := DefaultTable()

	factor, ok := table.Factor(UnitMilligram, UnitMilligram, 1)
	require.True(t, ok)
	require.Equal(t, 1.0, factor)

	factor, ok = table.Factor(UnitMilligram, UnitGram, 1)
	require.True(t, ok)
	require.Equal(t, 0.001, factor)

	// Inverse is derived from the registered ratio.
	factor, ok = table.Factor(UnitGram, UnitMilligram, 1)
	require.True(t, ok)
	require.InDelta(t, 1000.0, factor, 1e-9)

	_, ok = table.Factor(UnitMilligram, UnitMillilitre, 1)
	require.False(t, ok)
}

func TestTableProductOverride(t *testing.T) {
	t.Parallel()

	table := DefaultTable()
	// One capsule of product 42 holds 500 mg.
	table.AddProduct(UnitCapsule, UnitMilligram, 42, 500)

	factor, ok := table.Factor(UnitCapsule, UnitMilligram, 42)
	require.True(t, ok)
	require.Equal(t, 500.0, factor)

	factor, ok = table.Factor(UnitMilligram, UnitCapsule, 42)
	require.True(t, ok)
	require.InDelta(t, 0.002, factor, 1e-12)

	// Another product has no capsule conversion.
	_, ok = table.Factor(UnitCapsule, UnitMilligram, 43)
	require.False(t, ok)
}

func TestTableIgnoresZeroFactors(t *testing.T) {
	t.Parallel()

	table := NewTable()
	table.Add(1, 2, 0)
	_, ok := table.Factor(1, 2, 0)
	require.False(t, ok)
}
