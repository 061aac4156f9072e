package protocol

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNumberUnmarshalCoercion(t *testing.T) {
	t.Parallel()

	var row Row
	payload := []byte(`{"dose":"2.5","price":9.99,"productId":"42","amount":null}`)
	require.NoError(t, json.Unmarshal(payload, &row))

	require.NotNil(t, row.Dose)
	require.Equal(t, 2.5, row.Dose.Float())
	require.NotNil(t, row.Price)
	require.Equal(t, 9.99, row.Price.Float())
	require.NotNil(t, row.ProductID)
	require.Equal(t, float64(42), row.ProductID.Float())
	require.Nil(t, row.Amount)
}

func TestNumberUnmarshalRejectsGarbage(t *testing.T) {
	t.Parallel()

	var n Number
	require.Error(t, json.Unmarshal([]byte(`"abc"`), &n))
}

func TestNumberMarshalNonFinite(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   float64
		want string
	}{
		{"finite", 12.5, "12.5"},
		{"infinity", math.Inf(1), "null"},
		{"nan", math.NaN(), "null"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := json.Marshal(Number(tc.in))
			require.NoError(t, err)
			require.Equal(t, tc.want, string(out))
		})
	}
}

func TestSortRowsStable(t *testing.T) {
	t.Parallel()

	rows := []Row{
		{ProtocolID: 1, Priority: 3},
		{ProtocolID: 2, Priority: 1},
		{ProtocolID: 3, Priority: 3},
		{ProtocolID: 4, Priority: 2},
	}
	sorted := SortRows(rows)

	require.Equal(t, []int64{2, 4, 1, 3}, []int64{
		sorted[0].ProtocolID, sorted[1].ProtocolID, sorted[2].ProtocolID, sorted[3].ProtocolID,
	})
	// Input stays untouched.
	require.Equal(t, int64(1), rows[0].ProtocolID)
}
