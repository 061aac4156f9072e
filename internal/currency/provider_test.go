package currency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticIdentity(t *testing.T) {
	t.Parallel()

	s := Static{}
	for _, code := range []string{"USD", "GBP", "EUR", "JPY"} {
		rate, err := s.Rate(context.Background(), code, code)
		require.NoError(t, err)
		require.Equal(t, 1.0, rate)
	}
}

func TestStaticLookupAndInverse(t *testing.T) {
	t.Parallel()

	s := Static{"USD/GBP": 0.8}

	rate, err := s.Rate(context.Background(), "USD", "GBP")
	require.NoError(t, err)
	require.Equal(t, 0.8, rate)

	rate, err = s.Rate(context.Background(), "GBP", "USD")
	require.NoError(t, err)
	require.InDelta(t, 1.25, rate, 1e-9)

	rate, err = s.Rate(context.Background(), "usd", "gbp")
	require.NoError(t, err)
	require.Equal(t, 0.8, rate)

	_, err = s.Rate(context.Background(), "USD", "JPY")
	require.ErrorIs(t, err, ErrRateUnavailable)
}
