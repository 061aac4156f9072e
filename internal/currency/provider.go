// Package currency resolves exchange rates between ISO 4217 currency codes.
package currency

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrRateUnavailable is returned when a provider cannot resolve a rate.
var ErrRateUnavailable = errors.New("exchange rate unavailable")

// Provider resolves the multiplicative rate converting an amount in "from"
// into "to". Implementations must return exactly 1 for identity pairs and a
// strictly positive rate otherwise.
type Provider interface {
	Rate(ctx context.Context, from, to string) (float64, error)
}

// Static serves rates from a fixed table keyed "FROM/TO". The inverse of a
// known pair is derived automatically. Useful for tests and offline runs.
type Static map[string]float64

// Rate implements Provider.
func (s Static) Rate(_ context.Context, from, to string) (float64, error) {
	from = normalize(from)
	to = normalize(to)
	if from == to {
		return 1, nil
	}
	if r, ok := s[pairKey(from, to)]; ok && r > 0 {
		return r, nil
	}
	if r, ok := s[pairKey(to, from)]; ok && r > 0 {
		return 1 / r, nil
	}
	return 0, fmt.Errorf("%w: %s to %s", ErrRateUnavailable, from, to)
}

func pairKey(from, to string) string {
	return from + "/" + to
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
