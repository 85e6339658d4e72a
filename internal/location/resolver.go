// Package location turns a (city, area) pair into coordinates for the
// distance tier of donor ranking. Resolution is best effort: callers treat
// any failure as "no coordinates" and fall back to name-based tiers.
package location

import (
	"context"
	"strings"

	"bloodlink/internal/matching"
)

// Resolver looks up coordinates for a place. Unknown places return an error
// wrapping sentinel.ErrNotFound.
type Resolver interface {
	Resolve(ctx context.Context, city, area string) (*matching.Coordinates, error)
}

// Key is the canonical gazetteer key for a place: trimmed, lower-cased and
// joined with '|'.
func Key(city, area string) string {
	return normalize(city) + "|" + normalize(area)
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
