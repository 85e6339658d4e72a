package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloodlink/internal/matching"
	"bloodlink/pkg/platform/sentinel"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "dhaka|mirpur 10", Key("  Dhaka ", "Mirpur   10"))
	assert.Equal(t, Key("DHAKA", "mirpur"), Key("dhaka", "Mirpur"))
}

func TestStaticResolver(t *testing.T) {
	r := NewStatic(Place{City: "Dhaka", Area: "Mirpur", Coordinates: matching.Coordinates{Latitude: 23.8223, Longitude: 90.3654}})

	got, err := r.Resolve(context.Background(), "dhaka", " MIRPUR ")
	require.NoError(t, err)
	assert.InDelta(t, 23.8223, got.Latitude, 1e-9)

	_, err = r.Resolve(context.Background(), "Dhaka", "Gulshan")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	r.Add(Place{City: "Dhaka", Area: "Gulshan", Coordinates: matching.Coordinates{Latitude: 23.79, Longitude: 90.41}})
	assert.Equal(t, 2, r.Len())
	_, err = r.Resolve(context.Background(), "Dhaka", "Gulshan")
	assert.NoError(t, err)
}

func TestStaticResolverReturnsCopies(t *testing.T) {
	r := NewStatic(Place{City: "A", Area: "B", Coordinates: matching.Coordinates{Latitude: 1, Longitude: 2}})

	first, err := r.Resolve(context.Background(), "A", "B")
	require.NoError(t, err)
	first.Latitude = 99

	second, err := r.Resolve(context.Background(), "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 1.0, second.Latitude)
}
