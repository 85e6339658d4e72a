package matching

import (
	"math"
	"strings"
)

// Tier buckets a donor by closeness to the request. Lower is better.
type Tier int

const (
	TierSameArea Tier = iota
	TierSameCity
	TierByDistance
	TierUnranked
)

// Proximity is the ordering key for one donor against one request.
// DistanceKm is only set for TierByDistance.
type Proximity struct {
	Tier       Tier
	DistanceKm float64
}

// Less orders by tier, then distance.
func (p Proximity) Less(o Proximity) bool {
	if p.Tier != o.Tier {
		return p.Tier < o.Tier
	}
	return p.DistanceKm < o.DistanceKm
}

const earthRadiusKm = 6371.0

// Score places donor relative to request. City and area compare
// case-insensitively after trimming; blank values never match.
func Score(request, donor Location) Proximity {
	if samePlace(request.City, donor.City) {
		if samePlace(request.Area, donor.Area) {
			return Proximity{Tier: TierSameArea}
		}
		return Proximity{Tier: TierSameCity}
	}
	if usable(request.Coordinates) && usable(donor.Coordinates) {
		return Proximity{
			Tier:       TierByDistance,
			DistanceKm: HaversineKm(*request.Coordinates, *donor.Coordinates),
		}
	}
	return Proximity{Tier: TierUnranked}
}

// usable treats out-of-range or non-finite points as absent.
func usable(c *Coordinates) bool {
	return c != nil && c.Valid()
}

func samePlace(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// HaversineKm returns the great-circle distance between a and b.
func HaversineKm(a, b Coordinates) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := (b.Latitude - a.Latitude) * math.Pi / 180
	dLon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}
