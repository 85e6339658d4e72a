package matching

import (
	"fmt"
	"math"
	"time"

	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Coordinates is a WGS84 point in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid reports whether c is a finite point within WGS84 bounds.
func (c Coordinates) Valid() bool {
	for _, v := range [...]float64{c.Latitude, c.Longitude} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// Location is an administrative place plus optional coordinates.
type Location struct {
	City        string
	Area        string
	Coordinates *Coordinates
}

// Donor is the projection of a registered donor the matcher reads.
type Donor struct {
	ID               id.DonorID
	Name             string
	Phone            string
	BloodGroup       BloodGroup
	Location         Location
	LastDonationDate *time.Time
	IsActive         bool
}

// Urgency orders requests for presentation. It never affects eligibility.
type Urgency string

const (
	UrgencyCritical Urgency = "critical"
	UrgencyHigh     Urgency = "high"
	UrgencyMedium   Urgency = "medium"
)

func ParseUrgency(s string) (Urgency, error) {
	switch u := Urgency(s); u {
	case UrgencyCritical, UrgencyHigh, UrgencyMedium:
		return u, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown urgency %q", s))
	}
}

// Rank is 0 for the most urgent level.
func (u Urgency) Rank() int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	default:
		return 2
	}
}

// Request is the part of an emergency request the matcher needs.
type Request struct {
	RequiredBloodGroup BloodGroup
	Location           Location
	UnitsRequired      int
	Urgency            Urgency
}

// MatchedDonor is what callers get back for each matched donor.
type MatchedDonor struct {
	ID         id.DonorID `json:"id"`
	Name       string     `json:"name"`
	BloodGroup BloodGroup `json:"blood_group"`
	City       string     `json:"city"`
	Area       string     `json:"area"`
	Phone      string     `json:"phone"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
}

// Result is the outcome of one matching call.
type Result struct {
	Donors []MatchedDonor
	// Considered counts distinct candidates examined, before filtering.
	Considered int
}

// Empty reports a legitimate zero-match outcome.
func (r *Result) Empty() bool {
	return r == nil || len(r.Donors) == 0
}
