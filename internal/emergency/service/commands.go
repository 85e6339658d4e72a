package service

import (
	"bloodlink/internal/emergency/models"
	"bloodlink/internal/matching"
)

// CreateCommand carries a validated emergency request submission.
type CreateCommand struct {
	RequesterName string
	ContactPhone  string
	Hospital      string
	BloodGroup    matching.BloodGroup
	City          string
	Area          string
	Coordinates   *matching.Coordinates
	UnitsRequired int
	Urgency       matching.Urgency
}

// SearchQuery is an ad-hoc donor lookup that does not create a request.
// Limit <= 0 falls back to the service's configured cap.
type SearchQuery struct {
	BloodGroup  matching.BloodGroup
	City        string
	Area        string
	Coordinates *matching.Coordinates
	Limit       int
}

// ApprovalResult is the approved request plus the ranked donors it was matched to.
type ApprovalResult struct {
	Request    *models.Request
	Matches    []matching.MatchedDonor
	Considered int
}
