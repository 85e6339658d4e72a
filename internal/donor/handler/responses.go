package handler

import (
	"time"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/matching"
	"bloodlink/pkg/platform/privacy"
)

// HTTP Response DTOs - contain JSON tags for API serialization.

type DonorResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Phone            string   `json:"phone"`
	Email            string   `json:"email,omitempty"`
	BloodGroup       string   `json:"blood_group"`
	DateOfBirth      string   `json:"date_of_birth,omitempty"`
	Address          string   `json:"address,omitempty"`
	City             string   `json:"city"`
	Area             string   `json:"area"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	LastDonationDate string   `json:"last_donation_date,omitempty"`
	IsActive         bool     `json:"is_active"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at"`
}

type DonorListResponse struct {
	Donors []*DonorResponse `json:"donors"`
	Count  int              `json:"count"`
	Limit  int              `json:"limit,omitempty"`
	Offset int              `json:"offset"`
}

type AvailabilityResponse struct {
	DonorID               string   `json:"donor_id"`
	Available             bool     `json:"available"`
	IsActive              bool     `json:"is_active"`
	LastDonationDate      string   `json:"last_donation_date,omitempty"`
	DaysSinceLastDonation *int     `json:"days_since_last_donation,omitempty"`
	NextEligibleDate      string   `json:"next_eligible_date,omitempty"`
	CooldownDays          int      `json:"cooldown_days"`
	CanDonateTo           []string `json:"can_donate_to"`
}

type DonorStatsResponse struct {
	ActiveByBloodGroup map[string]int `json:"active_by_blood_group"`
	TotalActive        int            `json:"total_active"`
}

// toDonorResponse renders a donor. Public views mask the phone number and
// omit email, address and date of birth.
func toDonorResponse(d *models.Donor, public bool) *DonorResponse {
	phone := d.Phone
	if public {
		phone = privacy.MaskPhone(phone)
	}
	resp := &DonorResponse{
		ID:               d.ID.String(),
		Name:             d.Name,
		Phone:            phone,
		Email:            d.Email,
		BloodGroup:       string(d.BloodGroup),
		DateOfBirth:      formatDate(d.DateOfBirth),
		Address:          d.Address,
		City:             d.City,
		Area:             d.Area,
		LastDonationDate: formatDate(d.LastDonationDate),
		IsActive:         d.IsActive,
		CreatedAt:        d.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:        d.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if public {
		resp.Email = ""
		resp.Address = ""
		resp.DateOfBirth = ""
	}
	if d.Coordinates != nil {
		lat, lon := d.Coordinates.Latitude, d.Coordinates.Longitude
		resp.Latitude, resp.Longitude = &lat, &lon
	}
	return resp
}

func toDonorListResponse(donors []*models.Donor, filter models.ListFilter, public bool) *DonorListResponse {
	out := make([]*DonorResponse, len(donors))
	for i, d := range donors {
		out[i] = toDonorResponse(d, public)
	}
	return &DonorListResponse{
		Donors: out,
		Count:  len(out),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}
}

func toAvailabilityResponse(a *models.Availability) *AvailabilityResponse {
	groups := make([]string, len(a.CanDonateTo))
	for i, g := range a.CanDonateTo {
		groups[i] = string(g)
	}
	return &AvailabilityResponse{
		DonorID:               a.DonorID.String(),
		Available:             a.Available,
		IsActive:              a.IsActive,
		LastDonationDate:      formatDate(a.LastDonationDate),
		DaysSinceLastDonation: a.DaysSinceLastDonation,
		NextEligibleDate:      formatDate(a.NextEligibleDate),
		CooldownDays:          matching.DonationCooldownDays,
		CanDonateTo:           groups,
	}
}

func toDonorStatsResponse(counts map[matching.BloodGroup]int) *DonorStatsResponse {
	resp := &DonorStatsResponse{ActiveByBloodGroup: make(map[string]int, len(counts))}
	for g, n := range counts {
		resp.ActiveByBloodGroup[string(g)] = n
		resp.TotalActive += n
	}
	return resp
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.DateOnly)
}
