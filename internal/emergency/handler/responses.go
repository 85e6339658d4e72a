package handler

import (
	"time"

	"bloodlink/internal/emergency/models"
	"bloodlink/internal/emergency/service"
	"bloodlink/internal/matching"
	"bloodlink/pkg/platform/privacy"
)

// HTTP Response DTOs - contain JSON tags for API serialization.

type EmergencyRequestResponse struct {
	ID              string   `json:"id"`
	RequesterName   string   `json:"requester_name"`
	ContactPhone    string   `json:"contact_phone"`
	Hospital        string   `json:"hospital,omitempty"`
	BloodGroup      string   `json:"blood_group"`
	City            string   `json:"city"`
	Area            string   `json:"area"`
	Latitude        *float64 `json:"latitude,omitempty"`
	Longitude       *float64 `json:"longitude,omitempty"`
	UnitsRequired   int      `json:"units_required"`
	Urgency         string   `json:"urgency"`
	Status          string   `json:"status"`
	IsCritical      bool     `json:"is_critical"`
	MatchedDonorIDs []string `json:"matched_donor_ids"`
	RejectionReason string   `json:"rejection_reason,omitempty"`
	ReviewedBy      string   `json:"reviewed_by,omitempty"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
	ApprovedAt      string   `json:"approved_at,omitempty"`
	RejectedAt      string   `json:"rejected_at,omitempty"`
	CompletedAt     string   `json:"completed_at,omitempty"`
}

type EmergencyRequestListResponse struct {
	Requests []*EmergencyRequestResponse `json:"requests"`
	Count    int                         `json:"count"`
	Limit    int                         `json:"limit,omitempty"`
	Offset   int                         `json:"offset"`
}

type ApprovalResponse struct {
	Request    *EmergencyRequestResponse `json:"request"`
	Matches    []matching.MatchedDonor   `json:"matches"`
	Considered int                       `json:"considered"`
}

type SearchResponse struct {
	Donors     []matching.MatchedDonor `json:"donors"`
	Count      int                     `json:"count"`
	Considered int                     `json:"considered"`
}

type StatisticsResponse struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Approved  int `json:"approved"`
	Rejected  int `json:"rejected"`
	Completed int `json:"completed"`
	Critical  int `json:"critical"`
}

// toRequestResponse renders a request. Public views mask the contact phone
// and omit reviewer details.
func toRequestResponse(r *models.Request, criticalUnits int, public bool) *EmergencyRequestResponse {
	phone := r.ContactPhone
	if public {
		phone = privacy.MaskPhone(phone)
	}
	matched := make([]string, len(r.MatchedDonorIDs))
	for i, d := range r.MatchedDonorIDs {
		matched[i] = d.String()
	}
	resp := &EmergencyRequestResponse{
		ID:              r.ID.String(),
		RequesterName:   r.RequesterName,
		ContactPhone:    phone,
		Hospital:        r.Hospital,
		BloodGroup:      string(r.BloodGroup),
		City:            r.City,
		Area:            r.Area,
		UnitsRequired:   r.UnitsRequired,
		Urgency:         string(r.Urgency),
		Status:          string(r.Status),
		IsCritical:      r.IsCritical(criticalUnits),
		MatchedDonorIDs: matched,
		RejectionReason: r.RejectionReason,
		ReviewedBy:      r.ReviewedBy,
		CreatedAt:       r.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.UTC().Format(time.RFC3339),
		ApprovedAt:      formatTime(r.ApprovedAt),
		RejectedAt:      formatTime(r.RejectedAt),
		CompletedAt:     formatTime(r.CompletedAt),
	}
	if public {
		resp.ReviewedBy = ""
	}
	if r.Coordinates != nil {
		lat, lon := r.Coordinates.Latitude, r.Coordinates.Longitude
		resp.Latitude, resp.Longitude = &lat, &lon
	}
	return resp
}

func toRequestListResponse(reqs []*models.Request, filter models.ListFilter, criticalUnits int) *EmergencyRequestListResponse {
	out := make([]*EmergencyRequestResponse, len(reqs))
	for i, r := range reqs {
		out[i] = toRequestResponse(r, criticalUnits, false)
	}
	return &EmergencyRequestListResponse{
		Requests: out,
		Count:    len(out),
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}
}

func toApprovalResponse(res *service.ApprovalResult, criticalUnits int) *ApprovalResponse {
	matches := res.Matches
	if matches == nil {
		matches = []matching.MatchedDonor{}
	}
	return &ApprovalResponse{
		Request:    toRequestResponse(res.Request, criticalUnits, false),
		Matches:    matches,
		Considered: res.Considered,
	}
}

// toSearchResponse masks donor phone numbers; full contact details are only
// released through approval.
func toSearchResponse(res *matching.Result) *SearchResponse {
	donors := make([]matching.MatchedDonor, len(res.Donors))
	for i, d := range res.Donors {
		d.Phone = privacy.MaskPhone(d.Phone)
		donors[i] = d
	}
	return &SearchResponse{
		Donors:     donors,
		Count:      len(donors),
		Considered: res.Considered,
	}
}

func toStatisticsResponse(s *models.Statistics) *StatisticsResponse {
	return &StatisticsResponse{
		Total:     s.Total,
		Pending:   s.Pending,
		Approved:  s.Approved,
		Rejected:  s.Rejected,
		Completed: s.Completed,
		Critical:  s.Critical,
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
