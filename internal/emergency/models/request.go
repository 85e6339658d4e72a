package models

import (
	"fmt"
	"strings"
	"time"

	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Status is the lifecycle state of an emergency request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// transitions lists the allowed next states. Rejected and completed are terminal.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusCompleted},
}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return st, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, fmt.Sprintf("unknown status %q", s))
	}
}

// CanTransitionTo reports whether the FSM allows s -> next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Request is an emergency blood request.
type Request struct {
	ID              id.EmergencyRequestID
	RequesterName   string
	ContactPhone    string
	Hospital        string
	BloodGroup      matching.BloodGroup
	City            string
	Area            string
	Coordinates     *matching.Coordinates
	UnitsRequired   int
	Urgency         matching.Urgency
	Status          Status
	MatchedDonorIDs []id.DonorID
	RejectionReason string
	ReviewedBy      string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ApprovedAt      *time.Time
	RejectedAt      *time.Time
	CompletedAt     *time.Time
}

// NewRequest builds a pending request, enforcing the field invariants.
func NewRequest(requestID id.EmergencyRequestID, requester, phone string, group matching.BloodGroup,
	city, area string, units int, urgency matching.Urgency, now time.Time,
) (*Request, error) {
	if _, err := matching.ParseBloodGroup(string(group)); err != nil {
		return nil, err
	}
	if _, err := matching.ParseUrgency(string(urgency)); err != nil {
		return nil, err
	}
	r := &Request{
		ID:            requestID,
		RequesterName: strings.TrimSpace(requester),
		ContactPhone:  strings.TrimSpace(phone),
		BloodGroup:    group,
		City:          strings.TrimSpace(city),
		Area:          strings.TrimSpace(area),
		UnitsRequired: units,
		Urgency:       urgency,
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch {
	case r.RequesterName == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "requester name cannot be empty")
	case r.ContactPhone == "":
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "contact phone cannot be empty")
	case r.City == "" || r.Area == "":
		return nil, dErrors.New(dErrors.CodeInvalidLocation, "request city and area are required")
	case units <= 0:
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "units required must be greater than zero")
	}
	return r, nil
}

// Approve moves a pending request to approved and records the ranked matches.
func (r *Request) Approve(matches []id.DonorID, reviewer string, now time.Time) error {
	if err := r.transition(StatusApproved); err != nil {
		return err
	}
	r.MatchedDonorIDs = append([]id.DonorID(nil), matches...)
	r.ReviewedBy = reviewer
	r.ApprovedAt = &now
	r.UpdatedAt = now
	return nil
}

// Reject closes a pending request. The reason is kept for the requester.
func (r *Request) Reject(reason, reviewer string, now time.Time) error {
	if err := r.transition(StatusRejected); err != nil {
		return err
	}
	r.RejectionReason = strings.TrimSpace(reason)
	r.ReviewedBy = reviewer
	r.RejectedAt = &now
	r.UpdatedAt = now
	return nil
}

// Complete closes an approved request once blood has been sourced.
func (r *Request) Complete(now time.Time) error {
	if err := r.transition(StatusCompleted); err != nil {
		return err
	}
	r.CompletedAt = &now
	r.UpdatedAt = now
	return nil
}

// EnsureStatus fails with an invariant violation unless r is in want.
func (r *Request) EnsureStatus(want Status) error {
	if r.Status != want {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("request is %s, expected %s", r.Status, want))
	}
	return nil
}

func (r *Request) transition(next Status) error {
	if !r.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvariantViolation,
			fmt.Sprintf("cannot move request from %s to %s", r.Status, next))
	}
	r.Status = next
	return nil
}

// MatchRequest projects the request into the matcher's input.
func (r *Request) MatchRequest() matching.Request {
	return matching.Request{
		RequiredBloodGroup: r.BloodGroup,
		Location: matching.Location{
			City:        r.City,
			Area:        r.Area,
			Coordinates: r.Coordinates,
		},
		UnitsRequired: r.UnitsRequired,
		Urgency:       r.Urgency,
	}
}

// IsCritical flags requests for dashboards: urgency critical or more than
// threshold units. It never influences matching.
func (r *Request) IsCritical(threshold int) bool {
	return r.Urgency == matching.UrgencyCritical || r.UnitsRequired > threshold
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	c := *r
	if r.Coordinates != nil {
		coords := *r.Coordinates
		c.Coordinates = &coords
	}
	c.MatchedDonorIDs = append([]id.DonorID(nil), r.MatchedDonorIDs...)
	c.ApprovedAt = cloneTime(r.ApprovedAt)
	c.RejectedAt = cloneTime(r.RejectedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// ListFilter narrows request listings. Zero values mean no constraint.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}

// Statistics summarizes requests per status for the admin dashboard.
type Statistics struct {
	Total     int
	Pending   int
	Approved  int
	Rejected  int
	Completed int
	// Critical counts open (pending or approved) requests flagged by IsCritical.
	Critical int
}
