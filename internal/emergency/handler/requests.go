package handler

import (
	"strings"

	"bloodlink/internal/emergency/service"
	"bloodlink/internal/matching"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/validation"
)

// HTTP Request DTOs - contain JSON tags for API serialization.
// These are converted to service commands before processing.

type CreateEmergencyRequest struct {
	RequesterName string   `json:"requester_name" validate:"notblank,max=120"`
	ContactPhone  string   `json:"contact_phone" validate:"notblank,phone,max=32"`
	Hospital      string   `json:"hospital" validate:"max=160"`
	BloodGroup    string   `json:"blood_group" validate:"required"`
	City          string   `json:"city" validate:"notblank,max=80"`
	Area          string   `json:"area" validate:"notblank,max=80"`
	Latitude      *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude     *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	UnitsRequired int      `json:"units_required" validate:"required,min=1,max=100"`
	Urgency       string   `json:"urgency" validate:"omitempty,oneof=critical high medium"`
}

func (r *CreateEmergencyRequest) Normalize() {
	if r == nil {
		return
	}
	r.RequesterName = strings.TrimSpace(r.RequesterName)
	r.ContactPhone = strings.TrimSpace(r.ContactPhone)
	r.Hospital = strings.TrimSpace(r.Hospital)
	r.BloodGroup = strings.TrimSpace(r.BloodGroup)
	r.City = strings.TrimSpace(r.City)
	r.Area = strings.TrimSpace(r.Area)
	r.Urgency = strings.ToLower(strings.TrimSpace(r.Urgency))
}

// Validate checks field shapes first, then the blood group token.
func (r *CreateEmergencyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	_, err := matching.ParseBloodGroup(r.BloodGroup)
	return err
}

// ToCommand converts a validated request. Call Validate first.
func (r *CreateEmergencyRequest) ToCommand() (*service.CreateCommand, error) {
	group, err := matching.ParseBloodGroup(r.BloodGroup)
	if err != nil {
		return nil, err
	}
	cmd := &service.CreateCommand{
		RequesterName: r.RequesterName,
		ContactPhone:  r.ContactPhone,
		Hospital:      r.Hospital,
		BloodGroup:    group,
		City:          r.City,
		Area:          r.Area,
		UnitsRequired: r.UnitsRequired,
	}
	if r.Urgency != "" {
		urgency, err := matching.ParseUrgency(r.Urgency)
		if err != nil {
			return nil, err
		}
		cmd.Urgency = urgency
	}
	if r.Latitude != nil && r.Longitude != nil {
		cmd.Coordinates = &matching.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return cmd, nil
}

type RejectRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

func (r *RejectRequest) Normalize() {
	if r == nil {
		return
	}
	r.Reason = strings.TrimSpace(r.Reason)
}

func (r *RejectRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}
