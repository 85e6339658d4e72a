package handler

import (
	"strings"
	"time"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	"bloodlink/internal/matching"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/validation"
)

// HTTP Request DTOs - contain JSON tags for API serialization.
// These are converted to service commands before processing.

type RegisterDonorRequest struct {
	Name             string   `json:"name" validate:"notblank,max=120"`
	Phone            string   `json:"phone" validate:"notblank,phone,max=32"`
	Email            string   `json:"email" validate:"omitempty,email,max=255"`
	BloodGroup       string   `json:"blood_group" validate:"required"`
	DateOfBirth      string   `json:"date_of_birth" validate:"omitempty,datetime=2006-01-02"`
	Address          string   `json:"address" validate:"max=255"`
	City             string   `json:"city" validate:"notblank,max=80"`
	Area             string   `json:"area" validate:"notblank,max=80"`
	Latitude         *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude        *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	LastDonationDate string   `json:"last_donation_date" validate:"omitempty,datetime=2006-01-02"`
}

func (r *RegisterDonorRequest) Normalize() {
	if r == nil {
		return
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.BloodGroup = strings.TrimSpace(r.BloodGroup)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.Area = strings.TrimSpace(r.Area)
}

// Validate checks field shapes first, then the blood group token.
func (r *RegisterDonorRequest) Validate() error {
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
func (r *RegisterDonorRequest) ToCommand() (*service.RegisterCommand, error) {
	group, err := matching.ParseBloodGroup(r.BloodGroup)
	if err != nil {
		return nil, err
	}
	dob, err := parseOptionalDate(r.DateOfBirth, "date_of_birth")
	if err != nil {
		return nil, err
	}
	last, err := parseOptionalDate(r.LastDonationDate, "last_donation_date")
	if err != nil {
		return nil, err
	}
	return &service.RegisterCommand{
		Name:             r.Name,
		Phone:            r.Phone,
		Email:            r.Email,
		BloodGroup:       group,
		DateOfBirth:      dob,
		Address:          r.Address,
		City:             r.City,
		Area:             r.Area,
		Coordinates:      coordinates(r.Latitude, r.Longitude),
		LastDonationDate: last,
	}, nil
}

// UpdateDonorRequest carries optional contact and location changes.
// Absent fields are left unchanged.
type UpdateDonorRequest struct {
	Name             *string  `json:"name" validate:"omitempty,max=120"`
	Phone            *string  `json:"phone" validate:"omitempty,phone,max=32"`
	Email            *string  `json:"email" validate:"omitempty,email,max=255"`
	Address          *string  `json:"address" validate:"omitempty,max=255"`
	City             *string  `json:"city" validate:"omitempty,max=80"`
	Area             *string  `json:"area" validate:"omitempty,max=80"`
	Latitude         *float64 `json:"latitude" validate:"required_with=Longitude,omitempty,latitude"`
	Longitude        *float64 `json:"longitude" validate:"required_with=Latitude,omitempty,longitude"`
	ClearCoordinates bool     `json:"clear_coordinates"`
}

func (r *UpdateDonorRequest) Normalize() {
	if r == nil {
		return
	}
	for _, f := range []*string{r.Name, r.Phone, r.Address, r.City, r.Area} {
		if f != nil {
			*f = strings.TrimSpace(*f)
		}
	}
	if r.Email != nil {
		*r.Email = strings.ToLower(strings.TrimSpace(*r.Email))
	}
}

func (r *UpdateDonorRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := validation.Validate(r); err != nil {
		return err
	}
	for field, v := range map[string]*string{"name": r.Name, "phone": r.Phone, "city": r.City, "area": r.Area} {
		if v != nil && *v == "" {
			return dErrors.New(dErrors.CodeValidation, field+" cannot be blank")
		}
	}
	if r.ClearCoordinates && r.Latitude != nil {
		return dErrors.New(dErrors.CodeValidation, "clear_coordinates cannot be combined with latitude/longitude")
	}
	return nil
}

func (r *UpdateDonorRequest) ToPatch() models.Patch {
	return models.Patch{
		Name:             r.Name,
		Phone:            r.Phone,
		Email:            r.Email,
		Address:          r.Address,
		City:             r.City,
		Area:             r.Area,
		Coordinates:      coordinates(r.Latitude, r.Longitude),
		ClearCoordinates: r.ClearCoordinates,
	}
}

type RecordDonationRequest struct {
	DonationDate string `json:"donation_date" validate:"required,datetime=2006-01-02"`
}

func (r *RecordDonationRequest) Normalize() {
	if r == nil {
		return
	}
	r.DonationDate = strings.TrimSpace(r.DonationDate)
}

func (r *RecordDonationRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	return validation.Validate(r)
}

func (r *RecordDonationRequest) Date() (time.Time, error) {
	d, err := parseOptionalDate(r.DonationDate, "donation_date")
	if err != nil {
		return time.Time{}, err
	}
	if d == nil {
		return time.Time{}, dErrors.New(dErrors.CodeValidation, "donation_date is required")
	}
	return *d, nil
}

func parseOptionalDate(s, field string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, field+" must be formatted YYYY-MM-DD")
	}
	return &t, nil
}

func coordinates(lat, lon *float64) *matching.Coordinates {
	if lat == nil || lon == nil {
		return nil
	}
	return &matching.Coordinates{Latitude: *lat, Longitude: *lon}
}
