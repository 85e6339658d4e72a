package models

import (
	"strings"
	"time"

	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

// Donor is a registered blood donor.
type Donor struct {
	ID               id.DonorID
	Name             string
	Phone            string
	Email            string
	BloodGroup       matching.BloodGroup
	DateOfBirth      *time.Time
	Address          string
	City             string
	Area             string
	Coordinates      *matching.Coordinates
	LastDonationDate *time.Time
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// NewDonor builds an active donor. Name, phone, city and area must be
// non-blank and the blood group must be one of the eight known groups.
func NewDonor(donorID id.DonorID, name, phone string, group matching.BloodGroup, city, area string, now time.Time) (*Donor, error) {
	if _, err := matching.ParseBloodGroup(string(group)); err != nil {
		return nil, err
	}
	d := &Donor{
		ID:         donorID,
		Name:       strings.TrimSpace(name),
		Phone:      strings.TrimSpace(phone),
		BloodGroup: group,
		City:       strings.TrimSpace(city),
		Area:       strings.TrimSpace(area),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := d.checkRequired(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Donor) checkRequired() error {
	switch {
	case d.Name == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "donor name cannot be empty")
	case d.Phone == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "donor phone cannot be empty")
	case d.City == "" || d.Area == "":
		return dErrors.New(dErrors.CodeInvariantViolation, "donor city and area are required")
	}
	return nil
}

// Deactivate removes the donor from matching. Fails if already inactive.
func (d *Donor) Deactivate(now time.Time) error {
	if !d.IsActive {
		return dErrors.New(dErrors.CodeConflict, "donor is already inactive")
	}
	d.IsActive = false
	d.UpdatedAt = now
	return nil
}

// Reactivate returns the donor to matching. Fails if already active.
func (d *Donor) Reactivate(now time.Time) error {
	if d.IsActive {
		return dErrors.New(dErrors.CodeConflict, "donor is already active")
	}
	d.IsActive = true
	d.UpdatedAt = now
	return nil
}

// RecordDonation sets the last donation date. The date may not be in the
// future nor earlier than a donation already on record.
func (d *Donor) RecordDonation(date, now time.Time) error {
	if date.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "donation date is required")
	}
	if matching.DaysSince(date, now) < 0 {
		return dErrors.New(dErrors.CodeValidation, "donation date cannot be in the future")
	}
	if d.LastDonationDate != nil && date.Before(*d.LastDonationDate) {
		return dErrors.New(dErrors.CodeValidation, "donation date is earlier than the last recorded donation")
	}
	date = date.UTC()
	d.LastDonationDate = &date
	d.UpdatedAt = now
	return nil
}

// Apply overwrites contact and location fields set in p.
func (d *Donor) Apply(p Patch, now time.Time) error {
	next := *d
	if p.Name != nil {
		next.Name = strings.TrimSpace(*p.Name)
	}
	if p.Phone != nil {
		next.Phone = strings.TrimSpace(*p.Phone)
	}
	if p.Email != nil {
		next.Email = strings.TrimSpace(*p.Email)
	}
	if p.Address != nil {
		next.Address = strings.TrimSpace(*p.Address)
	}
	if p.City != nil {
		next.City = strings.TrimSpace(*p.City)
	}
	if p.Area != nil {
		next.Area = strings.TrimSpace(*p.Area)
	}
	if p.ClearCoordinates {
		next.Coordinates = nil
	} else if p.Coordinates != nil {
		c := *p.Coordinates
		next.Coordinates = &c
	}
	if err := next.checkRequired(); err != nil {
		return err
	}
	next.UpdatedAt = now
	*d = next
	return nil
}

// Patch lists optional field updates. Nil means unchanged.
type Patch struct {
	Name             *string
	Phone            *string
	Email            *string
	Address          *string
	City             *string
	Area             *string
	Coordinates      *matching.Coordinates
	ClearCoordinates bool
}

// Empty reports whether p changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Phone == nil && p.Email == nil && p.Address == nil &&
		p.City == nil && p.Area == nil && p.Coordinates == nil && !p.ClearCoordinates
}

// Candidate projects the donor into the shape the matcher reads.
func (d *Donor) Candidate() matching.Donor {
	return matching.Donor{
		ID:         d.ID,
		Name:       d.Name,
		Phone:      d.Phone,
		BloodGroup: d.BloodGroup,
		Location: matching.Location{
			City:        d.City,
			Area:        d.Area,
			Coordinates: d.Coordinates,
		},
		LastDonationDate: d.LastDonationDate,
		IsActive:         d.IsActive,
	}
}

// Clone returns a deep copy so stores never hand out shared pointers.
func (d *Donor) Clone() *Donor {
	if d == nil {
		return nil
	}
	c := *d
	if d.DateOfBirth != nil {
		dob := *d.DateOfBirth
		c.DateOfBirth = &dob
	}
	if d.LastDonationDate != nil {
		last := *d.LastDonationDate
		c.LastDonationDate = &last
	}
	if d.Coordinates != nil {
		coords := *d.Coordinates
		c.Coordinates = &coords
	}
	return &c
}

// Availability is the eligibility report for one donor at a point in time.
type Availability struct {
	DonorID               id.DonorID
	Available             bool
	IsActive              bool
	LastDonationDate      *time.Time
	DaysSinceLastDonation *int
	NextEligibleDate      *time.Time
	CanDonateTo           []matching.BloodGroup
}

// AvailabilityAt evaluates the cooldown rule for d at now.
// NextEligibleDate is set only while the donor is still cooling down.
func (d *Donor) AvailabilityAt(now time.Time) *Availability {
	recipients, _ := matching.CompatibleRecipients(d.BloodGroup) //nolint:errcheck // groups are validated on write
	a := &Availability{
		DonorID:          d.ID,
		Available:        matching.IsAvailable(d.Candidate(), now),
		IsActive:         d.IsActive,
		LastDonationDate: d.LastDonationDate,
		CanDonateTo:      recipients,
	}
	if d.LastDonationDate != nil {
		days := matching.DaysSince(*d.LastDonationDate, now)
		a.DaysSinceLastDonation = &days
		if days < matching.DonationCooldownDays {
			next := matching.NextEligibleDate(*d.LastDonationDate)
			a.NextEligibleDate = &next
		}
	}
	return a
}

// ListFilter narrows donor listings. Zero values mean no constraint.
type ListFilter struct {
	BloodGroup matching.BloodGroup
	City       string
	Active     *bool
	Limit      int
	Offset     int
}

// Matches reports whether d passes the filter, ignoring paging.
func (f ListFilter) Matches(d *Donor) bool {
	if f.BloodGroup != "" && d.BloodGroup != f.BloodGroup {
		return false
	}
	if f.City != "" && !strings.EqualFold(strings.TrimSpace(d.City), strings.TrimSpace(f.City)) {
		return false
	}
	if f.Active != nil && d.IsActive != *f.Active {
		return false
	}
	return true
}
