package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

type DonorModelSuite struct {
	suite.Suite
	now time.Time
}

func TestDonorModelSuite(t *testing.T) {
	suite.Run(t, new(DonorModelSuite))
}

func (s *DonorModelSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func (s *DonorModelSuite) newDonor() *Donor {
	d, err := NewDonor(id.NewDonorID(), "Rahim", "+8801711000000", matching.OPos, "Dhaka", "Mirpur", s.now)
	s.Require().NoError(err)
	return d
}

func (s *DonorModelSuite) TestNewDonor() {
	s.Run("new donors are active and trimmed", func() {
		d, err := NewDonor(id.NewDonorID(), "  Rahim ", " 017 ", matching.ANeg, " Dhaka", "Mirpur ", s.now)
		s.Require().NoError(err)
		s.True(d.IsActive)
		s.Equal("Rahim", d.Name)
		s.Equal("017", d.Phone)
		s.Equal("Dhaka", d.City)
		s.Equal("Mirpur", d.Area)
		s.Equal(s.now, d.CreatedAt)
	})

	s.Run("unknown blood group", func() {
		_, err := NewDonor(id.NewDonorID(), "Rahim", "017", matching.BloodGroup("C+"), "Dhaka", "Mirpur", s.now)
		s.ErrorIs(err, matching.ErrInvalidBloodGroup)
		s.Contains(err.Error(), `"C+"`)
		s.Empty(matching.ErrInvalidBloodGroup.Message)
	})

	s.Run("blank required fields", func() {
		cases := []struct{ name, phone, city, area string }{
			{"", "017", "Dhaka", "Mirpur"},
			{"Rahim", "  ", "Dhaka", "Mirpur"},
			{"Rahim", "017", "", "Mirpur"},
			{"Rahim", "017", "Dhaka", " "},
		}
		for _, c := range cases {
			_, err := NewDonor(id.NewDonorID(), c.name, c.phone, matching.OPos, c.city, c.area, s.now)
			s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation), "case %+v", c)
		}
	})
}

func (s *DonorModelSuite) TestActivationTransitions() {
	d := s.newDonor()
	later := s.now.Add(time.Hour)

	s.True(dErrors.HasCode(d.Reactivate(later), dErrors.CodeConflict))

	s.Require().NoError(d.Deactivate(later))
	s.False(d.IsActive)
	s.Equal(later, d.UpdatedAt)
	s.True(dErrors.HasCode(d.Deactivate(later), dErrors.CodeConflict))

	s.Require().NoError(d.Reactivate(later))
	s.True(d.IsActive)
}

func (s *DonorModelSuite) TestRecordDonation() {
	s.Run("future date rejected", func() {
		d := s.newDonor()
		err := d.RecordDonation(s.now.AddDate(0, 0, 1), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Nil(d.LastDonationDate)
	})

	s.Run("earlier today accepted", func() {
		d := s.newDonor()
		s.Require().NoError(d.RecordDonation(s.now.Add(-2*time.Hour), s.now))
		s.Require().NotNil(d.LastDonationDate)
	})

	s.Run("older than last record rejected", func() {
		d := s.newDonor()
		s.Require().NoError(d.RecordDonation(s.now.AddDate(0, 0, -10), s.now))
		err := d.RecordDonation(s.now.AddDate(0, 0, -20), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("zero date rejected", func() {
		d := s.newDonor()
		s.Error(d.RecordDonation(time.Time{}, s.now))
	})
}

func (s *DonorModelSuite) TestApply() {
	s.Run("updates only provided fields", func() {
		d := s.newDonor()
		city := "Gazipur"
		area := " Tongi "
		coords := &matching.Coordinates{Latitude: 23.9, Longitude: 90.4}
		s.Require().NoError(d.Apply(Patch{City: &city, Area: &area, Coordinates: coords}, s.now.Add(time.Minute)))
		s.Equal("Gazipur", d.City)
		s.Equal("Tongi", d.Area)
		s.Equal("Rahim", d.Name)
		s.Require().NotNil(d.Coordinates)
		s.NotSame(coords, d.Coordinates)
	})

	s.Run("blank required field leaves donor untouched", func() {
		d := s.newDonor()
		blank := " "
		err := d.Apply(Patch{Name: &blank}, s.now)
		s.Error(err)
		s.Equal("Rahim", d.Name)
	})

	s.Run("clear coordinates", func() {
		d := s.newDonor()
		d.Coordinates = &matching.Coordinates{Latitude: 1, Longitude: 2}
		s.Require().NoError(d.Apply(Patch{ClearCoordinates: true}, s.now))
		s.Nil(d.Coordinates)
	})
}

func (s *DonorModelSuite) TestAvailabilityAt() {
	s.Run("never donated", func() {
		a := s.newDonor().AvailabilityAt(s.now)
		s.True(a.Available)
		s.Nil(a.NextEligibleDate)
		s.Nil(a.DaysSinceLastDonation)
		s.Equal([]matching.BloodGroup{matching.APos, matching.BPos, matching.ABPos, matching.OPos}, a.CanDonateTo)
	})

	s.Run("cooling down", func() {
		d := s.newDonor()
		s.Require().NoError(d.RecordDonation(s.now.AddDate(0, 0, -30), s.now))
		a := d.AvailabilityAt(s.now)
		s.False(a.Available)
		s.Require().NotNil(a.DaysSinceLastDonation)
		s.Equal(30, *a.DaysSinceLastDonation)
		s.Require().NotNil(a.NextEligibleDate)
		s.Equal(time.Date(2025, 7, 31, 0, 0, 0, 0, time.UTC), *a.NextEligibleDate)
	})

	s.Run("exactly ninety days", func() {
		d := s.newDonor()
		s.Require().NoError(d.RecordDonation(s.now.AddDate(0, 0, -90), s.now))
		a := d.AvailabilityAt(s.now)
		s.True(a.Available)
		s.Nil(a.NextEligibleDate)
	})

	s.Run("inactive never available", func() {
		d := s.newDonor()
		s.Require().NoError(d.Deactivate(s.now))
		s.False(d.AvailabilityAt(s.now).Available)
	})
}

func TestClone_DoesNotShareState(t *testing.T) {
	last := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	d := &Donor{ID: id.NewDonorID(), LastDonationDate: &last, Coordinates: &matching.Coordinates{Latitude: 1}}

	c := d.Clone()
	c.Coordinates.Latitude = 9
	*c.LastDonationDate = last.AddDate(1, 0, 0)

	assert.Equal(t, 1.0, d.Coordinates.Latitude)
	assert.Equal(t, last, *d.LastDonationDate)
	assert.Nil(t, (*Donor)(nil).Clone())
}

func TestCandidate(t *testing.T) {
	d := &Donor{ID: id.NewDonorID(), Name: "N", Phone: "P", BloodGroup: matching.BNeg, City: "Dhaka", Area: "Uttara", IsActive: true}
	c := d.Candidate()
	assert.Equal(t, d.ID, c.ID)
	assert.Equal(t, "Uttara", c.Location.Area)
	assert.True(t, c.IsActive)
}

func TestListFilter_Matches(t *testing.T) {
	active := true
	d := &Donor{BloodGroup: matching.OPos, City: "Dhaka", IsActive: true}

	require.True(t, ListFilter{}.Matches(d))
	assert.True(t, ListFilter{City: " dhaka "}.Matches(d))
	assert.False(t, ListFilter{BloodGroup: matching.ONeg}.Matches(d))
	assert.True(t, ListFilter{Active: &active}.Matches(d))
	d.IsActive = false
	assert.False(t, ListFilter{Active: &active}.Matches(d))
}
