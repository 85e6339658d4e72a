package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type AvailabilitySuite struct {
	suite.Suite
	now time.Time
}

func TestAvailabilitySuite(t *testing.T) {
	suite.Run(t, new(AvailabilitySuite))
}

func (s *AvailabilitySuite) SetupTest() {
	s.now = time.Date(2025, 6, 14, 15, 30, 0, 0, time.UTC)
}

func (s *AvailabilitySuite) donatedDaysAgo(days int, active bool) Donor {
	last := s.now.AddDate(0, 0, -days)
	return Donor{BloodGroup: OPos, IsActive: active, LastDonationDate: &last}
}

func (s *AvailabilitySuite) TestNeverDonated() {
	s.True(IsAvailable(Donor{IsActive: true}, s.now))
}

func (s *AvailabilitySuite) TestCooldownBoundary() {
	for days := 0; days < DonationCooldownDays; days++ {
		s.False(IsAvailable(s.donatedDaysAgo(days, true), s.now), "%d days ago", days)
	}
	s.True(IsAvailable(s.donatedDaysAgo(DonationCooldownDays, true), s.now), "exactly 90 days is available")
	s.True(IsAvailable(s.donatedDaysAgo(DonationCooldownDays+1, true), s.now))
	s.True(IsAvailable(s.donatedDaysAgo(400, true), s.now))
}

func (s *AvailabilitySuite) TestCalendarDaysIgnoreTimeOfDay() {
	lateEvening := time.Date(2025, 3, 16, 23, 59, 0, 0, time.UTC)
	earlyMorning := time.Date(2025, 6, 14, 0, 1, 0, 0, time.UTC)
	s.Equal(90, DaysSince(lateEvening, earlyMorning))
	s.True(IsAvailable(Donor{IsActive: true, LastDonationDate: &lateEvening}, earlyMorning))

	dayBefore := time.Date(2025, 6, 13, 23, 59, 0, 0, time.UTC)
	s.False(IsAvailable(Donor{IsActive: true, LastDonationDate: &lateEvening}, dayBefore))
}

func (s *AvailabilitySuite) TestZonesAreNormalizedToUTC() {
	dhaka := time.FixedZone("BST", 6*60*60)
	// 2025-03-17 01:00 in Dhaka is still 2025-03-16 in UTC.
	last := time.Date(2025, 3, 17, 1, 0, 0, 0, dhaka)
	s.Equal(90, DaysSince(last, s.now))
}

func (s *AvailabilitySuite) TestDeactivationDominates() {
	s.False(IsAvailable(Donor{IsActive: false}, s.now))
	s.False(IsAvailable(s.donatedDaysAgo(10, false), s.now))
	s.False(IsAvailable(s.donatedDaysAgo(1000, false), s.now))
}

func (s *AvailabilitySuite) TestFutureDonationIsNotAvailable() {
	s.False(IsAvailable(s.donatedDaysAgo(-3, true), s.now))
}

func (s *AvailabilitySuite) TestNextEligibleDate() {
	last := time.Date(2025, 3, 16, 18, 45, 0, 0, time.UTC)
	next := NextEligibleDate(last)
	s.Equal(time.Date(2025, 6, 14, 0, 0, 0, 0, time.UTC), next)
	s.True(IsAvailable(Donor{IsActive: true, LastDonationDate: &last}, next))
	s.False(IsAvailable(Donor{IsActive: true, LastDonationDate: &last}, next.Add(-time.Nanosecond)))
}
