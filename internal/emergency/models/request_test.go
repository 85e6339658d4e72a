package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
)

type RequestModelSuite struct {
	suite.Suite
	now time.Time
}

func TestRequestModelSuite(t *testing.T) {
	suite.Run(t, new(RequestModelSuite))
}

func (s *RequestModelSuite) SetupTest() {
	s.now = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
}

func (s *RequestModelSuite) newRequest() *Request {
	r, err := NewRequest(id.NewEmergencyRequestID(), "Karim", "01711", matching.ONeg,
		"Dhaka", "Mirpur", 2, matching.UrgencyHigh, s.now)
	s.Require().NoError(err)
	return r
}

func (s *RequestModelSuite) TestNewRequest() {
	s.Run("starts pending with trimmed fields", func() {
		r, err := NewRequest(id.NewEmergencyRequestID(), " Karim ", "01711", matching.APos,
			" Dhaka", "Mirpur ", 3, matching.UrgencyCritical, s.now)
		s.Require().NoError(err)
		s.Equal(StatusPending, r.Status)
		s.Equal("Karim", r.RequesterName)
		s.Equal("Dhaka", r.City)
		s.Equal("Mirpur", r.Area)
		s.Empty(r.MatchedDonorIDs)
	})

	s.Run("invalid blood group", func() {
		_, err := NewRequest(id.NewEmergencyRequestID(), "Karim", "01711", matching.BloodGroup("O"),
			"Dhaka", "Mirpur", 1, matching.UrgencyHigh, s.now)
		s.ErrorIs(err, matching.ErrInvalidBloodGroup)
		s.Contains(err.Error(), `"O"`)
		s.Empty(matching.ErrInvalidBloodGroup.Message)
	})

	s.Run("unknown urgency", func() {
		_, err := NewRequest(id.NewEmergencyRequestID(), "Karim", "01711", matching.OPos,
			"Dhaka", "Mirpur", 1, matching.Urgency("whenever"), s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("missing locality", func() {
		_, err := NewRequest(id.NewEmergencyRequestID(), "Karim", "01711", matching.OPos,
			"Dhaka", "  ", 1, matching.UrgencyHigh, s.now)
		s.ErrorIs(err, matching.ErrInvalidLocation)
	})

	s.Run("non-positive units", func() {
		_, err := NewRequest(id.NewEmergencyRequestID(), "Karim", "01711", matching.OPos,
			"Dhaka", "Mirpur", 0, matching.UrgencyHigh, s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *RequestModelSuite) TestLifecycle() {
	s.Run("approve then complete", func() {
		r := s.newRequest()
		donors := []id.DonorID{id.NewDonorID(), id.NewDonorID()}
		later := s.now.Add(time.Hour)

		s.Require().NoError(r.Approve(donors, "admin-1", later))
		s.Equal(StatusApproved, r.Status)
		s.Equal(donors, r.MatchedDonorIDs)
		s.Equal("admin-1", r.ReviewedBy)
		s.Equal(later, *r.ApprovedAt)

		donors[0] = id.NewDonorID()
		s.NotEqual(donors[0], r.MatchedDonorIDs[0], "matches are copied")

		s.Require().NoError(r.Complete(later.Add(time.Hour)))
		s.Equal(StatusCompleted, r.Status)
		s.NotNil(r.CompletedAt)
	})

	s.Run("reject keeps reason", func() {
		r := s.newRequest()
		s.Require().NoError(r.Reject("  duplicate ", "admin-1", s.now))
		s.Equal(StatusRejected, r.Status)
		s.Equal("duplicate", r.RejectionReason)
		s.NotNil(r.RejectedAt)
	})

	s.Run("illegal transitions", func() {
		r := s.newRequest()
		err := r.Complete(s.now)
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
		s.Equal(StatusPending, r.Status)

		s.Require().NoError(r.Reject("", "admin-1", s.now))
		s.True(dErrors.HasCode(r.Approve(nil, "admin-1", s.now), dErrors.CodeInvariantViolation))
		s.True(dErrors.HasCode(r.Complete(s.now), dErrors.CodeInvariantViolation))
	})

	s.Run("approved requests cannot be approved again", func() {
		r := s.newRequest()
		s.Require().NoError(r.Approve(nil, "admin-1", s.now))
		s.True(dErrors.HasCode(r.Approve(nil, "admin-1", s.now), dErrors.CodeInvariantViolation))
		s.True(dErrors.HasCode(r.Reject("late", "admin-1", s.now), dErrors.CodeInvariantViolation))
	})
}

func (s *RequestModelSuite) TestEnsureStatus() {
	r := s.newRequest()
	s.NoError(r.EnsureStatus(StatusPending))
	s.True(dErrors.HasCode(r.EnsureStatus(StatusApproved), dErrors.CodeInvariantViolation))
}

func (s *RequestModelSuite) TestParseStatus() {
	st, err := ParseStatus("approved")
	s.Require().NoError(err)
	s.Equal(StatusApproved, st)

	_, err = ParseStatus("Approved")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *RequestModelSuite) TestIsCritical() {
	r := s.newRequest()
	s.False(r.IsCritical(30))

	r.UnitsRequired = 31
	s.True(r.IsCritical(30))

	r.UnitsRequired = 30
	s.False(r.IsCritical(30))

	r.Urgency = matching.UrgencyCritical
	s.True(r.IsCritical(30))
}

func (s *RequestModelSuite) TestMatchRequest() {
	r := s.newRequest()
	r.Coordinates = &matching.Coordinates{Latitude: 23.8, Longitude: 90.36}

	mr := r.MatchRequest()
	s.Equal(matching.ONeg, mr.RequiredBloodGroup)
	s.Equal("Dhaka", mr.Location.City)
	s.Equal("Mirpur", mr.Location.Area)
	s.Equal(r.Coordinates, mr.Location.Coordinates)
	s.Equal(2, mr.UnitsRequired)
}

func (s *RequestModelSuite) TestCloneIsDeep() {
	r := s.newRequest()
	r.Coordinates = &matching.Coordinates{Latitude: 1, Longitude: 2}
	s.Require().NoError(r.Approve([]id.DonorID{id.NewDonorID()}, "admin", s.now))

	c := r.Clone()
	c.Coordinates.Latitude = 9
	c.MatchedDonorIDs[0] = id.NewDonorID()
	*c.ApprovedAt = s.now.Add(time.Hour)

	s.Equal(1.0, r.Coordinates.Latitude)
	s.NotEqual(c.MatchedDonorIDs[0], r.MatchedDonorIDs[0])
	s.Equal(s.now, *r.ApprovedAt)
}
