package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	"bloodlink/pkg/platform/sentinel"
)

type InMemorySuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	now   time.Time
}

func TestInMemorySuite(t *testing.T) {
	suite.Run(t, new(InMemorySuite))
}

func (s *InMemorySuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
}

func (s *InMemorySuite) seed(phone string, group matching.BloodGroup, city string, offset time.Duration) *models.Donor {
	d, err := models.NewDonor(id.NewDonorID(), "Donor "+phone, phone, group, city, "Central", s.now.Add(offset))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(s.ctx, d))
	return d
}

func (s *InMemorySuite) TestCreateRejectsDuplicatePhone() {
	s.seed("0171", matching.OPos, "Dhaka", 0)

	dup, err := models.NewDonor(id.NewDonorID(), "Other", " 0171 ", matching.APos, "Dhaka", "Mirpur", s.now)
	s.Require().NoError(err)
	s.ErrorIs(s.store.Create(s.ctx, dup), sentinel.ErrAlreadyUsed)
}

func (s *InMemorySuite) TestFindByIDReturnsCopy() {
	d := s.seed("0171", matching.OPos, "Dhaka", 0)

	got, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	got.Name = "mutated"

	again, err := s.store.FindByID(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.Name, again.Name)

	_, err = s.store.FindByID(s.ctx, id.NewDonorID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *InMemorySuite) TestUpdate() {
	a := s.seed("0171", matching.OPos, "Dhaka", 0)
	b := s.seed("0172", matching.OPos, "Dhaka", time.Second)

	s.Run("phone taken by another donor", func() {
		b.Phone = "0171"
		s.ErrorIs(s.store.Update(s.ctx, b), sentinel.ErrAlreadyUsed)
	})

	s.Run("phone change frees old number", func() {
		a.Phone = "0179"
		s.Require().NoError(s.store.Update(s.ctx, a))
		b.Phone = "0171"
		s.NoError(s.store.Update(s.ctx, b))
	})

	s.Run("unknown donor", func() {
		ghost := *a
		ghost.ID = id.NewDonorID()
		s.ErrorIs(s.store.Update(s.ctx, &ghost), sentinel.ErrNotFound)
	})
}

func (s *InMemorySuite) TestListFiltersAndPages() {
	first := s.seed("01", matching.OPos, "Dhaka", 0)
	s.seed("02", matching.ONeg, "Dhaka", time.Second)
	third := s.seed("03", matching.OPos, "Chattogram", 2*time.Second)
	fourth := s.seed("04", matching.OPos, "Dhaka", 3*time.Second)
	s.Require().NoError(fourth.Deactivate(s.now))
	s.Require().NoError(s.store.Update(s.ctx, fourth))

	all, err := s.store.List(s.ctx, models.ListFilter{})
	s.Require().NoError(err)
	s.Len(all, 4)
	s.Equal(first.ID, all[0].ID)

	opos, err := s.store.List(s.ctx, models.ListFilter{BloodGroup: matching.OPos})
	s.Require().NoError(err)
	s.Len(opos, 3)

	active := true
	dhakaActive, err := s.store.List(s.ctx, models.ListFilter{City: "dhaka", Active: &active})
	s.Require().NoError(err)
	s.Len(dhakaActive, 2)

	paged, err := s.store.List(s.ctx, models.ListFilter{Limit: 1, Offset: 2})
	s.Require().NoError(err)
	s.Require().Len(paged, 1)
	s.Equal(third.ID, paged[0].ID)

	beyond, err := s.store.List(s.ctx, models.ListFilter{Offset: 10})
	s.Require().NoError(err)
	s.NotNil(beyond)
	s.Empty(beyond)
}

func (s *InMemorySuite) TestFindCandidatesSkipsInactiveAndOtherGroups() {
	s.seed("01", matching.OPos, "Dhaka", 0)
	s.seed("02", matching.ONeg, "Dhaka", 0)
	s.seed("03", matching.APos, "Dhaka", 0)
	inactive := s.seed("04", matching.ONeg, "Dhaka", 0)
	s.Require().NoError(inactive.Deactivate(s.now))
	s.Require().NoError(s.store.Update(s.ctx, inactive))

	got, err := s.store.FindCandidates(s.ctx, []matching.BloodGroup{matching.ONeg, matching.OPos})
	s.Require().NoError(err)
	s.Len(got, 2)
	for _, d := range got {
		s.True(d.IsActive)
		s.NotEqual(matching.APos, d.BloodGroup)
	}

	none, err := s.store.FindCandidates(s.ctx, nil)
	s.Require().NoError(err)
	s.NotNil(none)
	s.Empty(none)
}

func (s *InMemorySuite) TestCountByGroup() {
	s.seed("01", matching.OPos, "Dhaka", 0)
	s.seed("02", matching.OPos, "Dhaka", 0)
	s.seed("03", matching.ABNeg, "Dhaka", 0)

	counts, err := s.store.CountByGroup(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, counts[matching.OPos])
	s.Equal(1, counts[matching.ABNeg])
	s.Equal(0, counts[matching.ONeg])
}
