package seeder

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	donormodels "bloodlink/internal/donor/models"
	donorservice "bloodlink/internal/donor/service"
	donorstore "bloodlink/internal/donor/store"
	emergencymodels "bloodlink/internal/emergency/models"
	emergencyservice "bloodlink/internal/emergency/service"
	emergencystore "bloodlink/internal/emergency/store"
	"bloodlink/internal/location"
	"bloodlink/internal/matching"
	"bloodlink/pkg/requestcontext"
)

type SeederSuite struct {
	suite.Suite
	donors    *donorservice.Service
	requests  *emergencyservice.Service
	gazetteer *location.StaticResolver
	seeder    *Seeder
	ctx       context.Context
}

func TestSeederSuite(t *testing.T) {
	suite.Run(t, new(SeederSuite))
}

func (s *SeederSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	donors, err := donorservice.New(donorstore.NewInMemory(), donorservice.WithLogger(logger))
	s.Require().NoError(err)
	s.gazetteer = location.NewStatic()
	requests, err := emergencyservice.New(emergencystore.NewInMemory(), donors,
		emergencyservice.WithLogger(logger),
		emergencyservice.WithResolver(s.gazetteer),
	)
	s.Require().NoError(err)
	s.donors, s.requests = donors, requests
	s.seeder = New(donors, requests, s.gazetteer, logger)
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC))
}

func (s *SeederSuite) TestSeedAll() {
	s.Require().NoError(s.seeder.SeedAll(s.ctx))

	s.Equal(len(Places), s.gazetteer.Len())

	donors, err := s.donors.List(s.ctx, donormodels.ListFilter{})
	s.Require().NoError(err)
	s.Len(donors, 10)
	for _, d := range donors {
		s.NotNil(d.Coordinates, "every demo donor sits in a gazetteer place")
	}

	reqs, err := s.requests.List(s.ctx, emergencymodels.ListFilter{Status: emergencymodels.StatusPending})
	s.Require().NoError(err)
	s.Len(reqs, 3)
	s.Equal(matching.UrgencyCritical, reqs[0].Urgency)
}

func (s *SeederSuite) TestSeededDataMatches() {
	s.Require().NoError(s.seeder.SeedAll(s.ctx))

	result, err := s.requests.SearchDonors(s.ctx, emergencyservice.SearchQuery{
		BloodGroup: matching.ONeg,
		City:       "Dhaka",
		Area:       "Mirpur",
	})
	s.Require().NoError(err)
	// Karima (120 days) is eligible; Mahmud (60 days) is still cooling down.
	s.Require().Len(result.Donors, 1)
	s.Equal("Karima Begum", result.Donors[0].Name)
}

func (s *SeederSuite) TestSeedingTwiceConflicts() {
	s.Require().NoError(s.seeder.SeedAll(s.ctx))
	s.Error(s.seeder.SeedAll(s.ctx))
}

func (s *SeederSuite) TestOptionalCollaborators() {
	seeder := New(s.donors, nil, nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	s.Require().NoError(seeder.SeedAll(s.ctx))
	s.Zero(s.gazetteer.Len())
}
