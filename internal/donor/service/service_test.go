package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	donormetrics "bloodlink/internal/donor/metrics"
	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/store"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	auditmemory "bloodlink/pkg/platform/audit/store/memory"
	adminmw "bloodlink/pkg/platform/middleware/admin"
	"bloodlink/pkg/requestcontext"
	"bloodlink/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	store   *store.InMemory
	events  *auditmemory.Store
	metrics *donormetrics.Metrics
	service *Service
	now     time.Time
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.events = auditmemory.New()
	s.metrics = donormetrics.NewWith(prometheus.NewRegistry())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	svc, err := New(s.store,
		WithLogger(logger),
		WithAuditLogger(audit.NewLogger(logger, s.events)),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	s.service = svc
	s.now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *ServiceSuite) register(phone string, group matching.BloodGroup) *models.Donor {
	d, err := s.service.Register(s.ctx, &RegisterCommand{
		Name:       "Donor " + phone,
		Phone:      phone,
		BloodGroup: group,
		City:       "Dhaka",
		Area:       "Mirpur",
	})
	s.Require().NoError(err)
	return d
}

func (s *ServiceSuite) TestNewRequiresStore() {
	_, err := New(nil)
	s.ErrorContains(err, "donor store is required")
}

func (s *ServiceSuite) TestRegister() {
	s.Run("valid donor is active and audited", func() {
		dob := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
		d, err := s.service.Register(s.ctx, &RegisterCommand{
			Name:        "Rahim",
			Phone:       "+8801711000001",
			Email:       "rahim@example.com",
			BloodGroup:  matching.ONeg,
			DateOfBirth: &dob,
			City:        "Dhaka",
			Area:        "Mirpur",
			Coordinates: &matching.Coordinates{Latitude: 23.8, Longitude: 90.36},
		})
		s.Require().NoError(err)
		s.True(d.IsActive)
		s.Equal(s.now, d.CreatedAt)
		s.Equal("rahim@example.com", d.Email)

		events, err := s.events.ListBySubject(s.ctx, d.ID.String())
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(string(audit.EventDonorRegistered), events[0].Action)
		s.InDelta(1, promtestutil.ToFloat64(s.metrics.DonorsRegistered.WithLabelValues("O-")), 0)
	})

	s.Run("duplicate phone is a conflict", func() {
		s.register("0180", matching.APos)
		_, err := s.service.Register(s.ctx, &RegisterCommand{
			Name: "Other", Phone: "0180", BloodGroup: matching.APos, City: "Dhaka", Area: "Uttara",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("underage donor rejected", func() {
		dob := s.now.AddDate(-17, 0, 0)
		_, err := s.service.Register(s.ctx, &RegisterCommand{
			Name: "Young", Phone: "0181", BloodGroup: matching.APos, City: "Dhaka", Area: "Uttara", DateOfBirth: &dob,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid blood group", func() {
		_, err := s.service.Register(s.ctx, &RegisterCommand{
			Name: "X", Phone: "0182", BloodGroup: "Z+", City: "Dhaka", Area: "Uttara",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidBloodGroup))
	})

	s.Run("future last donation rejected", func() {
		future := s.now.AddDate(0, 0, 3)
		_, err := s.service.Register(s.ctx, &RegisterCommand{
			Name: "X", Phone: "0183", BloodGroup: matching.BPos, City: "Dhaka", Area: "Uttara", LastDonationDate: &future,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("nil command", func() {
		_, err := s.service.Register(s.ctx, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ServiceSuite) TestGet() {
	d := s.register("0171", matching.OPos)

	got, err := s.service.Get(s.ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(d.ID, got.ID)

	_, err = s.service.Get(s.ctx, id.NewDonorID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	_, err = s.service.Get(s.ctx, id.DonorID{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestList() {
	s.register("01", matching.OPos)
	s.register("02", matching.ONeg)

	got, err := s.service.List(s.ctx, models.ListFilter{BloodGroup: matching.ONeg})
	s.Require().NoError(err)
	s.Len(got, 1)

	_, err = s.service.List(s.ctx, models.ListFilter{BloodGroup: "o-"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidBloodGroup))

	_, err = s.service.List(s.ctx, models.ListFilter{Limit: -1})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestDeactivateReactivate() {
	d := s.register("0171", matching.OPos)
	adminCtx := adminmw.WithActorID(s.ctx, "ops-1")

	got, err := s.service.Deactivate(adminCtx, d.ID)
	s.Require().NoError(err)
	s.False(got.IsActive)

	_, err = s.service.Deactivate(adminCtx, d.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	got, err = s.service.Reactivate(adminCtx, d.ID)
	s.Require().NoError(err)
	s.True(got.IsActive)

	_, err = s.service.Reactivate(adminCtx, id.NewDonorID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	events, err := s.events.ListBySubject(s.ctx, d.ID.String())
	s.Require().NoError(err)
	s.Require().Len(events, 3)
	s.Equal("ops-1", events[0].ActorID)
	s.InDelta(1, promtestutil.ToFloat64(s.metrics.StatusTransitions.WithLabelValues("deactivated")), 0)
}

func (s *ServiceSuite) TestUpdate() {
	a := s.register("0171", matching.OPos)
	s.register("0172", matching.OPos)

	s.Run("moves donor", func() {
		city := "Gazipur"
		got, err := s.service.Update(s.ctx, a.ID, models.Patch{City: &city})
		s.Require().NoError(err)
		s.Equal("Gazipur", got.City)
	})

	s.Run("phone clash", func() {
		phone := "0172"
		_, err := s.service.Update(s.ctx, a.ID, models.Patch{Phone: &phone})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("empty patch", func() {
		_, err := s.service.Update(s.ctx, a.ID, models.Patch{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestRecordDonationAndAvailability() {
	d := s.register("0171", matching.OPos)

	_, err := s.service.RecordDonation(s.ctx, d.ID, s.now.AddDate(0, 0, -10))
	s.Require().NoError(err)

	a, err := s.service.Availability(s.ctx, d.ID)
	s.Require().NoError(err)
	s.False(a.Available)
	s.Require().NotNil(a.NextEligibleDate)
	s.Equal(time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC), *a.NextEligibleDate)

	later := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, 80))
	a, err = s.service.Availability(later, d.ID)
	s.Require().NoError(err)
	s.True(a.Available)
	s.Nil(a.NextEligibleDate)

	_, err = s.service.RecordDonation(s.ctx, d.ID, s.now.AddDate(0, 0, 1))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ServiceSuite) TestFindCandidates() {
	s.register("01", matching.OPos)
	s.register("02", matching.ONeg)
	s.register("03", matching.ABPos)
	inactive := s.register("04", matching.ONeg)
	_, err := s.service.Deactivate(s.ctx, inactive.ID)
	s.Require().NoError(err)

	got, err := s.service.FindCandidates(s.ctx, []matching.BloodGroup{matching.ONeg, matching.OPos})
	s.Require().NoError(err)
	s.Len(got, 2)
	for _, c := range got {
		s.True(c.IsActive)
	}

	_, err = s.service.FindCandidates(s.ctx, []matching.BloodGroup{"O"})
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidBloodGroup))
}

func (s *ServiceSuite) TestCountByGroupIncludesZeros() {
	s.register("01", matching.OPos)

	counts, err := s.service.CountByGroup(s.ctx)
	s.Require().NoError(err)
	s.Len(counts, 8)
	s.Equal(1, counts[matching.OPos])
	s.Equal(0, counts[matching.ABNeg])
}

func (s *ServiceSuite) TestConcurrentTransitionsSerialize() {
	d := s.register("0171", matching.OPos)

	result := testutil.RunConcurrent(20, func(int) error {
		_, err := s.service.Deactivate(s.ctx, d.ID)
		return err
	})

	s.Equal(int32(1), result.Successes)
	s.Equal(int32(19), result.Conflicts)
}

type failingStore struct {
	*store.InMemory
}

func (f *failingStore) FindCandidates(context.Context, []matching.BloodGroup) ([]*models.Donor, error) {
	return nil, errors.New("connection reset")
}

func (s *ServiceSuite) TestStoreFailureIsInternal() {
	svc, err := New(&failingStore{InMemory: store.NewInMemory()})
	s.Require().NoError(err)

	_, err = svc.FindCandidates(s.ctx, []matching.BloodGroup{matching.OPos})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
