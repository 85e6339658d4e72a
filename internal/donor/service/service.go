package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	donormetrics "bloodlink/internal/donor/metrics"
	"bloodlink/internal/donor/models"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/keylock"
	adminmw "bloodlink/pkg/platform/middleware/admin"
	"bloodlink/pkg/platform/privacy"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

// Store is the donor repository contract. Implementations return
// sentinel.ErrNotFound and sentinel.ErrAlreadyUsed; the service translates them.
type Store interface {
	Create(ctx context.Context, donor *models.Donor) error
	Update(ctx context.Context, donor *models.Donor) error
	FindByID(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Donor, error)
	FindCandidates(ctx context.Context, groups []matching.BloodGroup) ([]*models.Donor, error)
	CountByGroup(ctx context.Context) (map[matching.BloodGroup]int, error)
}

// Service owns the donor registry.
type Service struct {
	donors      Store
	locks       *keylock.Striped
	logger      *slog.Logger
	auditLogger *audit.Logger
	metrics     *donormetrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditLogger(l *audit.Logger) Option {
	return func(s *Service) {
		s.auditLogger = l
	}
}

func WithMetrics(m *donormetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(donors Store, opts ...Option) (*Service, error) {
	if donors == nil {
		return nil, errors.New("donor store is required")
	}
	s := &Service{donors: donors, locks: keylock.New()}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Register creates a new active donor.
func (s *Service) Register(ctx context.Context, cmd *RegisterCommand) (*models.Donor, error) {
	if cmd == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "registration is required")
	}
	now := requestcontext.Now(ctx)

	donor, err := models.NewDonor(id.NewDonorID(), cmd.Name, cmd.Phone, cmd.BloodGroup, cmd.City, cmd.Area, now)
	if err != nil {
		return nil, err
	}
	if cmd.DateOfBirth != nil {
		if cmd.DateOfBirth.After(now) {
			return nil, dErrors.New(dErrors.CodeValidation, "date of birth cannot be in the future")
		}
		if !id.IsOfDonorAge(*cmd.DateOfBirth, now) {
			return nil, dErrors.New(dErrors.CodeValidation, "donor must be at least 18 years old")
		}
		dob := cmd.DateOfBirth.UTC()
		donor.DateOfBirth = &dob
	}
	donor.Email = cmd.Email
	donor.Address = cmd.Address
	if cmd.Coordinates != nil {
		c := *cmd.Coordinates
		donor.Coordinates = &c
	}
	if cmd.LastDonationDate != nil {
		if err := donor.RecordDonation(*cmd.LastDonationDate, now); err != nil {
			return nil, err
		}
	}

	if err := s.donors.Create(ctx, donor); err != nil {
		return nil, wrapDonorErr(err, "failed to register donor")
	}

	s.auditLogger.Log(ctx, audit.EventDonorRegistered,
		"subject", donor.ID.String(),
		"blood_group", string(donor.BloodGroup),
		"city", donor.City,
		"phone", privacy.MaskPhone(donor.Phone),
	)
	if s.metrics != nil {
		s.metrics.IncrementRegistered(string(donor.BloodGroup))
	}
	return donor, nil
}

// Get returns a single donor.
func (s *Service) Get(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "donor ID required")
	}
	donor, err := s.donors.FindByID(ctx, donorID)
	if err != nil {
		return nil, wrapDonorErr(err, "failed to load donor")
	}
	return donor, nil
}

// List returns donors matching filter.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Donor, error) {
	if filter.BloodGroup != "" {
		if _, err := matching.ParseBloodGroup(string(filter.BloodGroup)); err != nil {
			return nil, err
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit and offset must be non-negative")
	}
	donors, err := s.donors.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list donors")
	}
	return donors, nil
}

// Update applies contact and location changes.
func (s *Service) Update(ctx context.Context, donorID id.DonorID, patch models.Patch) (*models.Donor, error) {
	if patch.Empty() {
		return nil, dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	donor, err := s.mutate(ctx, donorID, func(d *models.Donor) error {
		return d.Apply(patch, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.EventDonorUpdated,
		"subject", donor.ID.String(),
		"actor_id", adminmw.ActorID(ctx),
	)
	return donor, nil
}

// Deactivate hides the donor from matching.
func (s *Service) Deactivate(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	donor, err := s.mutate(ctx, donorID, func(d *models.Donor) error {
		return d.Deactivate(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.EventDonorDeactivated,
		"subject", donor.ID.String(),
		"actor_id", adminmw.ActorID(ctx),
	)
	s.countTransition("deactivated")
	return donor, nil
}

// Reactivate returns the donor to matching.
func (s *Service) Reactivate(ctx context.Context, donorID id.DonorID) (*models.Donor, error) {
	donor, err := s.mutate(ctx, donorID, func(d *models.Donor) error {
		return d.Reactivate(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.EventDonorReactivated,
		"subject", donor.ID.String(),
		"actor_id", adminmw.ActorID(ctx),
	)
	s.countTransition("reactivated")
	return donor, nil
}

// RecordDonation stamps the donor's last donation date.
func (s *Service) RecordDonation(ctx context.Context, donorID id.DonorID, date time.Time) (*models.Donor, error) {
	donor, err := s.mutate(ctx, donorID, func(d *models.Donor) error {
		return d.RecordDonation(date, requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.EventDonationRecorded,
		"subject", donor.ID.String(),
		"actor_id", adminmw.ActorID(ctx),
		"donation_date", date.UTC().Format(time.DateOnly),
	)
	if s.metrics != nil {
		s.metrics.IncrementDonations()
	}
	return donor, nil
}

// Availability reports whether the donor can give blood now and, if not, when.
func (s *Service) Availability(ctx context.Context, donorID id.DonorID) (*models.Availability, error) {
	donor, err := s.Get(ctx, donorID)
	if err != nil {
		return nil, err
	}
	return donor.AvailabilityAt(requestcontext.Now(ctx)), nil
}

// FindCandidates loads active donors of the given groups projected for the matcher.
func (s *Service) FindCandidates(ctx context.Context, groups []matching.BloodGroup) ([]matching.Donor, error) {
	for _, g := range groups {
		if _, err := matching.ParseBloodGroup(string(g)); err != nil {
			return nil, err
		}
	}
	donors, err := s.donors.FindCandidates(ctx, groups)
	if err != nil {
		s.logger.ErrorContext(ctx, "candidate lookup failed",
			"error", err,
			"groups", groups,
			"request_id", requestcontext.RequestID(ctx),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate donors")
	}
	out := make([]matching.Donor, len(donors))
	for i, d := range donors {
		out[i] = d.Candidate()
	}
	if s.metrics != nil {
		s.metrics.ObserveCandidates(len(out))
	}
	return out, nil
}

// CountByGroup returns active donor counts per blood group, including zeros.
func (s *Service) CountByGroup(ctx context.Context) (map[matching.BloodGroup]int, error) {
	counts, err := s.donors.CountByGroup(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count donors")
	}
	out := make(map[matching.BloodGroup]int, len(matching.AllBloodGroups()))
	for _, g := range matching.AllBloodGroups() {
		out[g] = counts[g]
	}
	return out, nil
}

// mutate runs a read-modify-write on one donor under its stripe lock.
func (s *Service) mutate(ctx context.Context, donorID id.DonorID, fn func(*models.Donor) error) (*models.Donor, error) {
	if donorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "donor ID required")
	}
	var donor *models.Donor
	err := s.locks.Do(donorID.String(), func() error {
		d, err := s.donors.FindByID(ctx, donorID)
		if err != nil {
			return wrapDonorErr(err, "failed to load donor")
		}
		if err := fn(d); err != nil {
			return err
		}
		if err := s.donors.Update(ctx, d); err != nil {
			return wrapDonorErr(err, "failed to save donor")
		}
		donor = d
		return nil
	})
	return donor, err
}

func (s *Service) countTransition(transition string) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(transition)
	}
}

func wrapDonorErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "donor not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "a donor with this phone number is already registered")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
