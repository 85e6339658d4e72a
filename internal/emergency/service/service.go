package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	emetrics "bloodlink/internal/emergency/metrics"
	"bloodlink/internal/emergency/models"
	"bloodlink/internal/location"
	"bloodlink/internal/matching"
	"bloodlink/internal/platform/tracer"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/audit"
	"bloodlink/pkg/platform/keylock"
	adminmw "bloodlink/pkg/platform/middleware/admin"
	"bloodlink/pkg/platform/privacy"
	"bloodlink/pkg/platform/sentinel"
	"bloodlink/pkg/requestcontext"
)

// Store is the emergency request repository contract.
type Store interface {
	Create(ctx context.Context, req *models.Request) error
	Update(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, requestID id.EmergencyRequestID) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error)
	Statistics(ctx context.Context, criticalUnits int) (*models.Statistics, error)
}

// DonorDirectory supplies active candidate donors for the given groups.
type DonorDirectory interface {
	FindCandidates(ctx context.Context, groups []matching.BloodGroup) ([]matching.Donor, error)
}

const (
	defaultMatchTimeout      = 5 * time.Second
	defaultCriticalThreshold = 30
)

// Service owns the emergency request lifecycle and donor matching.
type Service struct {
	requests          Store
	donors            DonorDirectory
	resolver          location.Resolver
	tracer            tracer.Tracer
	locks             *keylock.Striped
	logger            *slog.Logger
	auditLogger       *audit.Logger
	metrics           *emetrics.Metrics
	maxResults        int
	matchTimeout      time.Duration
	criticalThreshold int
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

func WithMetrics(m *emetrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithResolver enables coordinate lookup for requests created without them.
func WithResolver(r location.Resolver) Option {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithMaxResults caps matches per approval and the default search limit. 0 is unbounded.
func WithMaxResults(n int) Option {
	return func(s *Service) {
		s.maxResults = n
	}
}

// WithMatchTimeout bounds the candidate load and location lookup.
func WithMatchTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.matchTimeout = d
		}
	}
}

// WithCriticalThreshold sets the unit count above which a request is
// reported as critical in statistics.
func WithCriticalThreshold(units int) Option {
	return func(s *Service) {
		if units > 0 {
			s.criticalThreshold = units
		}
	}
}

func New(requests Store, donors DonorDirectory, opts ...Option) (*Service, error) {
	if requests == nil {
		return nil, errors.New("emergency request store is required")
	}
	if donors == nil {
		return nil, errors.New("donor directory is required")
	}
	s := &Service{
		requests:          requests,
		donors:            donors,
		locks:             keylock.New(),
		matchTimeout:      defaultMatchTimeout,
		criticalThreshold: defaultCriticalThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.tracer == nil {
		s.tracer = tracer.NewNoop()
	}
	return s, nil
}

// Create records a new pending request.
func (s *Service) Create(ctx context.Context, cmd *CreateCommand) (*models.Request, error) {
	if cmd == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "emergency request is required")
	}
	urgency := cmd.Urgency
	if urgency == "" {
		urgency = matching.UrgencyHigh
	}
	req, err := models.NewRequest(id.NewEmergencyRequestID(), cmd.RequesterName, cmd.ContactPhone,
		cmd.BloodGroup, cmd.City, cmd.Area, cmd.UnitsRequired, urgency, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	req.Hospital = cmd.Hospital
	if cmd.Coordinates != nil {
		c := *cmd.Coordinates
		req.Coordinates = &c
	}

	if err := s.requests.Create(ctx, req); err != nil {
		return nil, wrapRequestErr(err, "failed to create emergency request")
	}

	s.auditLogger.Log(ctx, audit.EventRequestCreated,
		"subject", req.ID.String(),
		"blood_group", string(req.BloodGroup),
		"city", req.City,
		"urgency", string(req.Urgency),
		"phone", privacy.MaskPhone(req.ContactPhone),
	)
	if req.IsCritical(s.criticalThreshold) {
		s.logger.WarnContext(ctx, "critical emergency request received",
			"request_id", requestcontext.RequestID(ctx),
			"emergency_request_id", req.ID.String(),
			"blood_group", string(req.BloodGroup),
			"units", req.UnitsRequired,
		)
	}
	s.countTransition("created")
	return req, nil
}

// Get returns a single request.
func (s *Service) Get(ctx context.Context, requestID id.EmergencyRequestID) (*models.Request, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request ID required")
	}
	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, wrapRequestErr(err, "failed to load emergency request")
	}
	return req, nil
}

// List returns requests, most urgent first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error) {
	if filter.Status != "" {
		if _, err := models.ParseStatus(string(filter.Status)); err != nil {
			return nil, err
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit and offset must be non-negative")
	}
	reqs, err := s.requests.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list emergency requests")
	}
	return reqs, nil
}

// Statistics summarizes requests per status for the admin dashboard.
func (s *Service) Statistics(ctx context.Context) (*models.Statistics, error) {
	stats, err := s.requests.Statistics(ctx, s.criticalThreshold)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to compute request statistics")
	}
	return stats, nil
}

// Approve matches donors to a pending request and moves it to approved.
// The matcher runs exactly once per approval; its ranked donor IDs are
// persisted with the request.
func (s *Service) Approve(ctx context.Context, requestID id.EmergencyRequestID) (result *ApprovalResult, err error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request ID required")
	}
	ctx, span := s.tracer.Start(ctx, "emergency.approve", tracer.String("emergency_request_id", requestID.String()))
	defer func() { span.End(err) }()

	err = s.locks.Do(requestID.String(), func() error {
		req, err := s.requests.FindByID(ctx, requestID)
		if err != nil {
			return wrapRequestErr(err, "failed to load emergency request")
		}
		if err := req.EnsureStatus(models.StatusPending); err != nil {
			return err
		}

		outcome, err := s.match(ctx, req.MatchRequest(), s.maxResults, matching.WithRequireLocality())
		if err != nil {
			return err
		}
		if req.Coordinates == nil && outcome.resolved != nil {
			req.Coordinates = outcome.resolved
		}

		donorIDs := make([]id.DonorID, len(outcome.result.Donors))
		for i, d := range outcome.result.Donors {
			donorIDs[i] = d.ID
		}
		if err := req.Approve(donorIDs, adminmw.ActorID(ctx), requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, req); err != nil {
			return wrapRequestErr(err, "failed to save emergency request")
		}

		result = &ApprovalResult{
			Request:    req,
			Matches:    outcome.result.Donors,
			Considered: outcome.result.Considered,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(tracer.Int("matched_donors", len(result.Matches)))
	s.auditLogger.Log(ctx, audit.EventRequestApproved,
		"subject", requestID.String(),
		"actor_id", adminmw.ActorID(ctx),
		"matched_donors", len(result.Matches),
	)
	if len(result.Matches) == 0 {
		s.logger.WarnContext(ctx, "emergency request approved without matching donors",
			"request_id", requestcontext.RequestID(ctx),
			"emergency_request_id", requestID.String(),
			"considered", result.Considered,
		)
	}
	s.countTransition("approved")
	return result, nil
}

// Reject closes a pending request with a reason.
func (s *Service) Reject(ctx context.Context, requestID id.EmergencyRequestID, reason string) (*models.Request, error) {
	req, err := s.mutate(ctx, requestID, func(r *models.Request) error {
		return r.Reject(reason, adminmw.ActorID(ctx), requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.EventRequestRejected,
		"subject", req.ID.String(),
		"actor_id", adminmw.ActorID(ctx),
		"reason", req.RejectionReason,
	)
	s.countTransition("rejected")
	return req, nil
}

// Complete closes an approved request.
func (s *Service) Complete(ctx context.Context, requestID id.EmergencyRequestID) (*models.Request, error) {
	req, err := s.mutate(ctx, requestID, func(r *models.Request) error {
		return r.Complete(requestcontext.Now(ctx))
	})
	if err != nil {
		return nil, err
	}
	s.auditLogger.Log(ctx, audit.EventRequestCompleted,
		"subject", req.ID.String(),
		"actor_id", adminmw.ActorID(ctx),
	)
	s.countTransition("completed")
	return req, nil
}

// SearchDonors ranks available donors for an ad-hoc query without creating a request.
func (s *Service) SearchDonors(ctx context.Context, q SearchQuery) (result *matching.Result, err error) {
	if _, err := matching.ParseBloodGroup(string(q.BloodGroup)); err != nil {
		return nil, err
	}
	if q.Limit < 0 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "limit must be non-negative")
	}
	limit := q.Limit
	if limit == 0 {
		limit = s.maxResults
	}

	ctx, span := s.tracer.Start(ctx, "emergency.search",
		tracer.String("blood_group", string(q.BloodGroup)),
		tracer.Int("limit", limit),
	)
	defer func() { span.End(err) }()

	outcome, err := s.match(ctx, matching.Request{
		RequiredBloodGroup: q.BloodGroup,
		Location:           matching.Location{City: q.City, Area: q.Area, Coordinates: q.Coordinates},
		UnitsRequired:      1,
		Urgency:            matching.UrgencyMedium,
	}, limit)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.EventDonorSearchServed,
		"blood_group", string(q.BloodGroup),
		"city", q.City,
		"area", q.Area,
		"results", len(outcome.result.Donors),
	)
	return outcome.result, nil
}

type matchOutcome struct {
	result   *matching.Result
	resolved *matching.Coordinates
}

// match loads candidates and resolves the request location concurrently under
// the match timeout, then ranks once. Location lookup is best effort.
func (s *Service) match(ctx context.Context, req matching.Request, limit int, opts ...matching.Option) (*matchOutcome, error) {
	started := time.Now()
	groups, err := matching.CompatibleDonors(req.RequiredBloodGroup)
	if err != nil {
		return nil, err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.matchTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(fetchCtx)

	var (
		candidates []matching.Donor
		resolved   *matching.Coordinates
	)
	g.Go(func() error {
		var err error
		candidates, err = s.donors.FindCandidates(gctx, groups)
		return err
	})
	if req.Location.Coordinates == nil && s.resolver != nil {
		g.Go(func() error {
			coords, err := s.resolver.Resolve(gctx, req.Location.City, req.Location.Area)
			if err != nil {
				s.logger.DebugContext(ctx, "request location not resolved",
					"error", err,
					"city", req.Location.City,
					"area", req.Location.Area,
				)
				return nil
			}
			resolved = coords
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.observeMatch("error", 0, started)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, &dErrors.Error{Code: dErrors.CodeTimeout, Message: "candidate lookup timed out", Err: err}
		}
		return nil, err
	}
	if resolved != nil {
		req.Location.Coordinates = resolved
	}

	_, span := s.tracer.Start(ctx, "matching.rank",
		tracer.Int("candidates", len(candidates)),
		tracer.Bool("has_coordinates", req.Location.Coordinates != nil),
	)
	opts = append(opts, matching.WithMaxResults(limit), matching.WithNow(requestcontext.Now(ctx)))
	result, err := matching.MatchDonorsForRequest(req, candidates, opts...)
	span.End(err)
	if err != nil {
		s.observeMatch("error", len(candidates), started)
		return nil, err
	}

	outcome := "matched"
	if result.Empty() {
		outcome = "empty"
	}
	s.observeMatch(outcome, result.Considered, started)
	return &matchOutcome{result: result, resolved: resolved}, nil
}

// mutate runs a read-modify-write on one request under its stripe lock.
func (s *Service) mutate(ctx context.Context, requestID id.EmergencyRequestID, fn func(*models.Request) error) (*models.Request, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request ID required")
	}
	var req *models.Request
	err := s.locks.Do(requestID.String(), func() error {
		r, err := s.requests.FindByID(ctx, requestID)
		if err != nil {
			return wrapRequestErr(err, "failed to load emergency request")
		}
		if err := fn(r); err != nil {
			return err
		}
		if err := s.requests.Update(ctx, r); err != nil {
			return wrapRequestErr(err, "failed to save emergency request")
		}
		req = r
		return nil
	})
	return req, err
}

func (s *Service) observeMatch(outcome string, considered int, started time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveMatch(outcome, considered, started)
	}
}

func (s *Service) countTransition(transition string) {
	if s.metrics != nil {
		s.metrics.IncrementTransition(transition)
	}
}

func wrapRequestErr(err error, msg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "emergency request not found")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "emergency request already exists")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}
