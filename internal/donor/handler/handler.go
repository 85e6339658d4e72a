package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/donor/models"
	"bloodlink/internal/donor/service"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Service defines the donor registry operations the HTTP layer needs.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Register(ctx context.Context, cmd *service.RegisterCommand) (*models.Donor, error)
	Get(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Donor, error)
	Update(ctx context.Context, donorID id.DonorID, patch models.Patch) (*models.Donor, error)
	Deactivate(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	Reactivate(ctx context.Context, donorID id.DonorID) (*models.Donor, error)
	RecordDonation(ctx context.Context, donorID id.DonorID, date time.Time) (*models.Donor, error)
	Availability(ctx context.Context, donorID id.DonorID) (*models.Availability, error)
	CountByGroup(ctx context.Context) (map[matching.BloodGroup]int, error)
}

// defaultListLimit caps public listings when the caller gives no limit.
const defaultListLimit = 50

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public donor routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/donors", h.HandleRegister)
	r.Get("/donors", h.HandleList)
	r.Get("/donors/{id}", h.HandleGet)
	r.Get("/donors/{id}/availability", h.HandleAvailability)
}

// RegisterAdmin mounts donor management routes. The caller wraps r with admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/donors", h.HandleAdminList)
	r.Get("/admin/donors/stats", h.HandleStats)
	r.Put("/admin/donors/{id}", h.HandleUpdate)
	r.Post("/admin/donors/{id}/deactivate", h.HandleDeactivate)
	r.Post("/admin/donors/{id}/reactivate", h.HandleReactivate)
	r.Post("/admin/donors/{id}/donations", h.HandleRecordDonation)
}

// HandleRegister registers a new donor.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterDonorRequest](w, r, h.logger)
	if !ok {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	donor, err := h.service.Register(ctx, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "register donor failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toDonorResponse(donor, false))
}

// HandleGet returns the public view of one donor.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := parseDonorID(w, r)
	if !ok {
		return
	}

	donor, err := h.service.Get(ctx, donorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get donor failed", "error", err, "request_id", requestID, "donor_id", donorID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDonorResponse(donor, true))
}

// HandleList returns active donors, optionally narrowed by blood group and city.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseListFilter(w, r, false)
	if !ok {
		return
	}
	active := true
	filter.Active = &active
	h.list(w, r, filter, true)
}

// HandleAdminList returns donors in any state with unmasked contact details.
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	filter, ok := h.parseListFilter(w, r, true)
	if !ok {
		return
	}
	h.list(w, r, filter, false)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, filter models.ListFilter, public bool) {
	ctx := r.Context()
	donors, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list donors failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDonorListResponse(donors, filter, public))
}

// HandleAvailability reports cooldown status for a donor.
func (h *Handler) HandleAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := parseDonorID(w, r)
	if !ok {
		return
	}

	availability, err := h.service.Availability(ctx, donorID)
	if err != nil {
		h.logger.ErrorContext(ctx, "donor availability failed", "error", err, "request_id", requestID, "donor_id", donorID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAvailabilityResponse(availability))
}

// HandleUpdate applies contact and location changes.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := parseDonorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateDonorRequest](w, r, h.logger)
	if !ok {
		return
	}

	donor, err := h.service.Update(ctx, donorID, req.ToPatch())
	if err != nil {
		h.logger.ErrorContext(ctx, "update donor failed", "error", err, "request_id", requestID, "donor_id", donorID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDonorResponse(donor, false))
}

// HandleDeactivate removes a donor from matching.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "deactivate donor failed", h.service.Deactivate)
}

// HandleReactivate returns a donor to matching.
func (h *Handler) HandleReactivate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "reactivate donor failed", h.service.Reactivate)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, failure string,
	fn func(context.Context, id.DonorID) (*models.Donor, error),
) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := parseDonorID(w, r)
	if !ok {
		return
	}

	donor, err := fn(ctx, donorID)
	if err != nil {
		h.logger.ErrorContext(ctx, failure, "error", err, "request_id", requestID, "donor_id", donorID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDonorResponse(donor, false))
}

// HandleRecordDonation stamps a donation date on the donor.
func (h *Handler) HandleRecordDonation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	donorID, ok := parseDonorID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[RecordDonationRequest](w, r, h.logger)
	if !ok {
		return
	}
	date, err := req.Date()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	donor, err := h.service.RecordDonation(ctx, donorID, date)
	if err != nil {
		h.logger.ErrorContext(ctx, "record donation failed", "error", err, "request_id", requestID, "donor_id", donorID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toDonorResponse(donor, false))
}

// HandleStats returns active donor counts per blood group.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.service.CountByGroup(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "donor stats failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toDonorStatsResponse(counts))
}

// parseListFilter reads blood_group, city, limit, offset and, for admins, active.
// blood_group must be one of the eight exact tokens; a literal '+' must be
// sent as %2B since '+' in a query string decodes to a space.
func (h *Handler) parseListFilter(w http.ResponseWriter, r *http.Request, allowActive bool) (models.ListFilter, bool) {
	q := r.URL.Query()
	var filter models.ListFilter

	if raw := q.Get("blood_group"); raw != "" {
		group, err := matching.ParseBloodGroup(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return filter, false
		}
		filter.BloodGroup = group
	}
	filter.City = q.Get("city")

	if allowActive {
		if raw := q.Get("active"); raw != "" {
			active, err := strconv.ParseBool(raw)
			if err != nil {
				httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "active must be true or false"))
				return filter, false
			}
			filter.Active = &active
		}
	}

	limit, err := httputil.QueryInt(r, "limit", defaultListLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return filter, false
	}
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return filter, false
	}
	filter.Limit, filter.Offset = limit, offset
	return filter, true
}

func parseDonorID(w http.ResponseWriter, r *http.Request) (id.DonorID, bool) {
	donorID, err := id.ParseDonorID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid donor id"))
		return id.DonorID{}, false
	}
	return donorID, true
}
