package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bloodlink/internal/emergency/models"
	"bloodlink/internal/emergency/service"
	"bloodlink/internal/matching"
	id "bloodlink/pkg/domain"
	dErrors "bloodlink/pkg/domain-errors"
	"bloodlink/pkg/platform/httputil"
	"bloodlink/pkg/requestcontext"
)

// Service defines the emergency request operations the HTTP layer needs.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Create(ctx context.Context, cmd *service.CreateCommand) (*models.Request, error)
	Get(ctx context.Context, requestID id.EmergencyRequestID) (*models.Request, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Request, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
	Approve(ctx context.Context, requestID id.EmergencyRequestID) (*service.ApprovalResult, error)
	Reject(ctx context.Context, requestID id.EmergencyRequestID, reason string) (*models.Request, error)
	Complete(ctx context.Context, requestID id.EmergencyRequestID) (*models.Request, error)
	SearchDonors(ctx context.Context, q service.SearchQuery) (*matching.Result, error)
}

const defaultListLimit = 50

type Handler struct {
	service       Service
	criticalUnits int
	logger        *slog.Logger
}

// New builds the handler. criticalUnits only drives the is_critical flag in responses.
func New(service Service, criticalUnits int, logger *slog.Logger) *Handler {
	return &Handler{service: service, criticalUnits: criticalUnits, logger: logger}
}

// Register mounts the public request and search routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/requests/create", h.HandleCreate)
	r.Get("/requests/{id}", h.HandleGet)
	r.Get("/donors/search", h.HandleSearch)
}

// RegisterAdmin mounts the review routes. The caller wraps r with admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/requests", h.HandleList)
	r.Get("/admin/requests/stats", h.HandleStats)
	r.Put("/admin/requests/{id}/approve", h.HandleApprove)
	r.Put("/admin/requests/{id}/reject", h.HandleReject)
	r.Put("/admin/requests/{id}/complete", h.HandleComplete)
}

// HandleCreate submits a new emergency request.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateEmergencyRequest](w, r, h.logger)
	if !ok {
		return
	}
	cmd, err := req.ToCommand()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	created, err := h.service.Create(ctx, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "create emergency request failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toRequestResponse(created, h.criticalUnits, false))
}

// HandleGet returns the public view of one request.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	emergencyID, ok := parseRequestID(w, r)
	if !ok {
		return
	}

	req, err := h.service.Get(ctx, emergencyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get emergency request failed", "error", err,
			"request_id", requestID, "emergency_request_id", emergencyID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req, h.criticalUnits, true))
}

// HandleSearch ranks available donors for blood_group near city/area.
// blood_group must be an exact token; send '+' as %2B.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, ok := parseSearchQuery(w, r)
	if !ok {
		return
	}

	result, err := h.service.SearchDonors(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "donor search failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toSearchResponse(result))
}

// HandleList returns requests most urgent first, optionally filtered by status.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var filter models.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := models.ParseStatus(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = status
	}
	limit, err := httputil.QueryInt(r, "limit", defaultListLimit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	offset, err := httputil.QueryInt(r, "offset", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	filter.Limit, filter.Offset = limit, offset

	reqs, err := h.service.List(ctx, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list emergency requests failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestListResponse(reqs, filter, h.criticalUnits))
}

// HandleStats returns per-status counts and the critical count.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	stats, err := h.service.Statistics(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "emergency request stats failed", "error", err, "request_id", requestcontext.RequestID(ctx))
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toStatisticsResponse(stats))
}

// HandleApprove matches donors and approves a pending request.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	emergencyID, ok := parseRequestID(w, r)
	if !ok {
		return
	}

	result, err := h.service.Approve(ctx, emergencyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "approve emergency request failed", "error", err,
			"request_id", requestID, "emergency_request_id", emergencyID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toApprovalResponse(result, h.criticalUnits))
}

// HandleReject closes a pending request. The body is optional.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	emergencyID, ok := parseRequestID(w, r)
	if !ok {
		return
	}
	var reason string
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[RejectRequest](w, r, h.logger)
		if !ok {
			return
		}
		reason = req.Reason
	}

	req, err := h.service.Reject(ctx, emergencyID, reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "reject emergency request failed", "error", err,
			"request_id", requestID, "emergency_request_id", emergencyID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req, h.criticalUnits, false))
}

// HandleComplete closes an approved request.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	emergencyID, ok := parseRequestID(w, r)
	if !ok {
		return
	}

	req, err := h.service.Complete(ctx, emergencyID)
	if err != nil {
		h.logger.ErrorContext(ctx, "complete emergency request failed", "error", err,
			"request_id", requestID, "emergency_request_id", emergencyID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRequestResponse(req, h.criticalUnits, false))
}

func parseSearchQuery(w http.ResponseWriter, r *http.Request) (service.SearchQuery, bool) {
	values := r.URL.Query()
	var q service.SearchQuery

	group, err := matching.ParseBloodGroup(values.Get("blood_group"))
	if err != nil {
		httputil.WriteError(w, err)
		return q, false
	}
	q.BloodGroup = group
	q.City = values.Get("city")
	q.Area = values.Get("area")

	limit, err := httputil.QueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteError(w, err)
		return q, false
	}
	q.Limit = limit

	rawLat, rawLon := values.Get("lat"), values.Get("lon")
	if rawLat == "" && rawLon == "" {
		return q, true
	}
	lat, latErr := strconv.ParseFloat(rawLat, 64)
	lon, lonErr := strconv.ParseFloat(rawLon, 64)
	coords := matching.Coordinates{Latitude: lat, Longitude: lon}
	if latErr != nil || lonErr != nil || !coords.Valid() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "lat and lon must be given together as valid coordinates"))
		return q, false
	}
	q.Coordinates = &coords
	return q, true
}

func parseRequestID(w http.ResponseWriter, r *http.Request) (id.EmergencyRequestID, bool) {
	requestID, err := id.ParseEmergencyRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request id"))
		return id.EmergencyRequestID{}, false
	}
	return requestID, true
}
