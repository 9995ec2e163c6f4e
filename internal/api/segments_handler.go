package api

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/folkvang/folkvang/internal/catalog"
	"github.com/folkvang/folkvang/internal/logger"
	"github.com/folkvang/folkvang/internal/observability"
	"github.com/folkvang/folkvang/internal/segment"
)

// handleCreateSegment processes the POST /api/v1/segments request.
//
// Responsibilities:
// 1. Decodes the JSON payload into the CreateSegmentRequest DTO.
// 2. Sanitizes and Validates the input using the DTO's business logic.
// 3. Delegates creation (aggregate computation + persistence) to the catalog.
// 4. Returns the created resource with a 201 Created status.
func (a *API) handleCreateSegment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateSegmentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	// We delegate validation logic to the DTO to keep the handler clean.
	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	seg, err := a.catalog.Create(r.Context(), req.Name, req.Description, req.Criteria)
	if err != nil {
		a.renderCatalogError(w, r, err)
		return
	}

	log.Info("segment created via api", slog.String("segment_id", seg.ID))
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, mapSegmentToResponse(seg))
}

// handleListSegments processes the GET /api/v1/segments request.
//
// Responsibilities:
// 1. Parses and sanitizes pagination parameters (page, page_size).
// 2. Slices the catalog list, which is already in insertion order.
// 3. Maps the page to DTOs and calculates pagination metadata.
func (a *API) handleListSegments(w http.ResponseWriter, r *http.Request) {
	// Invalid types (e.g. page=banana) are a 400; out-of-bounds values are
	// silently clamped.
	page, err := parseOptionalInt(r, "page", 1)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	pageSize, err := parseOptionalInt(r, "page_size", 10)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_QUERY_PARAM",
			Message: err.Error(),
		})
		return
	}

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}
	if pageSize > 100 {
		pageSize = 100
	}

	segments := a.catalog.List(r.Context())
	totalItems := len(segments)

	offset := (page - 1) * pageSize
	if offset > totalItems {
		offset = totalItems
	}
	end := offset + pageSize
	if end > totalItems {
		end = totalItems
	}
	pageSegments := segments[offset:end]

	dtos := make([]SegmentResponse, len(pageSegments))
	for i, s := range pageSegments {
		dtos[i] = mapSegmentToResponse(s)
	}

	totalPages := 0
	if totalItems > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PaginatedSegmentsResponse{
		Data: dtos,
		Pagination: Pagination{
			TotalItems:  totalItems,
			TotalPages:  totalPages,
			CurrentPage: page,
			PageSize:    pageSize,
		},
	})
}

// parseOptionalInt extracts an integer from the query string.
// If the parameter is missing, it returns the defaultValue.
// It only returns an error if the parameter is present but malformed.
func parseOptionalInt(r *http.Request, key string, defaultValue int) (int, error) {
	valStr := r.URL.Query().Get(key)
	if valStr == "" {
		return defaultValue, nil
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("parameter '%s' must be an integer", key)
	}
	return val, nil
}

// handleGetSegment processes the GET /api/v1/segments/{id} request.
func (a *API) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	seg, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		a.renderCatalogError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapSegmentToResponse(seg))
}

// handleUpdateSegment processes the PATCH /api/v1/segments/{id} request.
// Only the fields present in the payload change; the catalog recomputes the
// aggregate snapshot as part of the update.
func (a *API) handleUpdateSegment(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	var req UpdateSegmentRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	seg, err := a.catalog.Update(r.Context(), id, catalog.Update{
		Name:        req.Name,
		Description: req.Description,
		Criteria:    req.Criteria,
	})
	if err != nil {
		a.renderCatalogError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapSegmentToResponse(seg))
}

// handleDeleteSegment processes the DELETE /api/v1/segments/{id} request.
// If the deleted segment is the active selection, the selection is cleared
// before the delete completes (via the catalog's delete hooks).
func (a *API) handleDeleteSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := a.catalog.Delete(r.Context(), id); err != nil {
		a.renderCatalogError(w, r, err)
		return
	}

	render.NoContent(w, r)
}

// handleRefreshSegment processes the POST /api/v1/segments/{id}/refresh
// request, recomputing the segment's aggregate snapshot against the current
// record collection.
func (a *API) handleRefreshSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	seg, err := a.catalog.Refresh(r.Context(), id)
	if err != nil {
		a.renderCatalogError(w, r, err)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, mapSegmentToResponse(seg))
}

// handleListMembers processes the GET /api/v1/segments/{id}/members request.
// Membership is always evaluated live against the current record collection;
// the stored aggregate snapshot is not consulted.
func (a *API) handleListMembers(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := chi.URLParam(r, "id")

	seg, err := a.catalog.Get(r.Context(), id)
	if err != nil {
		a.renderCatalogError(w, r, err)
		return
	}

	customers, err := a.source.Snapshot(r.Context())
	if err != nil {
		log.Error("failed to load customer snapshot", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to load customer records",
		})
		return
	}

	start := time.Now()
	matched := segment.Filter(customers, seg.Criteria)
	stats := segment.Aggregate(matched, customers)
	observability.EvalDuration.WithLabelValues("segment").Observe(time.Since(start).Seconds())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, MembersResponse{Data: matched, Stats: stats})
}

// handlePreview processes the POST /api/v1/segments/preview request.
// It evaluates ad-hoc criteria against the current record collection without
// persisting anything, so clients can show live counts while editing.
func (a *API) handlePreview(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req PreviewRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		log.Warn("invalid json payload", slog.String("error", err.Error()))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_JSON",
			Message: "Invalid JSON payload: " + err.Error(),
		})
		return
	}

	if errResp := validateCriteria(req.Criteria); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	customers, err := a.source.Snapshot(r.Context())
	if err != nil {
		log.Error("failed to load customer snapshot", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to load customer records",
		})
		return
	}

	start := time.Now()
	matched := segment.Filter(customers, req.Criteria)
	stats := segment.Aggregate(matched, customers)
	observability.EvalDuration.WithLabelValues("preview").Observe(time.Since(start).Seconds())

	ids := make([]string, len(matched))
	for i, c := range matched {
		ids[i] = c.ID
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, PreviewResponse{Stats: stats, MatchedIDs: ids})
}

// handleListQuickSegments processes the GET /api/v1/quick-segments request.
// Built-ins have no stored snapshot, so their aggregates are always computed
// live. Relative date windows are anchored on the request time.
func (a *API) handleListQuickSegments(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	customers, err := a.source.Snapshot(r.Context())
	if err != nil {
		log.Error("failed to load customer snapshot", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to load customer records",
		})
		return
	}

	now := time.Now()
	rules := segment.BuiltinRules()
	dtos := make([]QuickSegmentResponse, len(rules))

	for i, rule := range rules {
		criteria := rule.CriteriaAt(now)

		start := time.Now()
		matched := segment.Filter(customers, criteria)
		stats := segment.Aggregate(matched, customers)
		observability.EvalDuration.WithLabelValues("quick").Observe(time.Since(start).Seconds())

		dtos[i] = QuickSegmentResponse{
			Ref:         rule.Ref(),
			Name:        rule.DisplayName(),
			Description: rule.Description,
			Criteria:    criteria,
			Stats:       stats,
		}
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{"data": dtos})
}

// renderCatalogError maps catalog error types to HTTP responses.
// Validation failures map to 400, unknown ids to 404, and durable store
// outages to 503. Anything else is a 500.
func (a *API) renderCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	var vErr *catalog.ValidationError
	if errors.As(err, &vErr) {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: vErr.Error(),
			Details: []ErrorDetail{{Field: vErr.Field, Issue: vErr.Reason}},
		})
		return
	}

	var nfErr *catalog.NotFoundError
	if errors.As(err, &nfErr) {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: nfErr.Error(),
		})
		return
	}

	var sErr *catalog.StoreUnavailableError
	if errors.As(err, &sErr) {
		log.Error("catalog store unavailable", slog.String("error", err.Error()))
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_STORE_UNAVAILABLE",
			Message: "Segment storage is temporarily unavailable",
		})
		return
	}

	log.Error("unexpected catalog error", slog.String("error", err.Error()))
	render.Status(r, http.StatusInternalServerError)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_INTERNAL",
		Message: "Internal server error",
	})
}
