// Package api implements the REST API of the segmentation engine.
// It handles HTTP routing, request decoding, validation, and response
// formatting.
package api

import (
	"strings"
	"time"

	"github.com/folkvang/folkvang/internal/catalog"
	"github.com/folkvang/folkvang/internal/segment"
)

// SegmentResponse represents the segment resource returned by the API.
type SegmentResponse struct {
	// ID is the server-assigned identifier. Read-only.
	ID string `json:"id"`

	// Name is the human-readable label for the segment.
	Name string `json:"name"`

	// Description provides optional context about the segment's purpose.
	Description string `json:"description"`

	// Criteria is the declarative matching definition.
	Criteria segment.Criteria `json:"criteria"`

	// Aggregate snapshot computed at create/update/refresh time.
	CustomerCount int     `json:"customer_count"`
	TotalValue    float64 `json:"total_value"`
	AverageValue  float64 `json:"average_value"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// mapSegmentToResponse converts the catalog entity to the API response DTO.
func mapSegmentToResponse(s catalog.Segment) SegmentResponse {
	return SegmentResponse{
		ID:            s.ID,
		Name:          s.Name,
		Description:   s.Description,
		Criteria:      s.Criteria,
		CustomerCount: s.CustomerCount,
		TotalValue:    s.TotalValue,
		AverageValue:  s.AverageValue,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

// QuickSegmentResponse represents a built-in quick segment plus its live
// aggregate, computed against the current record collection at request time.
type QuickSegmentResponse struct {
	Ref         string           `json:"ref"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Criteria    segment.Criteria `json:"criteria"`
	Stats       segment.Stats    `json:"stats"`
}

// validateSegmentName enforces rules for the human-readable name.
func validateSegmentName(name string) *ErrorResponse {
	if name == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Name is required",
		}
	}
	if len(name) > 255 {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Name must be less than 255 characters",
		}
	}
	return nil
}

// validateCriteria rejects internally contradictory bounds. An empty criteria
// is valid and matches every customer.
func validateCriteria(c segment.Criteria) *ErrorResponse {
	if c.MinSpent != nil && c.MaxSpent != nil && *c.MinSpent > *c.MaxSpent {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "min_spent must not exceed max_spent",
		}
	}
	if c.MinOrders != nil && c.MaxOrders != nil && *c.MinOrders > *c.MaxOrders {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "min_orders must not exceed max_orders",
		}
	}
	if c.MinLeadScore != nil && c.MaxLeadScore != nil && *c.MinLeadScore > *c.MaxLeadScore {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "min_lead_score must not exceed max_lead_score",
		}
	}
	return nil
}

// CreateSegmentRequest defines the payload for creating a new segment.
// Used for JSON decoding in the POST /segments endpoint.
type CreateSegmentRequest struct {
	// Name is required.
	Name string `json:"name"`

	// Description is optional.
	Description string `json:"description,omitempty"`

	// Criteria may be omitted; an empty criteria matches every customer.
	Criteria segment.Criteria `json:"criteria"`
}

// Sanitize cleans up input data by trimming whitespace.
func (r *CreateSegmentRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
}

// Validate checks if the request data adheres to business rules.
// It returns a structured *ErrorResponse if validation fails, or nil if valid.
func (r *CreateSegmentRequest) Validate() *ErrorResponse {
	if err := validateSegmentName(r.Name); err != nil {
		return err
	}
	return validateCriteria(r.Criteria)
}

// UpdateSegmentRequest defines the payload for partial updates (PATCH).
// Pointers distinguish "missing field" (do nothing) from an explicit update.
type UpdateSegmentRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Criteria    *segment.Criteria `json:"criteria,omitempty"`
}

// Sanitize cleans up the provided fields in-place.
func (r *UpdateSegmentRequest) Sanitize() {
	if r.Name != nil {
		*r.Name = strings.TrimSpace(*r.Name)
	}
	if r.Description != nil {
		*r.Description = strings.TrimSpace(*r.Description)
	}
}

// Validate checks if the provided fields adhere to business rules.
func (r *UpdateSegmentRequest) Validate() *ErrorResponse {
	if r.Name != nil {
		if err := validateSegmentName(*r.Name); err != nil {
			return err
		}
	}
	if r.Criteria != nil {
		return validateCriteria(*r.Criteria)
	}
	return nil
}

// PreviewRequest defines the payload for evaluating ad-hoc criteria without
// persisting anything.
type PreviewRequest struct {
	Criteria segment.Criteria `json:"criteria"`
}

// PreviewResponse carries the aggregate for previewed criteria plus the ids
// of the matched customers, so clients can highlight the subset without a
// second round trip.
type PreviewResponse struct {
	Stats      segment.Stats `json:"stats"`
	MatchedIDs []string      `json:"matched_ids"`
}

// SelectRequest defines the payload for activating a selection.
// Ref is either a catalog segment id or a "quick:<slug>" built-in reference.
type SelectRequest struct {
	Ref string `json:"ref"`
}

// Sanitize cleans up input data by trimming whitespace.
func (r *SelectRequest) Sanitize() {
	r.Ref = strings.TrimSpace(r.Ref)
}

// Validate checks if the request data adheres to business rules.
func (r *SelectRequest) Validate() *ErrorResponse {
	if r.Ref == "" {
		return &ErrorResponse{
			Code:    "ERR_INVALID_INPUT",
			Message: "Ref is required",
		}
	}
	return nil
}

// SelectionResponse describes the active selection. Ref is empty when no
// rule is selected.
type SelectionResponse struct {
	Ref     string             `json:"ref,omitempty"`
	Name    string             `json:"name,omitempty"`
	Members []segment.Customer `json:"members,omitempty"`
}

// MembersResponse wraps a member listing with its aggregate.
type MembersResponse struct {
	Data  []segment.Customer `json:"data"`
	Stats segment.Stats      `json:"stats"`
}

// PaginatedSegmentsResponse is the standard structure for the segment list,
// containing the data slice and pagination metadata.
type PaginatedSegmentsResponse struct {
	Data       []SegmentResponse `json:"data"`
	Pagination Pagination        `json:"pagination"`
}

// Pagination metadata for the frontend pager.
type Pagination struct {
	TotalItems  int `json:"total_items"`
	TotalPages  int `json:"total_pages"`
	CurrentPage int `json:"current_page"`
	PageSize    int `json:"page_size"`
}

// ErrorResponse represents a standard structured API error.
type ErrorResponse struct {
	// Code is a machine-readable error code (e.g., "ERR_INVALID_INPUT").
	Code string `json:"code"`

	// Message is a human-readable description of the error.
	Message string `json:"message"`

	// Details provides optional granular validation errors.
	Details []ErrorDetail `json:"details,omitempty"`
}

// ErrorDetail provides context about specific field validation failures.
type ErrorDetail struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}
