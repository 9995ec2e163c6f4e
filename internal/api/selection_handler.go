package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/folkvang/folkvang/internal/logger"
	"github.com/folkvang/folkvang/internal/segment"
)

// handleSelect processes the PUT /api/v1/selection request.
// The ref resolves to either a built-in quick segment ("quick:<slug>") or a
// catalog segment id. Selecting replaces any previous selection and returns
// the resolved member list.
func (a *API) handleSelect(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req SelectRequest
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

	rule, errResp := a.resolveRule(r, req.Ref)
	if errResp != nil {
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, errResp)
		return
	}

	matched, err := a.selection.Select(r.Context(), rule)
	if err != nil {
		log.Error("failed to resolve selection", slog.String("error", err.Error()))
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INTERNAL",
			Message: "Failed to resolve selection members",
		})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SelectionResponse{
		Ref:     rule.Ref(),
		Name:    rule.DisplayName(),
		Members: matched,
	})
}

// handleGetSelection processes the GET /api/v1/selection request.
// An empty selection returns an empty object rather than 404: no selection
// is a normal state, not an error.
func (a *API) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	active := a.selection.Active()
	if active == nil {
		render.Status(r, http.StatusOK)
		render.JSON(w, r, SelectionResponse{})
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, SelectionResponse{
		Ref:  active.Ref(),
		Name: active.DisplayName(),
	})
}

// handleClearSelection processes the DELETE /api/v1/selection request.
// Clearing an empty selection succeeds; the operation is idempotent.
func (a *API) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	a.selection.Clear()
	render.NoContent(w, r)
}

// resolveRule turns a selection ref into a Rule. Quick refs resolve against
// the built-in set, everything else against the catalog.
func (a *API) resolveRule(r *http.Request, ref string) (segment.Rule, *ErrorResponse) {
	if segment.IsQuickRef(ref) {
		rule, ok := segment.FindBuiltinByRef(ref)
		if !ok {
			return nil, &ErrorResponse{
				Code:    "ERR_NOT_FOUND",
				Message: "Unknown quick segment: " + ref,
			}
		}
		return rule, nil
	}

	seg, err := a.catalog.Get(r.Context(), ref)
	if err != nil {
		return nil, &ErrorResponse{
			Code:    "ERR_NOT_FOUND",
			Message: "Unknown segment: " + ref,
		}
	}
	return seg, nil
}
