package httpapi

import (
	"net/http"

	"ledgercore/internal/app"
)

// closePeriod handles POST /api/v1/companies/{companyId}/periods/close
// (period.close).
func (h *Handler) closePeriod(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.ClosePeriodRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.ClosePeriod(r.Context(), req)
	respond(w, r, result, err)
}

// getTrialBalance handles GET
// /api/v1/companies/{companyId}/trial-balance — the one read query this
// repository exposes (full reporting is out of scope; see app.GetTrialBalance).
func (h *Handler) getTrialBalance(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.GetTrialBalance(r.Context(), companyID)
	respond(w, r, result, err)
}
