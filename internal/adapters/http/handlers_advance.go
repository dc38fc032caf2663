package httpapi

import (
	"net/http"

	"ledgercore/internal/app"
)

// createVendorAdvance handles POST
// /api/v1/companies/{companyId}/vendor-advances (vendorAdvance.create).
func (h *Handler) createVendorAdvance(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCreateAdvance(w, r)
	if !ok {
		return
	}
	result, err := h.svc.CreateVendorAdvance(r.Context(), req)
	respond(w, r, result, err)
}

// createCustomerAdvance handles POST
// /api/v1/companies/{companyId}/customer-advances — the supplemented
// customer-side counterpart invoice.applyCustomerAdvance draws down.
func (h *Handler) createCustomerAdvance(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCreateAdvance(w, r)
	if !ok {
		return
	}
	result, err := h.svc.CreateCustomerAdvance(r.Context(), req)
	respond(w, r, result, err)
}

// applyVendorAdvance handles POST
// /api/v1/companies/{companyId}/vendor-advances/apply (vendorAdvance.apply).
// Both the advance id and the bill id it is applied against travel in the
// body as DocumentID/SourceDocumentID — unlike the other settlement verbs,
// this route has no single document already in its own path.
func (h *Handler) applyVendorAdvance(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.ApplySourceDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.ApplyVendorAdvance(r.Context(), req)
	respond(w, r, result, err)
}

func decodeCreateAdvance(w http.ResponseWriter, r *http.Request) (app.CreateAdvanceRequest, bool) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return app.CreateAdvanceRequest{}, false
	}
	var req app.CreateAdvanceRequest
	if !decodeJSON(w, r, &req) {
		return app.CreateAdvanceRequest{}, false
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)
	return req, true
}
