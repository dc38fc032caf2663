package httpapi

import (
	"net/http"

	"ledgercore/internal/app"
)

// createVendorCredit handles POST /api/v1/companies/{companyId}/vendor-credits
// (vendorCredit.create).
func (h *Handler) createVendorCredit(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.CreateVendorCreditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.CreateVendorCredit(r.Context(), req)
	respond(w, r, result, err)
}

// postVendorCredit handles POST .../vendor-credits/{documentId}/post
// (vendorCredit.post).
func (h *Handler) postVendorCredit(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.PostVendorCredit(r.Context(), req)
	respond(w, r, result, err)
}

// voidVendorCredit handles POST .../vendor-credits/{documentId}/void
// (vendorCredit.void).
func (h *Handler) voidVendorCredit(w http.ResponseWriter, r *http.Request) {
	companyID, documentID, ok := companyAndDocumentID(w, r)
	if !ok {
		return
	}
	var req app.VoidDocumentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID, req.DocumentID = companyID, documentID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.VoidVendorCredit(r.Context(), req)
	respond(w, r, result, err)
}
