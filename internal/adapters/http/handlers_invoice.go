package httpapi

import (
	"net/http"

	"ledgercore/internal/app"
)

// createInvoice handles POST /api/v1/companies/{companyId}/invoices
// (invoice.create).
func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.CreateInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.CreateInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// updateInvoice handles PUT
// /api/v1/companies/{companyId}/invoices/{documentId} (invoice.update).
func (h *Handler) updateInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, documentID, ok := companyAndDocumentID(w, r)
	if !ok {
		return
	}
	var req app.UpdateDocumentLinesRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID, req.DocumentID = companyID, documentID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.UpdateInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// approveInvoice handles POST .../invoices/{documentId}/approve (invoice.approve).
func (h *Handler) approveInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApproveInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// deleteInvoice handles DELETE .../invoices/{documentId} (invoice.delete).
func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.DeleteInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// postInvoice handles POST .../invoices/{documentId}/post (invoice.post).
func (h *Handler) postInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.PostInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// adjustInvoice handles POST .../invoices/{documentId}/adjust (invoice.adjust).
func (h *Handler) adjustInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, documentID, ok := companyAndDocumentID(w, r)
	if !ok {
		return
	}
	var req app.AdjustInvoiceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID, req.DocumentID = companyID, documentID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.AdjustInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// voidInvoice handles POST .../invoices/{documentId}/void (invoice.void).
func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.VoidInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// applyPaymentToInvoice handles POST .../invoices/{documentId}/payments
// (invoice.applyPayment).
func (h *Handler) applyPaymentToInvoice(w http.ResponseWriter, r *http.Request) {
	companyID, documentID, ok := companyAndDocumentID(w, r)
	if !ok {
		return
	}
	var req app.ApplyPaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID, req.DocumentID = companyID, documentID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.ApplyPaymentToInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// applyCustomerAdvanceToInvoice handles POST
// .../invoices/{documentId}/apply-customer-advance (invoice.applyCustomerAdvance).
func (h *Handler) applyCustomerAdvanceToInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeApplySourceDocument(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApplyCustomerAdvanceToInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// applyCreditNoteToInvoice handles POST
// .../invoices/{documentId}/apply-credit-note (invoice.applyCreditNote).
func (h *Handler) applyCreditNoteToInvoice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeApplySourceDocument(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApplyCreditNoteToInvoice(r.Context(), req)
	respond(w, r, result, err)
}

// companyAndDocumentID extracts and parses the {companyId}/{documentId}
// path parameters shared by most document-scoped routes, writing a 400 and
// returning ok=false on failure.
func companyAndDocumentID(w http.ResponseWriter, r *http.Request) (companyID, documentID int, ok bool) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return 0, 0, false
	}
	documentID, _, err = documentIDParam(r)
	if err != nil {
		writeError(w, r, "invalid documentId", "BAD_REQUEST", http.StatusBadRequest)
		return 0, 0, false
	}
	return companyID, documentID, true
}

// decodeDocumentAction decodes an app.DocumentActionRequest body for the
// shared approve/delete/post verbs.
func decodeDocumentAction(w http.ResponseWriter, r *http.Request) (app.DocumentActionRequest, bool) {
	companyID, documentID, ok := companyAndDocumentID(w, r)
	if !ok {
		return app.DocumentActionRequest{}, false
	}
	var req app.DocumentActionRequest
	if !decodeJSON(w, r, &req) {
		return app.DocumentActionRequest{}, false
	}
	req.CompanyID, req.DocumentID = companyID, documentID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)
	return req, true
}

// decodeApplySourceDocument decodes an app.ApplySourceDocumentRequest body
// shared by every "draw down a source document" settlement verb.
func decodeApplySourceDocument(w http.ResponseWriter, r *http.Request) (app.ApplySourceDocumentRequest, bool) {
	companyID, documentID, ok := companyAndDocumentID(w, r)
	if !ok {
		return app.ApplySourceDocumentRequest{}, false
	}
	var req app.ApplySourceDocumentRequest
	if !decodeJSON(w, r, &req) {
		return app.ApplySourceDocumentRequest{}, false
	}
	req.CompanyID, req.DocumentID = companyID, documentID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)
	return req, true
}
