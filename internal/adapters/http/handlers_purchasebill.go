package httpapi

import (
	"net/http"

	"ledgercore/internal/app"
)

// createPurchaseReceipt handles POST
// /api/v1/companies/{companyId}/purchase-receipts — precedes a
// linked-receipt purchase bill (see app.CreatePurchaseReceipt).
func (h *Handler) createPurchaseReceipt(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.CreatePurchaseReceiptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.CreatePurchaseReceipt(r.Context(), req)
	respond(w, r, result, err)
}

// postPurchaseReceipt handles POST .../purchase-receipts/{documentId}/post.
func (h *Handler) postPurchaseReceipt(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.PostPurchaseReceipt(r.Context(), req)
	respond(w, r, result, err)
}

// createPurchaseBill handles POST /api/v1/companies/{companyId}/purchase-bills
// (purchaseBill.create).
func (h *Handler) createPurchaseBill(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.CreatePurchaseBillRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.CreatePurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// updatePurchaseBill handles PUT
// .../purchase-bills/{documentId} (purchaseBill.update).
func (h *Handler) updatePurchaseBill(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.UpdatePurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// approvePurchaseBill handles POST .../purchase-bills/{documentId}/approve.
func (h *Handler) approvePurchaseBill(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApprovePurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// deletePurchaseBill handles DELETE .../purchase-bills/{documentId}.
func (h *Handler) deletePurchaseBill(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.DeletePurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// postPurchaseBill handles POST .../purchase-bills/{documentId}/post.
func (h *Handler) postPurchaseBill(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeDocumentAction(w, r)
	if !ok {
		return
	}
	result, err := h.svc.PostPurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// adjustPurchaseBill handles POST .../purchase-bills/{documentId}/adjust
// (purchaseBill.adjust).
func (h *Handler) adjustPurchaseBill(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.AdjustPurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// voidPurchaseBill handles POST .../purchase-bills/{documentId}/void.
func (h *Handler) voidPurchaseBill(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.VoidPurchaseBill(r.Context(), req)
	respond(w, r, result, err)
}

// applyPaymentToBill handles POST .../purchase-bills/{documentId}/payments
// (purchaseBill.applyPayment).
func (h *Handler) applyPaymentToBill(w http.ResponseWriter, r *http.Request) {
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

	result, err := h.svc.ApplyPaymentToBill(r.Context(), req)
	respond(w, r, result, err)
}

// applyVendorCreditToBill handles POST
// .../purchase-bills/{documentId}/apply-vendor-credit (purchaseBill.applyVendorCredit).
func (h *Handler) applyVendorCreditToBill(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeApplySourceDocument(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApplyVendorCreditToBill(r.Context(), req)
	respond(w, r, result, err)
}

// applyVendorAdvanceToBill handles POST
// .../purchase-bills/{documentId}/apply-vendor-advance (purchaseBill.applyVendorAdvance).
func (h *Handler) applyVendorAdvanceToBill(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeApplySourceDocument(w, r)
	if !ok {
		return
	}
	result, err := h.svc.ApplyVendorAdvanceToBill(r.Context(), req)
	respond(w, r, result, err)
}
