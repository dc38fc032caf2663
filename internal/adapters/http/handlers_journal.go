package httpapi

import (
	"net/http"

	"ledgercore/internal/app"
)

// postJournalEntry handles POST /api/v1/companies/{companyId}/journal-entries
// (journalEntry.post).
func (h *Handler) postJournalEntry(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.PostJournalEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.PostJournalEntry(r.Context(), req)
	respond(w, r, result, err)
}

// reverseJournalEntry handles POST
// /api/v1/companies/{companyId}/journal-entries/reverse (journalEntry.reverse).
func (h *Handler) reverseJournalEntry(w http.ResponseWriter, r *http.Request) {
	companyID, _, err := companyIDParam(r)
	if err != nil {
		writeError(w, r, "invalid companyId", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	var req app.ReverseJournalEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.CompanyID = companyID
	req.IdempotencyKey = idempotencyKey(r, req.IdempotencyKey)

	result, err := h.svc.ReverseJournalEntry(r.Context(), req)
	respond(w, r, result, err)
}
