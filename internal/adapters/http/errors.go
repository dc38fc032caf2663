package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"ledgercore/internal/apperr"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeAppError maps an apperr.Kind to an HTTP status and writes the
// envelope. A nil *apperr.Error (err not produced by apperr.New) reports as
// apperr.Internal, matching apperr.KindOf's own fallback.
func writeAppError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status, code := httpStatusForKind(kind)
	writeError(w, r, err.Error(), code, status)
}

func httpStatusForKind(kind apperr.Kind) (int, string) {
	switch kind {
	case apperr.InvalidInput:
		return http.StatusBadRequest, "INVALID_INPUT"
	case apperr.TenantScopeViolation:
		return http.StatusForbidden, "TENANT_SCOPE_VIOLATION"
	case apperr.NotFound:
		return http.StatusNotFound, "NOT_FOUND"
	case apperr.InvalidStateTransition:
		return http.StatusConflict, "INVALID_STATE_TRANSITION"
	case apperr.PeriodClosed:
		return http.StatusConflict, "PERIOD_CLOSED"
	case apperr.UnbalancedEntry:
		return http.StatusBadRequest, "UNBALANCED_ENTRY"
	case apperr.RoundingMismatch:
		return http.StatusBadRequest, "ROUNDING_MISMATCH"
	case apperr.CurrencyMismatch:
		return http.StatusBadRequest, "CURRENCY_MISMATCH"
	case apperr.InsufficientStock:
		return http.StatusConflict, "INSUFFICIENT_STOCK"
	case apperr.Overpayment:
		return http.StatusBadRequest, "OVERPAYMENT"
	case apperr.IdempotencyKeyMissing:
		return http.StatusBadRequest, "IDEMPOTENCY_KEY_MISSING"
	case apperr.IdempotencyKeyReuse:
		return http.StatusConflict, "IDEMPOTENCY_KEY_REUSE"
	case apperr.LockContention:
		return http.StatusConflict, "LOCK_CONTENTION"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

// decodeJSON decodes the request body into v, writing the appropriate error
// response and returning false on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
