package httpapi

import "net/http"

// respond writes result as JSON on success, or the mapped apperr envelope
// on failure — the shared tail of every command handler below.
func respond[T any](w http.ResponseWriter, r *http.Request, result T, err error) {
	if err != nil {
		writeAppError(w, r, err)
		return
	}
	writeJSON(w, result)
}
