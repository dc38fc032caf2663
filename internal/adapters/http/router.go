package httpapi

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ledgercore/internal/app"
)

// Handler holds the command service and the chi router wired over it.
type Handler struct {
	svc       *app.Service
	jwtSecret string
	router    chi.Router
}

// NewHandler builds the chi router exposing svc's command surface over
// HTTP. allowedOrigins is a comma-separated CORS allow-list (empty disables
// CORS); jwtSecret verifies the Bearer token RequireAuth expects.
func NewHandler(svc *app.Service, allowedOrigins, jwtSecret string) http.Handler {
	h := &Handler{svc: svc, jwtSecret: jwtSecret}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger)
	r.Use(Recoverer)
	r.Use(CORS(allowedOrigins))

	r.Get("/healthz", h.health)

	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Route("/api/v1/companies/{companyId}", func(r chi.Router) {
			r.Post("/journal-entries", h.postJournalEntry)
			r.Post("/journal-entries/reverse", h.reverseJournalEntry)

			r.Post("/invoices", h.createInvoice)
			r.Put("/invoices/{documentId}", h.updateInvoice)
			r.Post("/invoices/{documentId}/approve", h.approveInvoice)
			r.Delete("/invoices/{documentId}", h.deleteInvoice)
			r.Post("/invoices/{documentId}/post", h.postInvoice)
			r.Post("/invoices/{documentId}/adjust", h.adjustInvoice)
			r.Post("/invoices/{documentId}/void", h.voidInvoice)
			r.Post("/invoices/{documentId}/payments", h.applyPaymentToInvoice)
			r.Post("/invoices/{documentId}/apply-customer-advance", h.applyCustomerAdvanceToInvoice)
			r.Post("/invoices/{documentId}/apply-credit-note", h.applyCreditNoteToInvoice)

			r.Post("/purchase-receipts", h.createPurchaseReceipt)
			r.Post("/purchase-receipts/{documentId}/post", h.postPurchaseReceipt)

			r.Post("/purchase-bills", h.createPurchaseBill)
			r.Put("/purchase-bills/{documentId}", h.updatePurchaseBill)
			r.Post("/purchase-bills/{documentId}/approve", h.approvePurchaseBill)
			r.Delete("/purchase-bills/{documentId}", h.deletePurchaseBill)
			r.Post("/purchase-bills/{documentId}/post", h.postPurchaseBill)
			r.Post("/purchase-bills/{documentId}/adjust", h.adjustPurchaseBill)
			r.Post("/purchase-bills/{documentId}/void", h.voidPurchaseBill)
			r.Post("/purchase-bills/{documentId}/payments", h.applyPaymentToBill)
			r.Post("/purchase-bills/{documentId}/apply-vendor-credit", h.applyVendorCreditToBill)
			r.Post("/purchase-bills/{documentId}/apply-vendor-advance", h.applyVendorAdvanceToBill)

			r.Post("/vendor-credits", h.createVendorCredit)
			r.Post("/vendor-credits/{documentId}/post", h.postVendorCredit)
			r.Post("/vendor-credits/{documentId}/void", h.voidVendorCredit)

			r.Post("/vendor-advances", h.createVendorAdvance)
			r.Post("/vendor-advances/apply", h.applyVendorAdvance)
			r.Post("/customer-advances", h.createCustomerAdvance)

			r.Post("/periods/close", h.closePeriod)

			r.Get("/trial-balance", h.getTrialBalance)
		})
	})

	h.router = r
	return r
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// health reports liveness; it deliberately does nothing else out-of-scope
// report read-models would otherwise tempt it to check.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// companyIDParam extracts and parses the {companyId} path parameter.
func companyIDParam(r *http.Request) (int, bool, error) {
	return parseIntParam(r, "companyId")
}

// documentIDParam extracts and parses the {documentId} path parameter.
func documentIDParam(r *http.Request) (int, bool, error) {
	return parseIntParam(r, "documentId")
}

func parseIntParam(r *http.Request, name string) (int, bool, error) {
	raw := chi.URLParam(r, name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, err
	}
	return v, true, nil
}

// idempotencyKey prefers the body-supplied key, falling back to the
// Idempotency-Key header when the body left it blank.
func idempotencyKey(r *http.Request, bodyKey string) string {
	if bodyKey != "" {
		return bodyKey
	}
	return r.Header.Get("Idempotency-Key")
}
