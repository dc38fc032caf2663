package app

import (
	"time"

	"ledgercore/internal/core"
	"ledgercore/internal/money"
)

// JournalLineRequest is one caller-supplied line of a direct journal
// posting, mirroring core.JournalLineInput at the command boundary.
type JournalLineRequest struct {
	AccountID int          `json:"accountId"`
	Debit     money.Amount `json:"debit"`
	Credit    money.Amount `json:"credit"`
}

// PostJournalEntryRequest is journalEntry.post's payload (spec.md §6).
type PostJournalEntryRequest struct {
	CompanyID      int                  `json:"companyId"`
	IdempotencyKey string               `json:"idempotencyKey"`
	Date           time.Time            `json:"date"`
	Description    string               `json:"description"`
	Lines          []JournalLineRequest `json:"lines"`
}

// ReverseJournalEntryRequest is journalEntry.reverse's payload.
type ReverseJournalEntryRequest struct {
	CompanyID      int       `json:"companyId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	JournalEntryID int       `json:"journalEntryId"`
	ReversalDate   time.Time `json:"reversalDate"`
	Reason         string    `json:"reason"`
}

// DocumentLineRequest is one priced line of a document-creating/editing
// command, mirroring core.DocumentLine minus the fields the server computes
// (TaxAmount, LineTotal).
type DocumentLineRequest struct {
	ItemID         *int         `json:"itemId,omitempty"`
	AccountID      *int         `json:"accountId,omitempty"`
	Quantity       money.Qty    `json:"quantity"`
	UnitPrice      money.Amount `json:"unitPrice"`
	DiscountAmount money.Amount `json:"discountAmount"`
	TaxRate        money.Rate   `json:"taxRate"`
	TrackInventory bool         `json:"trackInventory"`
}

func toDocumentLines(in []DocumentLineRequest) []core.DocumentLine {
	out := make([]core.DocumentLine, len(in))
	for i, l := range in {
		out[i] = core.DocumentLine{
			ItemID: l.ItemID, AccountID: l.AccountID, Quantity: l.Quantity,
			UnitPrice: l.UnitPrice, DiscountAmount: l.DiscountAmount,
			TaxRate: l.TaxRate, TrackInventory: l.TrackInventory,
		}
	}
	return out
}

// CreateInvoiceRequest is invoice.create's payload.
type CreateInvoiceRequest struct {
	CompanyID      int                   `json:"companyId"`
	IdempotencyKey string                `json:"idempotencyKey"`
	Date           time.Time             `json:"date"`
	LocationID     int                   `json:"locationId"`
	Currency       string                `json:"currency"`
	CustomerID     int                   `json:"customerId"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// UpdateDocumentLinesRequest is shared by invoice.update and
// purchaseBill.update, the content edits made before posting.
type UpdateDocumentLinesRequest struct {
	CompanyID      int                   `json:"companyId"`
	IdempotencyKey string                `json:"idempotencyKey"`
	DocumentID     int                   `json:"documentId"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// DocumentActionRequest covers approve/post/delete: a document identified by
// id, company-scoped, idempotent, with a correlation id for the events the
// action may emit.
type DocumentActionRequest struct {
	CompanyID      int    `json:"companyId"`
	IdempotencyKey string `json:"idempotencyKey"`
	DocumentID     int    `json:"documentId"`
	CorrelationID  string `json:"correlationId"`
}

// VoidDocumentRequest is shared by invoice.void / purchaseBill.void /
// vendorCredit.void.
type VoidDocumentRequest struct {
	CompanyID      int       `json:"companyId"`
	IdempotencyKey string    `json:"idempotencyKey"`
	DocumentID     int       `json:"documentId"`
	VoidDate       time.Time `json:"voidDate"`
	Reason         string    `json:"reason"`
	CorrelationID  string    `json:"correlationId"`
}

// AdjustInvoiceRequest is invoice.adjust's payload; AdjustPurchaseBill takes
// the same type for purchaseBill.adjust.
type AdjustInvoiceRequest struct {
	CompanyID      int                   `json:"companyId"`
	IdempotencyKey string                `json:"idempotencyKey"`
	DocumentID     int                   `json:"documentId"`
	Date           time.Time             `json:"date"`
	Description    string                `json:"description"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// CreatePurchaseBillRequest is purchaseBill.create's payload.
type CreatePurchaseBillRequest struct {
	CompanyID       int                   `json:"companyId"`
	IdempotencyKey  string                `json:"idempotencyKey"`
	Date            time.Time             `json:"date"`
	LocationID      int                   `json:"locationId"`
	Currency        string                `json:"currency"`
	VendorID        int                   `json:"vendorId"`
	LinkedReceiptID *int                  `json:"linkedReceiptId,omitempty"`
	Lines           []DocumentLineRequest `json:"lines"`
}

// CreatePurchaseReceiptRequest precedes a linked-receipt purchase bill.
type CreatePurchaseReceiptRequest struct {
	CompanyID      int                   `json:"companyId"`
	IdempotencyKey string                `json:"idempotencyKey"`
	Date           time.Time             `json:"date"`
	LocationID     int                   `json:"locationId"`
	Currency       string                `json:"currency"`
	VendorID       int                   `json:"vendorId"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// CreateVendorCreditRequest is vendorCredit.create's payload.
type CreateVendorCreditRequest struct {
	CompanyID      int                   `json:"companyId"`
	IdempotencyKey string                `json:"idempotencyKey"`
	Date           time.Time             `json:"date"`
	LocationID     int                   `json:"locationId"`
	Currency       string                `json:"currency"`
	VendorID       int                   `json:"vendorId"`
	Lines          []DocumentLineRequest `json:"lines"`
}

// CreateAdvanceRequest is vendorAdvance.create's payload, and its customer
// side's equivalent.
type CreateAdvanceRequest struct {
	CompanyID          int          `json:"companyId"`
	IdempotencyKey     string       `json:"idempotencyKey"`
	Kind               string       `json:"kind"` // "CUSTOMER_ADVANCE" | "VENDOR_ADVANCE"
	Date               time.Time    `json:"date"`
	LocationID         int          `json:"locationId"`
	Currency           string       `json:"currency"`
	VendorOrCustomerID int          `json:"vendorOrCustomerId"`
	BankAccountID      int          `json:"bankAccountId"`
	Amount             money.Amount `json:"amount"`
	CorrelationID      string       `json:"correlationId"`
}

// ApplyPaymentRequest is invoice.applyPayment / purchaseBill.applyPayment.
type ApplyPaymentRequest struct {
	CompanyID      int          `json:"companyId"`
	IdempotencyKey string       `json:"idempotencyKey"`
	DocumentID     int          `json:"documentId"`
	BankAccountID  int          `json:"bankAccountId"`
	Amount         money.Amount `json:"amount"`
	Date           time.Time    `json:"date"`
	CorrelationID  string       `json:"correlationId"`
}

// ApplySourceDocumentRequest covers invoice.applyCustomerAdvance,
// invoice.applyCreditNote, purchaseBill.applyVendorCredit,
// purchaseBill.applyVendorAdvance, and vendorAdvance.apply — all of which
// draw down a source document's balance against a target document.
type ApplySourceDocumentRequest struct {
	CompanyID        int          `json:"companyId"`
	IdempotencyKey   string       `json:"idempotencyKey"`
	DocumentID       int          `json:"documentId"`
	SourceDocumentID int          `json:"sourceDocumentId"`
	Amount           money.Amount `json:"amount"`
	Date             time.Time    `json:"date"`
	CorrelationID    string       `json:"correlationId"`
}

// ClosePeriodRequest is period.close's payload.
type ClosePeriodRequest struct {
	CompanyID       int       `json:"companyId"`
	IdempotencyKey  string    `json:"idempotencyKey"`
	From            time.Time `json:"from"`
	To              time.Time `json:"to"`
	EquityAccountID int       `json:"equityAccountId"`
}

// DocumentResponse is the typed response shape returned by every
// document-creating/mutating command.
type DocumentResponse struct {
	ID                  int          `json:"id"`
	Number              *string      `json:"number,omitempty"`
	Status              string       `json:"status"`
	Total               money.Amount `json:"total"`
	AmountPaidOrApplied money.Amount `json:"amountPaidOrApplied"`
	JournalEntryID      *int         `json:"journalEntryId,omitempty"`
}

func toDocumentResponse(d *core.Document) DocumentResponse {
	return DocumentResponse{
		ID: d.ID, Number: d.Number, Status: string(d.Status),
		Total: d.Total, AmountPaidOrApplied: d.AmountPaidOrApplied,
		JournalEntryID: d.JournalEntryID,
	}
}

// JournalEntryResponse is journalEntry.post's `{id}` response.
type JournalEntryResponse struct {
	ID int `json:"id"`
}

// ReversalResponse is journalEntry.reverse's `{originalId, reversalId}`.
type ReversalResponse struct {
	OriginalID int `json:"originalId"`
	ReversalID int `json:"reversalId"`
}

// SettlementResponse is the response shape of applyPayment/applyCreditNote/
// applyCustomerAdvance/applyVendorCredit/applyVendorAdvance.
type SettlementResponse struct {
	ID             int          `json:"id"`
	DocumentID     int          `json:"documentId"`
	Kind           string       `json:"kind"`
	Amount         money.Amount `json:"amount"`
	JournalEntryID *int         `json:"journalEntryId,omitempty"`
}

func toSettlementResponse(s *core.Settlement) SettlementResponse {
	return SettlementResponse{
		ID: s.ID, DocumentID: s.DocumentID, Kind: string(s.Kind),
		Amount: s.Amount, JournalEntryID: s.JournalEntryID,
	}
}

// PeriodCloseResponse is period.close's response. JournalEntryID is nil when
// the closed window had no income/expense activity to transfer to equity.
type PeriodCloseResponse struct {
	CompanyID      int       `json:"companyId"`
	From           time.Time `json:"from"`
	To             time.Time `json:"to"`
	JournalEntryID *int      `json:"journalEntryId,omitempty"`
	ClosedAt       time.Time `json:"closedAt"`
}
