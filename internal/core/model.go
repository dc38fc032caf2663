// Package core is the posting and idempotent command core: ledger posting,
// period close, sequencing, inventory/WAC, document state machines, and
// settlement. It keeps the teacher's flat per-concern-file layout and raw
// pgx idiom (services hold *pgxpool.Pool, accept pgx.Tx when the caller
// controls the transaction boundary).
package core

import (
	"time"

	"ledgercore/internal/money"
)

type AccountType string

const (
	AccountAsset     AccountType = "ASSET"
	AccountLiability AccountType = "LIABILITY"
	AccountEquity    AccountType = "EQUITY"
	AccountIncome    AccountType = "INCOME"
	AccountExpense   AccountType = "EXPENSE"
)

type NormalBalance string

const (
	NormalDebit  NormalBalance = "DEBIT"
	NormalCredit NormalBalance = "CREDIT"
)

// Account is scoped to a single company; (companyId, code) is unique.
type Account struct {
	ID               int
	CompanyID        int
	Code             string
	Name             string
	Type             AccountType
	NormalBalance    NormalBalance
	ReportGroup      string
	CashflowActivity string
	IsActive         bool
}

// Company is the tenant root. The account references below are resolved
// lazily via the rule engine and cached here once known (spec.md §3, §4.4.3).
type Company struct {
	ID                    int
	CompanyCode           string
	Name                  string
	BaseCurrency          string
	DefaultLocationID     int
	TimeZone              string
	AccountsPayableID     *int
	AccountsReceivableID  *int
	InventoryAssetID      *int
	GRNIAccountID         *int
	PurchasePriceVarianceID *int
	SalesIncomeID         *int
	VendorPrepaymentID    *int
	CustomerPrepaymentID  *int
}

// JournalEntry is write-once except for the void annotation fields.
type JournalEntry struct {
	ID                     int
	CompanyID              int
	Date                   time.Time
	Description            string
	ReversalOfJournalEntryID *int
	VoidedAt               *time.Time
	VoidReason             *string
	CreatedAt              time.Time
	Lines                  []JournalLine
}

// JournalLine: exactly one of Debit/Credit is > 0.
type JournalLine struct {
	ID             int
	CompanyID      int
	JournalEntryID int
	AccountID      int
	Debit          money.Amount
	Credit         money.Amount
}

type DocumentKind string

const (
	KindInvoice         DocumentKind = "INVOICE"
	KindPurchaseBill    DocumentKind = "PURCHASE_BILL"
	KindVendorCredit    DocumentKind = "VENDOR_CREDIT"
	KindCustomerAdvance DocumentKind = "CUSTOMER_ADVANCE"
	KindVendorAdvance   DocumentKind = "VENDOR_ADVANCE"
	KindPurchaseReceipt DocumentKind = "PURCHASE_RECEIPT"
)

type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "DRAFT"
	StatusApproved DocumentStatus = "APPROVED"
	StatusPosted   DocumentStatus = "POSTED"
	StatusPartial  DocumentStatus = "PARTIAL"
	StatusPaid     DocumentStatus = "PAID"
	StatusVoid     DocumentStatus = "VOID"
)

// Document is the common shape shared by Invoice, PurchaseBill, VendorCredit,
// CustomerAdvance, VendorAdvance, and PurchaseReceipt (spec.md §3). Kind-
// specific behavior lives in document_*.go; this struct is the tagged-variant
// header Design Note 9 asks for ("model each document as a tagged variant
// with a shared DocumentHeader and a kind-specific body").
type Document struct {
	ID                           int
	CompanyID                    int
	Kind                         DocumentKind
	Number                       *string
	Status                       DocumentStatus
	Date                         time.Time
	Total                        money.Amount
	AmountPaidOrApplied          money.Amount
	JournalEntryID               *int
	LastAdjustmentJournalEntryID *int
	VoidJournalEntryID           *int
	LocationID                   int
	Currency                     string
	LinkedReceiptID              *int // PurchaseBill -> PurchaseReceipt, optional
	VendorOrCustomerID           int
	CreatedAt                    time.Time
}

// DocumentLine is a single priced line of a Document.
type DocumentLine struct {
	ID              int
	CompanyID       int
	DocumentID      int
	LineNumber      int
	ItemID          *int
	AccountID       *int
	Quantity        money.Qty
	UnitPrice       money.Amount
	DiscountAmount  money.Amount
	TaxRate         money.Rate
	TaxAmount       money.Amount
	LineTotal       money.Amount
	TrackInventory  bool
}

// PurchaseBillLandedCostAllocation allocates a purchase bill's non-inventory
// landed-cost lines across the linked receipt's lines (spec.md §3, §4.4.3).
type PurchaseBillLandedCostAllocation struct {
	CompanyID            int
	PurchaseBillID       int
	PurchaseReceiptLineID int
	Amount               money.Amount
}

type StockMoveType string

const (
	MovePurchaseReceipt StockMoveType = "PURCHASE_RECEIPT"
	MoveSaleIssue       StockMoveType = "SALE_ISSUE"
	MoveAdjustment      StockMoveType = "ADJUSTMENT"
	MovePurchaseReturn  StockMoveType = "PURCHASE_RETURN"
	MoveSaleReturn      StockMoveType = "SALE_RETURN"
	MoveTransfer        StockMoveType = "TRANSFER"
)

type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// StockMove is a single quantity or value movement of an item at a location.
type StockMove struct {
	ID               int
	CompanyID        int
	LocationID       int
	ItemID           int
	Date             time.Time
	Type             StockMoveType
	Direction        Direction
	Quantity         money.Qty
	UnitCostApplied  money.Rate
	TotalCostApplied money.Amount
	ReferenceType    string
	ReferenceID      int
	CorrelationID    string
	JournalEntryID   *int
	CreatedAt        time.Time
}

// InventoryBalance is the current (location, item) position.
type InventoryBalance struct {
	CompanyID      int
	LocationID     int
	ItemID         int
	QuantityOnHand money.Qty
	TotalValue     money.Amount
	WAC            money.Rate
}

type SettlementKind string

const (
	SettlementPayment   SettlementKind = "PAYMENT"
	SettlementCredit    SettlementKind = "CREDIT_APPLICATION"
	SettlementAdvance   SettlementKind = "ADVANCE_APPLICATION"
)

// Settlement is a Payment, CreditApplication, or AdvanceApplication row.
type Settlement struct {
	ID             int
	CompanyID      int
	Kind           SettlementKind
	DocumentID     int
	SourceID       *int // bank account id (payment) or credit/advance document id
	Date           time.Time
	Amount         money.Amount
	JournalEntryID *int
	ReversedAt     *time.Time
}

// PeriodClose marks [From, To] immutable for posting as of ClosedAt.
// JournalEntryID is nil when the window had no income/expense activity to
// close — posting a zero-line closing entry is not possible, so a
// business-as-usual empty period (a new company's first month, or a window
// with only balance-sheet movement) still closes cleanly without one.
type PeriodClose struct {
	CompanyID      int
	From           time.Time
	To             time.Time
	JournalEntryID *int
	ClosedAt       time.Time
}
