package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgercore/internal/apperr"
	"ledgercore/internal/money"
	"ledgercore/internal/outbox"
)

// DocumentService holds the collaborators shared by every document kind's
// state machine (invoice, purchase bill, vendor credit, advances): the
// ledger for journal posting, the inventory engine for stock effects, the
// account resolver for cached/auto-provisioned accounts, and the sequence
// allocator for document numbers. This generalizes the teacher's
// OrderService/PurchaseOrderService, which each held their own *pgxpool.Pool
// plus a hand-rolled subset of these collaborators.
type DocumentService struct {
	pool      *pgxpool.Pool
	ledger    *Ledger
	inventory *InventoryEngine
	resolver  *AccountResolver
}

func NewDocumentService(pool *pgxpool.Pool, ledger *Ledger, inventory *InventoryEngine, resolver *AccountResolver) *DocumentService {
	return &DocumentService{pool: pool, ledger: ledger, inventory: inventory, resolver: resolver}
}

// CreateDocumentInput is the common header shared by every document kind at
// creation time (spec.md §3's common Document shape); kind-specific lines
// are supplied alongside it by each kind's own Create function.
type CreateDocumentInput struct {
	CompanyID          int
	Kind               DocumentKind
	Date               time.Time
	LocationID         int
	Currency           string
	VendorOrCustomerID int
	LinkedReceiptID    *int
}

func insertDocumentHeader(ctx context.Context, tx pgx.Tx, in CreateDocumentInput, total money.Amount) (*Document, error) {
	d := &Document{
		CompanyID: in.CompanyID, Kind: in.Kind, Status: StatusDraft, Date: in.Date,
		Total: total, LocationID: in.LocationID, Currency: in.Currency,
		VendorOrCustomerID: in.VendorOrCustomerID, LinkedReceiptID: in.LinkedReceiptID,
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO documents (
			company_id, kind, status, date, total, amount_paid_or_applied,
			location_id, currency, vendor_or_customer_id, linked_receipt_id, created_at
		) VALUES ($1,$2,$3,$4,$5,0,$6,$7,$8,$9,NOW())
		RETURNING id, created_at
	`, in.CompanyID, string(in.Kind), string(StatusDraft), in.Date, total.String(),
		in.LocationID, in.Currency, in.VendorOrCustomerID, in.LinkedReceiptID).Scan(&d.ID, &d.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("document: inserting header: %w", err)
	}
	return d, nil
}

func insertDocumentLines(ctx context.Context, tx pgx.Tx, companyID, documentID int, lines []DocumentLine) error {
	for i, line := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO document_lines (
				company_id, document_id, line_number, item_id, account_id,
				quantity, unit_price, discount_amount, tax_rate, tax_amount, line_total, track_inventory
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		`, companyID, documentID, i+1, line.ItemID, line.AccountID,
			line.Quantity.String(), line.UnitPrice.String(), line.DiscountAmount.String(),
			line.TaxRate.String(), line.TaxAmount.String(), line.LineTotal.String(), line.TrackInventory)
		if err != nil {
			return fmt.Errorf("document: inserting line %d: %w", i+1, err)
		}
	}
	return nil
}

// computeLineTotals fills TaxAmount and LineTotal per spec.md §3 (DocumentLine
// invariant) and §9's open-question resolution: tax is computed per line at
// 2-digit rounding and summed, never computed on the document subtotal.
func computeLineTotals(lines []DocumentLine) (subtotal, tax money.Amount) {
	for i := range lines {
		gross := lines[i].Quantity.MulAmount(lines[i].UnitPrice)
		net := gross.Sub(lines[i].DiscountAmount)
		lines[i].LineTotal = net
		lines[i].TaxAmount = net.MulRate(lines[i].TaxRate)
		subtotal = subtotal.Add(net)
		tax = tax.Add(lines[i].TaxAmount)
	}
	return subtotal, tax
}

func lockDocument(ctx context.Context, tx pgx.Tx, documentID int) (*Document, error) {
	d := &Document{}
	var kind, status string
	err := tx.QueryRow(ctx, `
		SELECT id, company_id, kind, status, date, total, amount_paid_or_applied,
		       journal_entry_id, last_adjustment_journal_entry_id, void_journal_entry_id,
		       location_id, currency, linked_receipt_id, vendor_or_customer_id, created_at
		FROM documents WHERE id = $1 FOR UPDATE
	`, documentID).Scan(&d.ID, &d.CompanyID, &kind, &status, &d.Date, asAmountScan(&d.Total), asAmountScan(&d.AmountPaidOrApplied),
		&d.JournalEntryID, &d.LastAdjustmentJournalEntryID, &d.VoidJournalEntryID,
		&d.LocationID, &d.Currency, &d.LinkedReceiptID, &d.VendorOrCustomerID, &d.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "document %d not found", documentID)
		}
		return nil, fmt.Errorf("document: locking %d: %w", documentID, err)
	}
	d.Kind = DocumentKind(kind)
	d.Status = DocumentStatus(status)
	return d, nil
}

// asAmountScan adapts a money.Amount field to pgx's Scan via a small shim,
// since money.Amount intentionally has no database/sql Scanner of its own
// (every other call site in this package reads into a string first) — this
// helper exists only for lockDocument's wide multi-column SELECT, where
// spelling out a dozen intermediate string locals would obscure the query.
func asAmountScan(a *money.Amount) *amountScanner {
	return &amountScanner{target: a}
}

type amountScanner struct {
	target *money.Amount
}

func (s *amountScanner) Scan(src any) error {
	var str string
	switch v := src.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	case nil:
		*s.target = money.Zero
		return nil
	default:
		return fmt.Errorf("amountScanner: unsupported source type %T", src)
	}
	amt, err := money.NewAmount(str)
	if err != nil {
		return err
	}
	*s.target = amt
	return nil
}

func assertEditable(d *Document) error {
	if d.Status != StatusDraft && d.Status != StatusApproved {
		return apperr.New(apperr.InvalidStateTransition, "document %d is %s, content edits require DRAFT or APPROVED", d.ID, d.Status)
	}
	if d.JournalEntryID != nil {
		return apperr.New(apperr.InvalidStateTransition, "document %d already has a posted journal entry, edit via adjust instead", d.ID)
	}
	return nil
}

// UpdateLines implements the shared {invoice,purchaseBill,vendorCredit}.update
// command: replaces a not-yet-posted document's lines and recomputed total.
// Posting, and the accounting effects that come with it, happens later via
// each kind's own Post.
func (s *DocumentService) UpdateLines(ctx context.Context, tx pgx.Tx, documentID int, lines []DocumentLine) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if err := assertEditable(d); err != nil {
		return nil, err
	}

	subtotal, tax := computeLineTotals(lines)
	total := subtotal.Add(tax)

	if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, documentID); err != nil {
		return nil, fmt.Errorf("document: clearing lines of %d: %w", documentID, err)
	}
	if err := insertDocumentLines(ctx, tx, d.CompanyID, documentID, lines); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET total = $1 WHERE id = $2`, total.String(), documentID); err != nil {
		return nil, fmt.Errorf("document: updating %d total: %w", documentID, err)
	}
	d.Total = total
	return d, nil
}

// Approve implements the DRAFT -> APPROVED transition shared by every
// document kind (spec.md §4.9): audit only, no side effects.
func (s *DocumentService) Approve(ctx context.Context, tx pgx.Tx, documentID int) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Status != StatusDraft {
		return nil, apperr.New(apperr.InvalidStateTransition, "document %d is %s, can only approve from DRAFT", documentID, d.Status)
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET status = $1 WHERE id = $2`, string(StatusApproved), documentID); err != nil {
		return nil, fmt.Errorf("document: approving %d: %w", documentID, err)
	}
	d.Status = StatusApproved
	return d, nil
}

// Delete implements spec.md §4.9's "deletion is permitted only for
// DRAFT/APPROVED without any payments or JE link".
func (s *DocumentService) Delete(ctx context.Context, tx pgx.Tx, documentID int) error {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return err
	}
	if d.Status != StatusDraft && d.Status != StatusApproved {
		return apperr.New(apperr.InvalidStateTransition, "document %d is %s, can only delete DRAFT or APPROVED", documentID, d.Status)
	}
	if d.JournalEntryID != nil {
		return apperr.New(apperr.InvalidStateTransition, "document %d has a posted journal entry, cannot delete", documentID)
	}
	if !d.AmountPaidOrApplied.IsZero() {
		return apperr.New(apperr.InvalidStateTransition, "document %d has settlements recorded, cannot delete", documentID)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, documentID); err != nil {
		return fmt.Errorf("document: deleting lines of %d: %w", documentID, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM documents WHERE id = $1`, documentID); err != nil {
		return fmt.Errorf("document: deleting %d: %w", documentID, err)
	}
	return nil
}

// voidCompensatingStockMoves reverses every inventory-affecting stock move
// tied to documentID by posting an equal-and-opposite move dated voidDate at
// the originally applied unit/total cost (spec.md §4.4.5). Landed-cost value
// adjustments (ApplyStockValueAdjustmentWAC) leave no stock_moves row, so
// they are not reversed here, and voidDocument does not reverse them either:
// the inventory balance keeps the allocated landed-cost value after a void.
func (s *DocumentService) voidCompensatingStockMoves(ctx context.Context, tx pgx.Tx, companyID, documentID int, voidDate time.Time, correlationID string) error {
	rows, err := tx.Query(ctx, `
		SELECT location_id, item_id, direction, quantity, unit_cost_applied, total_cost_applied
		FROM stock_moves
		WHERE company_id = $1 AND reference_type = 'DOCUMENT' AND reference_id = $2
		ORDER BY id ASC
	`, companyID, documentID)
	if err != nil {
		return fmt.Errorf("document: reading stock moves for %d: %w", documentID, err)
	}
	type original struct {
		locationID, itemID int
		direction           Direction
		quantity            money.Qty
		unitCostApplied     money.Rate
		totalCostApplied    money.Amount
	}
	var moves []original
	for rows.Next() {
		var o original
		var dir, qty, unitCost, totalCost string
		if err := rows.Scan(&o.locationID, &o.itemID, &dir, &qty, &unitCost, &totalCost); err != nil {
			rows.Close()
			return fmt.Errorf("document: scanning stock move: %w", err)
		}
		o.direction = Direction(dir)
		o.quantity, _ = money.NewQty(qty)
		o.unitCostApplied, _ = money.NewRate(unitCost)
		o.totalCostApplied, _ = money.NewAmount(totalCost)
		moves = append(moves, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("document: iterating stock moves: %w", err)
	}

	for _, o := range moves {
		compensating := DirectionOut
		if o.direction == DirectionOut {
			compensating = DirectionIn
		}
		override := o.totalCostApplied
		_, err := s.inventory.ApplyStockMoveWAC(ctx, tx, ApplyStockMoveInput{
			CompanyID: companyID, LocationID: o.locationID, ItemID: o.itemID,
			Date: voidDate, Type: MoveAdjustment, Direction: compensating,
			Quantity: o.quantity, UnitCostApplied: o.unitCostApplied, TotalCostOverride: &override,
			ReferenceType: "DOCUMENT_VOID", ReferenceID: documentID, CorrelationID: correlationID,
			AllowBackdated: true, AllowNegative: true,
		})
		if err != nil {
			return fmt.Errorf("document: compensating stock move for %d: %w", documentID, err)
		}
	}
	return nil
}

// voidDocument is the shared body of VoidInvoice/VoidPurchaseBill/
// VoidVendorCredit (spec.md §4.4.5, §4.9's POSTED -> void -> VOID row):
// reverse any live adjustment, reverse the main entry (marking it void),
// reverse stock moves, and annotate the document.
func (s *DocumentService) voidDocument(ctx context.Context, tx pgx.Tx, documentID int, expectedKind DocumentKind, voidDate time.Time, reason, correlationID string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != expectedKind {
		return nil, apperr.New(apperr.InvalidInput, "document %d is not a %s", documentID, expectedKind)
	}
	if d.Status != StatusPosted && d.Status != StatusPartial {
		return nil, apperr.New(apperr.InvalidStateTransition, "document %d is %s, can only void POSTED or PARTIAL", documentID, d.Status)
	}
	if d.JournalEntryID == nil {
		return nil, apperr.New(apperr.InvalidStateTransition, "document %d has no journal entry to void", documentID)
	}

	if d.LastAdjustmentJournalEntryID != nil {
		if _, err := s.ledger.CreateReversal(ctx, tx, *d.LastAdjustmentJournalEntryID, voidDate, reason, false); err != nil {
			return nil, fmt.Errorf("document: reversing adjustment on void of %d: %w", documentID, err)
		}
	}

	reversal, err := s.ledger.CreateReversal(ctx, tx, *d.JournalEntryID, voidDate, reason, true)
	if err != nil {
		return nil, fmt.Errorf("document: reversing main entry on void of %d: %w", documentID, err)
	}

	if err := s.voidCompensatingStockMoves(ctx, tx, d.CompanyID, documentID, voidDate, correlationID); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE documents SET status = $1, void_journal_entry_id = $2 WHERE id = $3
	`, string(StatusVoid), reversal.ID, documentID); err != nil {
		return nil, fmt.Errorf("document: marking %d void: %w", documentID, err)
	}
	d.Status = StatusVoid
	d.VoidJournalEntryID = &reversal.ID

	ev, err := outbox.NewEvent(d.CompanyID, outbox.EventJournalEntryReversed, "Document", fmt.Sprintf("%d", documentID),
		correlationID, "", "ledgercore.document", time.Now(),
		map[string]any{"documentId": documentID, "originalJournalEntryId": *d.JournalEntryID, "reversalJournalEntryId": reversal.ID, "reason": reason})
	if err != nil {
		return nil, err
	}
	if err := outbox.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	return d, nil
}
