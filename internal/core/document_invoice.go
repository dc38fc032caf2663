package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/apperr"
	"ledgercore/internal/money"
	"ledgercore/internal/outbox"
)

// CreateInvoiceInput mirrors the teacher's order creation input
// (order_model.go's CreateOrderInput), retargeted at spec.md §3's Document +
// DocumentLine shape instead of the teacher's SalesOrder.
type CreateInvoiceInput struct {
	CompanyID  int
	Date       time.Time
	LocationID int
	Currency   string
	CustomerID int
	Lines      []DocumentLine
}

// CreateInvoice inserts a DRAFT invoice with computed line/document totals.
// No journal entry exists yet — see PostInvoice.
func (s *DocumentService) CreateInvoice(ctx context.Context, tx pgx.Tx, in CreateInvoiceInput) (*Document, error) {
	subtotal, tax := computeLineTotals(in.Lines)
	total := subtotal.Add(tax)

	d, err := insertDocumentHeader(ctx, tx, CreateDocumentInput{
		CompanyID: in.CompanyID, Kind: KindInvoice, Date: in.Date, LocationID: in.LocationID,
		Currency: in.Currency, VendorOrCustomerID: in.CustomerID,
	}, total)
	if err != nil {
		return nil, err
	}
	if err := insertDocumentLines(ctx, tx, in.CompanyID, d.ID, in.Lines); err != nil {
		return nil, err
	}
	return d, nil
}

// PostInvoice implements spec.md §8 scenario 1: Dr AR total, Cr Sales Income
// subtotal, Cr Tax Payable tax. Tracked-inventory lines additionally issue a
// SALE_ISSUE stock move at current WAC in the same transaction. The journal
// entry holds only the AR, sales and tax lines; no COGS / Inventory lines
// are posted for those stock moves.
func (s *DocumentService) PostInvoice(ctx context.Context, tx pgx.Tx, documentID int, correlationID string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindInvoice {
		return nil, apperr.New(apperr.InvalidInput, "document %d is not an invoice", documentID)
	}
	if d.Status != StatusDraft && d.Status != StatusApproved {
		return nil, apperr.New(apperr.InvalidStateTransition, "invoice %d is %s, must be DRAFT or APPROVED to post", documentID, d.Status)
	}

	rows, err := tx.Query(ctx, `
		SELECT id, item_id, account_id, quantity, unit_price, discount_amount, tax_rate, tax_amount, line_total, track_inventory
		FROM document_lines WHERE document_id = $1 ORDER BY line_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("invoice: reading lines of %d: %w", documentID, err)
	}
	var lines []DocumentLine
	for rows.Next() {
		var l DocumentLine
		var qty, unitPrice, discount, taxRate, taxAmt, lineTotal string
		if err := rows.Scan(&l.ID, &l.ItemID, &l.AccountID, &qty, &unitPrice, &discount, &taxRate, &taxAmt, &lineTotal, &l.TrackInventory); err != nil {
			rows.Close()
			return nil, fmt.Errorf("invoice: scanning line: %w", err)
		}
		l.Quantity, _ = money.NewQty(qty)
		l.UnitPrice, _ = money.NewAmount(unitPrice)
		l.DiscountAmount, _ = money.NewAmount(discount)
		l.TaxRate, _ = money.NewRate(taxRate)
		l.TaxAmount, _ = money.NewAmount(taxAmt)
		l.LineTotal, _ = money.NewAmount(lineTotal)
		lines = append(lines, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("invoice: iterating lines: %w", err)
	}

	subtotal, tax := money.Zero, money.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal)
		tax = tax.Add(l.TaxAmount)
	}
	recomputedTotal := subtotal.Add(tax)
	if !recomputedTotal.Equal(d.Total) {
		return nil, apperr.New(apperr.RoundingMismatch, "invoice %d: stored total %s != recomputed %s", documentID, d.Total, recomputedTotal)
	}

	arID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleAccountsReceivable)
	if err != nil {
		return nil, err
	}
	salesID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleSalesIncome)
	if err != nil {
		return nil, err
	}

	journalLines := []JournalLineInput{{AccountID: arID, Debit: d.Total}}
	if subtotal.IsPositive() {
		journalLines = append(journalLines, JournalLineInput{AccountID: salesID, Credit: subtotal})
	}
	if tax.IsPositive() {
		// Tax Payable is auto-provisioned like the other control accounts,
		// but is not cached on the Company row (see resolveTaxPayable).
		id, err := s.resolveTaxPayable(ctx, tx, d.CompanyID)
		if err != nil {
			return nil, err
		}
		journalLines = append(journalLines, JournalLineInput{AccountID: id, Credit: tax})
	}

	entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID: d.CompanyID, Date: d.Date,
		Description: fmt.Sprintf("Invoice %s posted", deref(d.Number)),
		Lines:       journalLines,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if !l.TrackInventory || l.ItemID == nil {
			continue
		}
		if _, err := s.inventory.ApplyStockMoveWAC(ctx, tx, ApplyStockMoveInput{
			CompanyID: d.CompanyID, LocationID: d.LocationID, ItemID: *l.ItemID,
			Date: d.Date, Type: MoveSaleIssue, Direction: DirectionOut, Quantity: l.Quantity,
			ReferenceType: "DOCUMENT", ReferenceID: documentID, CorrelationID: correlationID,
		}); err != nil {
			return nil, err
		}
	}

	number, err := NextDocumentNumber(ctx, tx, d.CompanyID, KindInvoice)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE documents SET status = $1, journal_entry_id = $2, number = $3 WHERE id = $4
	`, string(StatusPosted), entry.ID, number, documentID); err != nil {
		return nil, fmt.Errorf("invoice: updating %d after post: %w", documentID, err)
	}
	d.Status = StatusPosted
	d.JournalEntryID = &entry.ID
	d.Number = &number

	ev, err := outbox.NewEvent(d.CompanyID, outbox.EventJournalEntryCreated, "Document", fmt.Sprintf("%d", documentID),
		correlationID, "", "ledgercore.invoice", time.Now(), map[string]any{"documentId": documentID, "journalEntryId": entry.ID})
	if err != nil {
		return nil, err
	}
	if err := outbox.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	return d, nil
}

// resolveTaxPayable is kept distinct from AccountResolver's fixed rule table
// since TaxPayable is not one of the Company-cached accounts enumerated in
// spec.md §3 — it is looked up in account_rules (rule type TAX_PAYABLE) and,
// when no rule matches, auto-provisioned as account 2200-TAX; the result is
// not cached on the Company row. One company-wide control account is used
// rather than one per jurisdiction/tax code.
func (s *DocumentService) resolveTaxPayable(ctx context.Context, tx pgx.Tx, companyID int) (int, error) {
	var accountID int
	err := tx.QueryRow(ctx, `
		SELECT account_id FROM account_rules
		WHERE company_id = $1 AND rule_type = 'TAX_PAYABLE'
		ORDER BY priority DESC LIMIT 1
	`, companyID).Scan(&accountID)
	if err == nil {
		return accountID, nil
	}
	return provisionAccount(ctx, tx, companyID, ruleDefault{
		column: "", defaultCode: "2200-TAX", defaultName: "Tax Payable",
		accountType: AccountLiability, normalBalance: NormalCredit,
	})
}

// AdjustInvoice edits an already-posted invoice's content without stock
// effects (spec.md §4.4.2): recompute lines, diff nets, post a delta entry.
func (s *DocumentService) AdjustInvoice(ctx context.Context, tx pgx.Tx, documentID int, newLines []DocumentLine, date time.Time, description string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindInvoice || d.JournalEntryID == nil {
		return nil, apperr.New(apperr.InvalidStateTransition, "invoice %d has no posted entry to adjust", documentID)
	}

	subtotal, tax := computeLineTotals(newLines)
	total := subtotal.Add(tax)

	arID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleAccountsReceivable)
	if err != nil {
		return nil, err
	}
	salesID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleSalesIncome)
	if err != nil {
		return nil, err
	}
	taxID, err := s.resolveTaxPayable(ctx, tx, d.CompanyID)
	if err != nil {
		return nil, err
	}

	desired := []JournalLineInput{{AccountID: arID, Debit: total}}
	if subtotal.IsPositive() {
		desired = append(desired, JournalLineInput{AccountID: salesID, Credit: subtotal})
	}
	if tax.IsPositive() {
		desired = append(desired, JournalLineInput{AccountID: taxID, Credit: tax})
	}

	entry, err := s.ledger.PostNetDeltaAdjustment(ctx, tx, d.CompanyID, date, description, *d.JournalEntryID, d.LastAdjustmentJournalEntryID, desired)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, documentID); err != nil {
		return nil, fmt.Errorf("invoice: clearing lines of %d: %w", documentID, err)
	}
	if err := insertDocumentLines(ctx, tx, d.CompanyID, documentID, newLines); err != nil {
		return nil, err
	}

	var adjustmentID *int
	if entry != nil {
		adjustmentID = &entry.ID
	}
	if _, err := tx.Exec(ctx, `
		UPDATE documents SET total = $1, last_adjustment_journal_entry_id = $2 WHERE id = $3
	`, total.String(), adjustmentID, documentID); err != nil {
		return nil, fmt.Errorf("invoice: updating %d after adjust: %w", documentID, err)
	}
	d.Total = total
	d.LastAdjustmentJournalEntryID = adjustmentID
	return d, nil
}

// VoidInvoice implements spec.md §4.4.5/§4.9: reverse any live adjustment,
// reverse the main entry, reverse stock moves, annotate void metadata.
func (s *DocumentService) VoidInvoice(ctx context.Context, tx pgx.Tx, documentID int, voidDate time.Time, reason, correlationID string) (*Document, error) {
	return s.voidDocument(ctx, tx, documentID, KindInvoice, voidDate, reason, correlationID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
