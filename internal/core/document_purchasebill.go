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

// CreatePurchaseBillInput is the purchase-bill analogue of
// CreateInvoiceInput. LinkedReceiptID selects the GRNI/PPV posting path of
// spec.md §4.4.3 when set.
type CreatePurchaseBillInput struct {
	CompanyID       int
	Date            time.Time
	LocationID      int
	Currency        string
	VendorID        int
	LinkedReceiptID *int
	Lines           []DocumentLine
}

func (s *DocumentService) CreatePurchaseBill(ctx context.Context, tx pgx.Tx, in CreatePurchaseBillInput) (*Document, error) {
	subtotal, tax := computeLineTotals(in.Lines)
	total := subtotal.Add(tax)

	d, err := insertDocumentHeader(ctx, tx, CreateDocumentInput{
		CompanyID: in.CompanyID, Kind: KindPurchaseBill, Date: in.Date, LocationID: in.LocationID,
		Currency: in.Currency, VendorOrCustomerID: in.VendorID, LinkedReceiptID: in.LinkedReceiptID,
	}, total)
	if err != nil {
		return nil, err
	}
	if err := insertDocumentLines(ctx, tx, in.CompanyID, d.ID, in.Lines); err != nil {
		return nil, err
	}
	return d, nil
}

// CreatePurchaseReceipt records goods received ahead of the vendor's bill.
// Posting books the stock moves at received cost and recognizes the GRNI
// liability for that cost; the subsequent bill clears GRNI and books any
// purchase-price variance (spec.md §4.4.3).
func (s *DocumentService) CreatePurchaseReceipt(ctx context.Context, tx pgx.Tx, in CreatePurchaseBillInput) (*Document, error) {
	total := money.Zero
	for _, l := range in.Lines {
		total = total.Add(l.Quantity.MulAmount(l.UnitPrice))
	}
	d, err := insertDocumentHeader(ctx, tx, CreateDocumentInput{
		CompanyID: in.CompanyID, Kind: KindPurchaseReceipt, Date: in.Date, LocationID: in.LocationID,
		Currency: in.Currency, VendorOrCustomerID: in.VendorID,
	}, total)
	if err != nil {
		return nil, err
	}
	lines := make([]DocumentLine, len(in.Lines))
	for i, l := range in.Lines {
		l.LineTotal = l.Quantity.MulAmount(l.UnitPrice)
		l.TrackInventory = true
		lines[i] = l
	}
	if err := insertDocumentLines(ctx, tx, in.CompanyID, d.ID, lines); err != nil {
		return nil, err
	}
	return d, nil
}

// PostPurchaseReceipt applies IN stock moves at received cost and books
// Dr Inventory / Cr GRNI for the receipt total.
func (s *DocumentService) PostPurchaseReceipt(ctx context.Context, tx pgx.Tx, documentID int, correlationID string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindPurchaseReceipt {
		return nil, apperr.New(apperr.InvalidInput, "document %d is not a purchase receipt", documentID)
	}
	if d.Status != StatusDraft && d.Status != StatusApproved {
		return nil, apperr.New(apperr.InvalidStateTransition, "receipt %d is %s, must be DRAFT or APPROVED to post", documentID, d.Status)
	}

	lines, err := readDocumentLines(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}

	inventoryID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleInventoryAsset)
	if err != nil {
		return nil, err
	}
	grniID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleGRNI)
	if err != nil {
		return nil, err
	}

	for _, l := range lines {
		if l.ItemID == nil {
			continue
		}
		unitCost := money.WAC(l.LineTotal, l.Quantity)
		lineTotal := l.LineTotal
		if _, err := s.inventory.ApplyStockMoveWAC(ctx, tx, ApplyStockMoveInput{
			CompanyID: d.CompanyID, LocationID: d.LocationID, ItemID: *l.ItemID,
			Date: d.Date, Type: MovePurchaseReceipt, Direction: DirectionIn, Quantity: l.Quantity,
			UnitCostApplied: unitCost, TotalCostOverride: &lineTotal,
			ReferenceType: "DOCUMENT", ReferenceID: documentID, CorrelationID: correlationID,
		}); err != nil {
			return nil, err
		}
	}

	entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID: d.CompanyID, Date: d.Date,
		Description: fmt.Sprintf("Purchase receipt %d received", documentID),
		Lines: []JournalLineInput{
			{AccountID: inventoryID, Debit: d.Total},
			{AccountID: grniID, Credit: d.Total},
		},
	})
	if err != nil {
		return nil, err
	}

	number, err := NextDocumentNumber(ctx, tx, d.CompanyID, KindPurchaseReceipt)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET status = $1, journal_entry_id = $2, number = $3 WHERE id = $4`,
		string(StatusPosted), entry.ID, number, documentID); err != nil {
		return nil, fmt.Errorf("receipt: updating %d after post: %w", documentID, err)
	}
	d.Status = StatusPosted
	d.JournalEntryID = &entry.ID
	d.Number = &number
	return d, nil
}

// PostPurchaseBill implements spec.md §4.4.3 in both variants.
func (s *DocumentService) PostPurchaseBill(ctx context.Context, tx pgx.Tx, documentID int, correlationID string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindPurchaseBill {
		return nil, apperr.New(apperr.InvalidInput, "document %d is not a purchase bill", documentID)
	}
	if d.Status != StatusDraft && d.Status != StatusApproved {
		return nil, apperr.New(apperr.InvalidStateTransition, "bill %d is %s, must be DRAFT or APPROVED to post", documentID, d.Status)
	}

	lines, err := readDocumentLines(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}

	apID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleAccountsPayable)
	if err != nil {
		return nil, err
	}

	var journalLines []JournalLineInput
	var stockApplied []DocumentLine

	if d.LinkedReceiptID == nil {
		inventoryID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleInventoryAsset)
		if err != nil {
			return nil, err
		}
		inventoryTotal := money.Zero
		for _, l := range lines {
			if l.TrackInventory && l.ItemID != nil {
				inventoryTotal = inventoryTotal.Add(l.LineTotal)
				stockApplied = append(stockApplied, l)
			} else if l.AccountID != nil {
				journalLines = append(journalLines, JournalLineInput{AccountID: *l.AccountID, Debit: l.LineTotal})
			}
		}
		if inventoryTotal.IsPositive() {
			journalLines = append(journalLines, JournalLineInput{AccountID: inventoryID, Debit: inventoryTotal})
		}
		journalLines = append(journalLines, JournalLineInput{AccountID: apID, Credit: d.Total})
	} else {
		receiptID := *d.LinkedReceiptID
		receiptLines, err := readDocumentLines(ctx, tx, receiptID)
		if err != nil {
			return nil, err
		}
		var receipt Document
		err = tx.QueryRow(ctx, `SELECT company_id, location_id, date, total FROM documents WHERE id = $1`, receiptID).
			Scan(&receipt.CompanyID, &receipt.LocationID, &receipt.Date, asAmountScan(&receipt.Total))
		if err != nil {
			return nil, fmt.Errorf("purchase bill: loading linked receipt %d: %w", receiptID, err)
		}
		receiptTotal := receipt.Total

		inventoryBilledTotal := money.Zero
		landedCostTotal := money.Zero
		for _, l := range lines {
			if l.TrackInventory {
				inventoryBilledTotal = inventoryBilledTotal.Add(l.LineTotal)
			} else if l.AccountID != nil {
				landedCostTotal = landedCostTotal.Add(l.LineTotal)
			}
		}

		grniID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleGRNI)
		if err != nil {
			return nil, err
		}
		inventoryID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleInventoryAsset)
		if err != nil {
			return nil, err
		}
		ppvID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RulePurchasePriceVariance)
		if err != nil {
			return nil, err
		}

		journalLines = append(journalLines, JournalLineInput{AccountID: grniID, Debit: receiptTotal})
		if landedCostTotal.IsPositive() {
			journalLines = append(journalLines, JournalLineInput{AccountID: inventoryID, Debit: landedCostTotal})
		}
		ppv := inventoryBilledTotal.Sub(receiptTotal)
		if ppv.IsPositive() {
			journalLines = append(journalLines, JournalLineInput{AccountID: ppvID, Debit: ppv})
		} else if ppv.IsNegative() {
			journalLines = append(journalLines, JournalLineInput{AccountID: ppvID, Credit: ppv.Neg()})
		}
		journalLines = append(journalLines, JournalLineInput{AccountID: apID, Credit: d.Total})

		if landedCostTotal.IsPositive() && len(receiptLines) > 0 {
			if err := allocateLandedCost(ctx, tx, s.inventory, d.CompanyID, documentID, receipt.LocationID, receiptLines, receiptTotal, landedCostTotal); err != nil {
				return nil, err
			}
		}
	}

	entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID: d.CompanyID, Date: d.Date,
		Description: fmt.Sprintf("Purchase bill %d posted", documentID),
		Lines:       journalLines,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range stockApplied {
		unitCost := money.WAC(l.LineTotal, l.Quantity)
		lineTotal := l.LineTotal
		if _, err := s.inventory.ApplyStockMoveWAC(ctx, tx, ApplyStockMoveInput{
			CompanyID: d.CompanyID, LocationID: d.LocationID, ItemID: *l.ItemID,
			Date: d.Date, Type: MovePurchaseReceipt, Direction: DirectionIn, Quantity: l.Quantity,
			UnitCostApplied: unitCost, TotalCostOverride: &lineTotal,
			ReferenceType: "DOCUMENT", ReferenceID: documentID, CorrelationID: correlationID,
		}); err != nil {
			return nil, err
		}
	}

	number, err := NextDocumentNumber(ctx, tx, d.CompanyID, KindPurchaseBill)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET status = $1, journal_entry_id = $2, number = $3 WHERE id = $4`,
		string(StatusPosted), entry.ID, number, documentID); err != nil {
		return nil, fmt.Errorf("purchase bill: updating %d after post: %w", documentID, err)
	}
	d.Status = StatusPosted
	d.JournalEntryID = &entry.ID
	d.Number = &number

	ev, err := outbox.NewEvent(d.CompanyID, outbox.EventJournalEntryCreated, "Document", fmt.Sprintf("%d", documentID),
		correlationID, "", "ledgercore.purchasebill", time.Now(), map[string]any{"documentId": documentID, "journalEntryId": entry.ID})
	if err != nil {
		return nil, err
	}
	if err := outbox.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	return d, nil
}

// AdjustPurchaseBill implements purchaseBill.adjust (spec.md §4.4.2) for the
// no-linked-receipt path: recompute lines, diff nets against the live
// journal state, post a balanced delta. A bill posted against a linked
// receipt carries GRNI/PPV lines an arbitrary line-content edit cannot
// safely re-derive, so adjustment is only supported here for bills with no
// LinkedReceiptID; use void+recreate for the linked-receipt case.
func (s *DocumentService) AdjustPurchaseBill(ctx context.Context, tx pgx.Tx, documentID int, newLines []DocumentLine, date time.Time, description string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindPurchaseBill || d.JournalEntryID == nil {
		return nil, apperr.New(apperr.InvalidStateTransition, "purchase bill %d has no posted entry to adjust", documentID)
	}
	if d.LinkedReceiptID != nil {
		return nil, apperr.New(apperr.InvalidStateTransition, "purchase bill %d was posted against a linked receipt and cannot be adjusted; void and recreate instead", documentID)
	}

	subtotal, tax := computeLineTotals(newLines)
	total := subtotal.Add(tax)

	apID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleAccountsPayable)
	if err != nil {
		return nil, err
	}
	inventoryID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleInventoryAsset)
	if err != nil {
		return nil, err
	}

	desired := []JournalLineInput{{AccountID: apID, Credit: total}}
	inventoryTotal := money.Zero
	for _, l := range newLines {
		if l.TrackInventory && l.ItemID != nil {
			inventoryTotal = inventoryTotal.Add(l.LineTotal)
		} else if l.AccountID != nil {
			desired = append(desired, JournalLineInput{AccountID: *l.AccountID, Debit: l.LineTotal})
		}
	}
	if inventoryTotal.IsPositive() {
		desired = append(desired, JournalLineInput{AccountID: inventoryID, Debit: inventoryTotal})
	}

	entry, err := s.ledger.PostNetDeltaAdjustment(ctx, tx, d.CompanyID, date, description, *d.JournalEntryID, d.LastAdjustmentJournalEntryID, desired)
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `DELETE FROM document_lines WHERE document_id = $1`, documentID); err != nil {
		return nil, fmt.Errorf("purchase bill: clearing lines of %d: %w", documentID, err)
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
		return nil, fmt.Errorf("purchase bill: updating %d after adjust: %w", documentID, err)
	}
	d.Total = total
	d.LastAdjustmentJournalEntryID = adjustmentID
	return d, nil
}

// allocateLandedCost implements spec.md §4.4.3's allocation rule: each
// receipt line's share of receiptTotal, remainder to the last line to
// preserve rounding closure (§9's resolution of the weighting open
// question). §9 also says to reject allocation if the weight base sums to
// zero; this function rejects a zero receiptTotal itself with InvalidInput,
// since it would make every weight zero.
func allocateLandedCost(ctx context.Context, tx pgx.Tx, inv *InventoryEngine, companyID, billID, locationID int, receiptLines []DocumentLine, receiptTotal, landedCostTotal money.Amount) error {
	if receiptTotal.IsZero() {
		return apperr.New(apperr.InvalidInput, "cannot allocate landed cost: receipt total is zero")
	}
	allocated := money.Zero
	for i, rl := range receiptLines {
		if rl.ItemID == nil {
			continue
		}
		var share money.Amount
		if i == len(receiptLines)-1 {
			share = landedCostTotal.Sub(allocated)
		} else {
			shareDecimal := landedCostTotal.Decimal().Mul(rl.LineTotal.Decimal()).Div(receiptTotal.Decimal())
			share = money.NewAmountFromDecimal(shareDecimal)
			allocated = allocated.Add(share)
		}
		if !share.IsZero() {
			if err := inv.ApplyStockValueAdjustmentWAC(ctx, tx, companyID, locationID, *rl.ItemID, share); err != nil {
				return err
			}
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO purchase_bill_landed_cost_allocations (company_id, purchase_bill_id, purchase_receipt_line_id, amount)
			VALUES ($1, $2, $3, $4)
		`, companyID, billID, rl.ID, share.String()); err != nil {
			return fmt.Errorf("purchase bill: recording landed cost allocation: %w", err)
		}
	}
	return nil
}

func readDocumentLines(ctx context.Context, tx pgx.Tx, documentID int) ([]DocumentLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, item_id, account_id, quantity, unit_price, discount_amount, tax_rate, tax_amount, line_total, track_inventory
		FROM document_lines WHERE document_id = $1 ORDER BY line_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("document: reading lines of %d: %w", documentID, err)
	}
	defer rows.Close()
	var lines []DocumentLine
	for rows.Next() {
		var l DocumentLine
		var qty, unitPrice, discount, taxRate, taxAmt, lineTotal string
		if err := rows.Scan(&l.ID, &l.ItemID, &l.AccountID, &qty, &unitPrice, &discount, &taxRate, &taxAmt, &lineTotal, &l.TrackInventory); err != nil {
			return nil, fmt.Errorf("document: scanning line: %w", err)
		}
		l.Quantity, _ = money.NewQty(qty)
		l.UnitPrice, _ = money.NewAmount(unitPrice)
		l.DiscountAmount, _ = money.NewAmount(discount)
		l.TaxRate, _ = money.NewRate(taxRate)
		l.TaxAmount, _ = money.NewAmount(taxAmt)
		l.LineTotal, _ = money.NewAmount(lineTotal)
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

// VoidPurchaseBill implements spec.md §8 scenario 6.
func (s *DocumentService) VoidPurchaseBill(ctx context.Context, tx pgx.Tx, documentID int, voidDate time.Time, reason, correlationID string) (*Document, error) {
	return s.voidDocument(ctx, tx, documentID, KindPurchaseBill, voidDate, reason, correlationID)
}
