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

// CreateVendorCreditInput mirrors CreatePurchaseBillInput; a vendor credit
// note reverses some or all of a prior bill's inventory/expense lines.
type CreateVendorCreditInput struct {
	CompanyID  int
	Date       time.Time
	LocationID int
	Currency   string
	VendorID   int
	Lines      []DocumentLine
}

func (s *DocumentService) CreateVendorCredit(ctx context.Context, tx pgx.Tx, in CreateVendorCreditInput) (*Document, error) {
	subtotal, tax := computeLineTotals(in.Lines)
	total := subtotal.Add(tax)
	d, err := insertDocumentHeader(ctx, tx, CreateDocumentInput{
		CompanyID: in.CompanyID, Kind: KindVendorCredit, Date: in.Date, LocationID: in.LocationID,
		Currency: in.Currency, VendorOrCustomerID: in.VendorID,
	}, total)
	if err != nil {
		return nil, err
	}
	if err := insertDocumentLines(ctx, tx, in.CompanyID, d.ID, in.Lines); err != nil {
		return nil, err
	}
	return d, nil
}

// PostVendorCredit books the credit received from the vendor: it creates a
// drawable VendorPrepayment balance (Dr VendorPrepayment) against the
// reversal of the original inventory/expense lines (Cr Inventory/Expense per
// line), and issues a compensating OUT stock move for tracked-inventory
// lines (goods returned). This draws down later via
// SettlementService.ApplyCredit.
func (s *DocumentService) PostVendorCredit(ctx context.Context, tx pgx.Tx, documentID int, correlationID string) (*Document, error) {
	d, err := lockDocument(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	if d.Kind != KindVendorCredit {
		return nil, apperr.New(apperr.InvalidInput, "document %d is not a vendor credit", documentID)
	}
	if d.Status != StatusDraft && d.Status != StatusApproved {
		return nil, apperr.New(apperr.InvalidStateTransition, "vendor credit %d is %s, must be DRAFT or APPROVED to post", documentID, d.Status)
	}

	lines, err := readDocumentLines(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}

	prepayID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleVendorPrepayment)
	if err != nil {
		return nil, err
	}
	inventoryID, err := s.resolver.Resolve(ctx, tx, d.CompanyID, RuleInventoryAsset)
	if err != nil {
		return nil, err
	}

	journalLines := []JournalLineInput{{AccountID: prepayID, Debit: d.Total}}
	inventoryTotal := money.Zero
	var stockLines []DocumentLine
	for _, l := range lines {
		if l.TrackInventory && l.ItemID != nil {
			inventoryTotal = inventoryTotal.Add(l.LineTotal)
			stockLines = append(stockLines, l)
		} else if l.AccountID != nil {
			journalLines = append(journalLines, JournalLineInput{AccountID: *l.AccountID, Credit: l.LineTotal})
		}
	}
	if inventoryTotal.IsPositive() {
		journalLines = append(journalLines, JournalLineInput{AccountID: inventoryID, Credit: inventoryTotal})
	}

	entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID: d.CompanyID, Date: d.Date,
		Description: fmt.Sprintf("Vendor credit %d posted", documentID),
		Lines:       journalLines,
	})
	if err != nil {
		return nil, err
	}

	for _, l := range stockLines {
		if l.Quantity.IsZero() {
			continue
		}
		if _, err := s.inventory.ApplyStockMoveWAC(ctx, tx, ApplyStockMoveInput{
			CompanyID: d.CompanyID, LocationID: d.LocationID, ItemID: *l.ItemID,
			Date: d.Date, Type: MovePurchaseReturn, Direction: DirectionOut, Quantity: l.Quantity,
			ReferenceType: "DOCUMENT", ReferenceID: documentID, CorrelationID: correlationID,
		}); err != nil {
			return nil, err
		}
	}

	number, err := NextDocumentNumber(ctx, tx, d.CompanyID, KindVendorCredit)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET status = $1, journal_entry_id = $2, number = $3 WHERE id = $4`,
		string(StatusPosted), entry.ID, number, documentID); err != nil {
		return nil, fmt.Errorf("vendor credit: updating %d after post: %w", documentID, err)
	}
	d.Status = StatusPosted
	d.JournalEntryID = &entry.ID
	d.Number = &number

	ev, err := outbox.NewEvent(d.CompanyID, outbox.EventJournalEntryCreated, "Document", fmt.Sprintf("%d", documentID),
		correlationID, "", "ledgercore.vendorcredit", time.Now(), map[string]any{"documentId": documentID, "journalEntryId": entry.ID})
	if err != nil {
		return nil, err
	}
	if err := outbox.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	return d, nil
}

func (s *DocumentService) VoidVendorCredit(ctx context.Context, tx pgx.Tx, documentID int, voidDate time.Time, reason, correlationID string) (*Document, error) {
	return s.voidDocument(ctx, tx, documentID, KindVendorCredit, voidDate, reason, correlationID)
}
