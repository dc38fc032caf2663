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

// CreateAdvanceInput covers both CustomerAdvance and VendorAdvance: the
// command surface lists only `{create, apply}` for vendorAdvance (no
// separate post step), so an advance books its funds-movement entry
// atomically at creation — there is no DRAFT/APPROVED window for it.
type CreateAdvanceInput struct {
	CompanyID          int
	Kind               DocumentKind // KindCustomerAdvance or KindVendorAdvance
	Date               time.Time
	LocationID         int
	Currency           string
	VendorOrCustomerID int
	BankAccountID      int
	Amount             money.Amount
	CorrelationID      string
}

// CreateAdvance books the advance and returns it already POSTED.
func (s *DocumentService) CreateAdvance(ctx context.Context, tx pgx.Tx, in CreateAdvanceInput) (*Document, error) {
	if in.Kind != KindCustomerAdvance && in.Kind != KindVendorAdvance {
		return nil, apperr.New(apperr.InvalidInput, "advance kind must be CUSTOMER_ADVANCE or VENDOR_ADVANCE, got %s", in.Kind)
	}
	if !in.Amount.IsPositive() {
		return nil, apperr.New(apperr.InvalidInput, "advance amount must be positive")
	}

	bank, err := loadBankAccount(ctx, tx, in.BankAccountID)
	if err != nil {
		return nil, err
	}
	if bank.companyID != in.CompanyID {
		return nil, apperr.New(apperr.TenantScopeViolation, "bank account %d does not belong to company %d", in.BankAccountID, in.CompanyID)
	}

	d, err := insertDocumentHeader(ctx, tx, CreateDocumentInput{
		CompanyID: in.CompanyID, Kind: in.Kind, Date: in.Date, LocationID: in.LocationID,
		Currency: in.Currency, VendorOrCustomerID: in.VendorOrCustomerID,
	}, in.Amount)
	if err != nil {
		return nil, err
	}

	var lines []JournalLineInput
	var description string
	if in.Kind == KindVendorAdvance {
		prepayID, err := s.resolver.Resolve(ctx, tx, in.CompanyID, RuleVendorPrepayment)
		if err != nil {
			return nil, err
		}
		lines = []JournalLineInput{
			{AccountID: prepayID, Debit: in.Amount},
			{AccountID: bank.accountID, Credit: in.Amount},
		}
		description = fmt.Sprintf("Vendor advance %d paid", d.ID)
	} else {
		prepayID, err := s.resolver.Resolve(ctx, tx, in.CompanyID, RuleCustomerPrepayment)
		if err != nil {
			return nil, err
		}
		lines = []JournalLineInput{
			{AccountID: bank.accountID, Debit: in.Amount},
			{AccountID: prepayID, Credit: in.Amount},
		}
		description = fmt.Sprintf("Customer advance %d received", d.ID)
	}

	entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID: in.CompanyID, Date: in.Date, Description: description, Lines: lines,
	})
	if err != nil {
		return nil, err
	}

	number, err := NextDocumentNumber(ctx, tx, in.CompanyID, in.Kind)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `UPDATE documents SET status = $1, journal_entry_id = $2, number = $3 WHERE id = $4`,
		string(StatusPosted), entry.ID, number, d.ID); err != nil {
		return nil, fmt.Errorf("advance: updating %d after post: %w", d.ID, err)
	}
	d.Status = StatusPosted
	d.JournalEntryID = &entry.ID
	d.Number = &number

	ev, err := outbox.NewEvent(in.CompanyID, outbox.EventJournalEntryCreated, "Document", fmt.Sprintf("%d", d.ID),
		in.CorrelationID, "", "ledgercore.advance", time.Now(), map[string]any{"documentId": d.ID, "journalEntryId": entry.ID})
	if err != nil {
		return nil, err
	}
	if err := outbox.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	return d, nil
}
