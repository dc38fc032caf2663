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

// SettlementService implements spec.md §4.8's shared recordPayment /
// applyCredit / applyAdvance template, generalized from the teacher's
// purchase_order_service.go PayVendor and order_service.go RecordPayment —
// both of which post a single bank-vs-AP/AR entry and stamp the document
// paid; this generalizes the "source of funds" side to a bank account, a
// vendor/customer prepayment account, and tracks PARTIAL vs PAID.
type SettlementService struct {
	pool     *pgxpool.Pool
	ledger   *Ledger
	resolver *AccountResolver
}

func NewSettlementService(pool *pgxpool.Pool, ledger *Ledger, resolver *AccountResolver) *SettlementService {
	return &SettlementService{pool: pool, ledger: ledger, resolver: resolver}
}

type settlementDocument struct {
	id        int
	companyID int
	kind      DocumentKind
	status    DocumentStatus
	total     money.Amount
}

func lockDocumentForSettlement(ctx context.Context, tx pgx.Tx, documentID int) (*settlementDocument, error) {
	var d settlementDocument
	var kind, status, total string
	err := tx.QueryRow(ctx, `
		SELECT id, company_id, kind, status, total
		FROM documents
		WHERE id = $1
		FOR UPDATE
	`, documentID).Scan(&d.id, &d.companyID, &kind, &status, &total)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "document %d not found", documentID)
		}
		return nil, fmt.Errorf("settlement: locking document %d: %w", documentID, err)
	}
	d.kind = DocumentKind(kind)
	d.status = DocumentStatus(status)
	d.total, _ = money.NewAmount(total)
	if d.status != StatusPosted && d.status != StatusPartial {
		return nil, apperr.New(apperr.InvalidStateTransition, "document %d is %s, must be POSTED or PARTIAL to settle", documentID, d.status)
	}
	return &d, nil
}

func settledTotal(ctx context.Context, tx pgx.Tx, documentID int) (money.Amount, error) {
	var sum string
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount::numeric), 0) FROM settlements
		WHERE document_id = $1 AND reversed_at IS NULL
	`, documentID).Scan(&sum)
	if err != nil {
		return money.Zero, fmt.Errorf("settlement: summing settlements for document %d: %w", documentID, err)
	}
	return money.NewAmount(sum)
}

// settle is the shared step sequence of spec.md §4.8, steps 1-7. buildLines
// produces the JE lines for this settlement's amount against this document;
// it is the only thing that differs between RecordPayment/ApplyCredit/ApplyAdvance.
func (s *SettlementService) settle(
	ctx context.Context, tx pgx.Tx,
	documentID int, kind SettlementKind, sourceID *int,
	amount money.Amount, date time.Time, correlationID string,
	buildLines func(doc *settlementDocument) ([]JournalLineInput, error),
) (*Settlement, error) {
	doc, err := lockDocumentForSettlement(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}

	alreadySettled, err := settledTotal(ctx, tx, documentID)
	if err != nil {
		return nil, err
	}
	remaining := doc.total.Sub(alreadySettled)

	if !amount.IsPositive() || amount.GreaterThan(remaining) {
		return nil, apperr.New(apperr.Overpayment, "document %d: amount %s exceeds remaining %s", documentID, amount, remaining)
	}

	lines, err := buildLines(doc)
	if err != nil {
		return nil, err
	}

	entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID:   doc.companyID,
		Date:        date,
		Description: fmt.Sprintf("%s of %s against document %d", kind, amount, documentID),
		Lines:       lines,
	})
	if err != nil {
		return nil, err
	}

	settlement := &Settlement{
		CompanyID: doc.companyID, Kind: kind, DocumentID: documentID, SourceID: sourceID,
		Date: date, Amount: amount, JournalEntryID: &entry.ID,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO settlements (company_id, kind, document_id, source_id, date, amount, journal_entry_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, doc.companyID, string(kind), documentID, sourceID, date, amount.String(), entry.ID).Scan(&settlement.ID)
	if err != nil {
		return nil, fmt.Errorf("settlement: inserting settlement row: %w", err)
	}

	newTotalSettled := alreadySettled.Add(amount)
	newStatus := StatusPartial
	if !newTotalSettled.LessThan(doc.total) {
		newStatus = StatusPaid
	}
	if _, err := tx.Exec(ctx, `
		UPDATE documents SET status = $1, amount_paid_or_applied = $2 WHERE id = $3
	`, string(newStatus), newTotalSettled.String(), documentID); err != nil {
		return nil, fmt.Errorf("settlement: updating document %d status: %w", documentID, err)
	}

	ev, err := outbox.NewEvent(doc.companyID, outbox.EventJournalEntryCreated, "JournalEntry", fmt.Sprintf("%d", entry.ID),
		correlationID, "", "ledgercore.settlement", time.Now(),
		map[string]any{"documentId": documentID, "settlementId": settlement.ID, "kind": string(kind), "amount": amount.String()})
	if err != nil {
		return nil, fmt.Errorf("settlement: building event: %w", err)
	}
	if err := outbox.Insert(ctx, tx, ev); err != nil {
		return nil, err
	}

	return settlement, nil
}

type bankAccount struct {
	id                int
	companyID         int
	accountID         int
	isBankingAccount  bool
	isCreditCard      bool
}

func loadBankAccount(ctx context.Context, tx pgx.Tx, bankAccountID int) (*bankAccount, error) {
	var b bankAccount
	err := tx.QueryRow(ctx, `
		SELECT id, company_id, account_id, is_banking_account, is_credit_card
		FROM bank_accounts WHERE id = $1
	`, bankAccountID).Scan(&b.id, &b.companyID, &b.accountID, &b.isBankingAccount, &b.isCreditCard)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "bank account %d not found", bankAccountID)
		}
		return nil, fmt.Errorf("settlement: loading bank account %d: %w", bankAccountID, err)
	}
	return &b, nil
}

// RecordPayment implements invoice.applyPayment / purchaseBill.applyPayment
// (spec.md §4.4.4, §4.8): debit AP / credit bank for a vendor payment, debit
// bank / credit AR for a customer payment.
func (s *SettlementService) RecordPayment(ctx context.Context, tx pgx.Tx, documentID, bankAccountID int, amount money.Amount, date time.Time, correlationID string) (*Settlement, error) {
	bank, err := loadBankAccount(ctx, tx, bankAccountID)
	if err != nil {
		return nil, err
	}
	if !bank.isBankingAccount {
		return nil, apperr.New(apperr.InvalidInput, "account %d is not registered as a banking account", bankAccountID)
	}

	return s.settle(ctx, tx, documentID, SettlementPayment, &bankAccountID, amount, date, correlationID, func(doc *settlementDocument) ([]JournalLineInput, error) {
		if bank.companyID != doc.companyID {
			return nil, apperr.New(apperr.TenantScopeViolation, "bank account %d does not belong to company %d", bankAccountID, doc.companyID)
		}
		switch doc.kind {
		case KindPurchaseBill:
			if bank.isCreditCard {
				return nil, apperr.New(apperr.InvalidInput, "credit-card account %d cannot be a source of vendor payment", bankAccountID)
			}
			apID, err := s.resolver.Resolve(ctx, tx, doc.companyID, RuleAccountsPayable)
			if err != nil {
				return nil, err
			}
			return []JournalLineInput{
				{AccountID: apID, Debit: amount},
				{AccountID: bank.accountID, Credit: amount},
			}, nil
		case KindInvoice:
			arID, err := s.resolver.Resolve(ctx, tx, doc.companyID, RuleAccountsReceivable)
			if err != nil {
				return nil, err
			}
			return []JournalLineInput{
				{AccountID: bank.accountID, Debit: amount},
				{AccountID: arID, Credit: amount},
			}, nil
		default:
			return nil, apperr.New(apperr.InvalidStateTransition, "document kind %s does not accept payments", doc.kind)
		}
	})
}

// applyPrepayment is shared by ApplyCredit and ApplyAdvance: both draw down
// a prepaid/credit balance (VendorPrepayment asset on the vendor side,
// CustomerPrepayment liability on the customer side) against a document's
// remaining balance.
func (s *SettlementService) applyPrepayment(ctx context.Context, tx pgx.Tx, documentID, sourceDocumentID int, kind SettlementKind, amount money.Amount, date time.Time, correlationID string) (*Settlement, error) {
	return s.settle(ctx, tx, documentID, kind, &sourceDocumentID, amount, date, correlationID, func(doc *settlementDocument) ([]JournalLineInput, error) {
		switch doc.kind {
		case KindPurchaseBill:
			apID, err := s.resolver.Resolve(ctx, tx, doc.companyID, RuleAccountsPayable)
			if err != nil {
				return nil, err
			}
			prepayID, err := s.resolver.Resolve(ctx, tx, doc.companyID, RuleVendorPrepayment)
			if err != nil {
				return nil, err
			}
			return []JournalLineInput{
				{AccountID: apID, Debit: amount},
				{AccountID: prepayID, Credit: amount},
			}, nil
		case KindInvoice:
			arID, err := s.resolver.Resolve(ctx, tx, doc.companyID, RuleAccountsReceivable)
			if err != nil {
				return nil, err
			}
			prepayID, err := s.resolver.Resolve(ctx, tx, doc.companyID, RuleCustomerPrepayment)
			if err != nil {
				return nil, err
			}
			return []JournalLineInput{
				{AccountID: prepayID, Debit: amount},
				{AccountID: arID, Credit: amount},
			}, nil
		default:
			return nil, apperr.New(apperr.InvalidStateTransition, "document kind %s does not accept this settlement", doc.kind)
		}
	})
}

// ApplyCredit implements invoice.applyCreditNote / purchaseBill.applyVendorCredit.
func (s *SettlementService) ApplyCredit(ctx context.Context, tx pgx.Tx, documentID, creditDocumentID int, amount money.Amount, date time.Time, correlationID string) (*Settlement, error) {
	return s.applyPrepayment(ctx, tx, documentID, creditDocumentID, SettlementCredit, amount, date, correlationID)
}

// ApplyAdvance implements invoice.applyCustomerAdvance / purchaseBill.applyVendorAdvance.
func (s *SettlementService) ApplyAdvance(ctx context.Context, tx pgx.Tx, documentID, advanceDocumentID int, amount money.Amount, date time.Time, correlationID string) (*Settlement, error) {
	return s.applyPrepayment(ctx, tx, documentID, advanceDocumentID, SettlementAdvance, amount, date, correlationID)
}
