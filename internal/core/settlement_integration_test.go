package core_test

import (
	"context"
	"testing"
	"time"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
)

func TestSettlementService_RecordPaymentMarksPaidAndBlocksOverpayment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	resolver := core.NewAccountResolver()
	settlements := core.NewSettlementService(pool, ledger, resolver)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var cashAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '1010', 'Operating Cash', 'ASSET', 'DEBIT') RETURNING id
	`).Scan(&cashAccountID); err != nil {
		t.Fatalf("seeding cash account: %v", err)
	}
	var bankAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO bank_accounts (company_id, account_id, name, is_banking_account)
		VALUES (1, $1, 'Operating', true) RETURNING id
	`, cashAccountID).Scan(&bankAccountID); err != nil {
		t.Fatalf("seeding bank account: %v", err)
	}

	var invoiceID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO documents (company_id, kind, status, date, total, location_id, currency, vendor_or_customer_id)
		VALUES (1, 'INVOICE', 'POSTED', CURRENT_DATE, '100.00', 1, 'USD', 1)
		RETURNING id
	`).Scan(&invoiceID); err != nil {
		t.Fatalf("seeding invoice: %v", err)
	}

	settlement, err := settlements.RecordPayment(ctx, tx, invoiceID, bankAccountID, amount(t, "100.00"), time.Now(), "corr-1")
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	if settlement.ID == 0 {
		t.Fatalf("expected a settlement id")
	}

	var status string
	if err := tx.QueryRow(ctx, `SELECT status FROM documents WHERE id = $1`, invoiceID).Scan(&status); err != nil {
		t.Fatalf("reading invoice status: %v", err)
	}
	if status != "PAID" {
		t.Fatalf("expected invoice to become PAID, got %s", status)
	}

	_, err = settlements.RecordPayment(ctx, tx, invoiceID, bankAccountID, amount(t, "1.00"), time.Now(), "corr-2")
	if !apperr.Is(err, apperr.Overpayment) {
		t.Fatalf("expected Overpayment rejecting payment past the remaining balance, got %v", err)
	}
}

func TestSettlementService_PartialPaymentLeavesDocumentPartial(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	resolver := core.NewAccountResolver()
	settlements := core.NewSettlementService(pool, ledger, resolver)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var cashAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '1010', 'Operating Cash', 'ASSET', 'DEBIT') RETURNING id
	`).Scan(&cashAccountID); err != nil {
		t.Fatalf("seeding cash account: %v", err)
	}
	var bankAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO bank_accounts (company_id, account_id, name, is_banking_account)
		VALUES (1, $1, 'Operating', true) RETURNING id
	`, cashAccountID).Scan(&bankAccountID); err != nil {
		t.Fatalf("seeding bank account: %v", err)
	}
	var invoiceID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO documents (company_id, kind, status, date, total, location_id, currency, vendor_or_customer_id)
		VALUES (1, 'INVOICE', 'POSTED', CURRENT_DATE, '100.00', 1, 'USD', 1)
		RETURNING id
	`).Scan(&invoiceID); err != nil {
		t.Fatalf("seeding invoice: %v", err)
	}

	if _, err := settlements.RecordPayment(ctx, tx, invoiceID, bankAccountID, amount(t, "40.00"), time.Now(), "corr-1"); err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}

	var status, paid string
	if err := tx.QueryRow(ctx, `SELECT status, amount_paid_or_applied FROM documents WHERE id = $1`, invoiceID).Scan(&status, &paid); err != nil {
		t.Fatalf("reading invoice: %v", err)
	}
	if status != "PARTIAL" {
		t.Fatalf("expected PARTIAL after a partial payment, got %s", status)
	}
	if paid != "40.00" {
		t.Fatalf("expected amount_paid_or_applied 40.00, got %s", paid)
	}
}
