package core_test

import (
	"context"
	"testing"
	"time"

	"ledgercore/internal/core"
	"ledgercore/internal/money"
)

func TestVendorCreditLifecycle_PostBooksPrepaymentAgainstExpenseReversal(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	resolver := core.NewAccountResolver()
	inventory := core.NewInventoryEngine(pool)
	documents := core.NewDocumentService(pool, ledger, inventory, resolver)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var expenseAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '6000', 'Office Supplies', 'EXPENSE', 'DEBIT') RETURNING id
	`).Scan(&expenseAccountID); err != nil {
		t.Fatalf("seeding expense account: %v", err)
	}

	qtyOne, err := money.NewQty("1")
	if err != nil {
		t.Fatalf("money.NewQty: %v", err)
	}
	zeroRate, err := money.NewRate("0")
	if err != nil {
		t.Fatalf("money.NewRate: %v", err)
	}
	lines := []core.DocumentLine{
		{AccountID: &expenseAccountID, Quantity: qtyOne, UnitPrice: amount(t, "30.00"), DiscountAmount: money.Zero, TaxRate: zeroRate},
	}
	d, err := documents.CreateVendorCredit(ctx, tx, core.CreateVendorCreditInput{
		CompanyID: 1, Date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		LocationID: 1, Currency: "USD", VendorID: 1, Lines: lines,
	})
	if err != nil {
		t.Fatalf("CreateVendorCredit: %v", err)
	}

	posted, err := documents.PostVendorCredit(ctx, tx, d.ID, "corr-1")
	if err != nil {
		t.Fatalf("PostVendorCredit: %v", err)
	}
	if posted.Status != core.StatusPosted {
		t.Fatalf("expected POSTED, got %s", posted.Status)
	}

	var debitTotal, creditTotal string
	if err := tx.QueryRow(ctx, `
		SELECT coalesce(sum(debit), 0), coalesce(sum(credit), 0) FROM journal_lines WHERE journal_entry_id = $1
	`, *posted.JournalEntryID).Scan(&debitTotal, &creditTotal); err != nil {
		t.Fatalf("summing posted journal lines: %v", err)
	}
	if debitTotal != creditTotal || debitTotal != "30.00" {
		t.Fatalf("expected a balanced 30.00 entry, got debit=%s credit=%s", debitTotal, creditTotal)
	}
}

func TestVoidVendorCredit_ReversesPostedEntry(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	resolver := core.NewAccountResolver()
	inventory := core.NewInventoryEngine(pool)
	documents := core.NewDocumentService(pool, ledger, inventory, resolver)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var expenseAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '6000', 'Office Supplies', 'EXPENSE', 'DEBIT') RETURNING id
	`).Scan(&expenseAccountID); err != nil {
		t.Fatalf("seeding expense account: %v", err)
	}
	qtyOne, err := money.NewQty("1")
	if err != nil {
		t.Fatalf("money.NewQty: %v", err)
	}
	zeroRate, err := money.NewRate("0")
	if err != nil {
		t.Fatalf("money.NewRate: %v", err)
	}
	lines := []core.DocumentLine{
		{AccountID: &expenseAccountID, Quantity: qtyOne, UnitPrice: amount(t, "20.00"), DiscountAmount: money.Zero, TaxRate: zeroRate},
	}
	d, err := documents.CreateVendorCredit(ctx, tx, core.CreateVendorCreditInput{
		CompanyID: 1, Date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC),
		LocationID: 1, Currency: "USD", VendorID: 1, Lines: lines,
	})
	if err != nil {
		t.Fatalf("CreateVendorCredit: %v", err)
	}
	posted, err := documents.PostVendorCredit(ctx, tx, d.ID, "corr-1")
	if err != nil {
		t.Fatalf("PostVendorCredit: %v", err)
	}

	voided, err := documents.VoidVendorCredit(ctx, tx, posted.ID, time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC), "issued in error", "corr-void")
	if err != nil {
		t.Fatalf("VoidVendorCredit: %v", err)
	}
	if voided.Status != core.StatusVoid {
		t.Fatalf("expected VOID, got %s", voided.Status)
	}
}
