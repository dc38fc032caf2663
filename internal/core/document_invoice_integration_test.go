package core_test

import (
	"context"
	"testing"
	"time"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
	"ledgercore/internal/money"
)

func TestInvoiceLifecycle_CreatePostAdjustVoid(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	resolver := core.NewAccountResolver()
	inventory := core.NewInventoryEngine(pool)
	documents := core.NewDocumentService(pool, ledger, inventory, resolver)

	qty := func(s string) money.Qty {
		q, err := money.NewQty(s)
		if err != nil {
			t.Fatalf("money.NewQty(%q): %v", s, err)
		}
		return q
	}
	rate := func(s string) money.Rate {
		r, err := money.NewRate(s)
		if err != nil {
			t.Fatalf("money.NewRate(%q): %v", s, err)
		}
		return r
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	lines := []core.DocumentLine{
		{Quantity: qty("2"), UnitPrice: amount(t, "50.00"), DiscountAmount: money.Zero, TaxRate: rate("0.10")},
	}
	d, err := documents.CreateInvoice(ctx, tx, core.CreateInvoiceInput{
		CompanyID: 1, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		LocationID: 1, Currency: "USD", CustomerID: 1, Lines: lines,
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if d.Status != core.StatusDraft {
		t.Fatalf("expected a new invoice to be DRAFT, got %s", d.Status)
	}
	if d.JournalEntryID != nil {
		t.Fatalf("expected no journal entry before posting")
	}
	if !d.Total.Equal(amount(t, "110.00")) {
		t.Fatalf("expected total 110.00 (100 subtotal + 10 tax), got %s", d.Total)
	}

	posted, err := documents.PostInvoice(ctx, tx, d.ID, "corr-post")
	if err != nil {
		t.Fatalf("PostInvoice: %v", err)
	}
	if posted.Status != core.StatusPosted {
		t.Fatalf("expected POSTED after posting, got %s", posted.Status)
	}
	if posted.JournalEntryID == nil {
		t.Fatalf("expected a journal entry id after posting")
	}
	if posted.Number == nil || *posted.Number == "" {
		t.Fatalf("expected a document number to be assigned on post")
	}

	var debitTotal, creditTotal string
	if err := tx.QueryRow(ctx, `
		SELECT coalesce(sum(debit), 0), coalesce(sum(credit), 0) FROM journal_lines WHERE journal_entry_id = $1
	`, *posted.JournalEntryID).Scan(&debitTotal, &creditTotal); err != nil {
		t.Fatalf("summing posted journal lines: %v", err)
	}
	if debitTotal != creditTotal {
		t.Fatalf("expected a balanced journal entry, debits %s != credits %s", debitTotal, creditTotal)
	}

	adjustedLines := []core.DocumentLine{
		{Quantity: qty("2"), UnitPrice: amount(t, "60.00"), DiscountAmount: money.Zero, TaxRate: rate("0.10")},
	}
	adjusted, err := documents.AdjustInvoice(ctx, tx, d.ID, adjustedLines, time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), "price correction")
	if err != nil {
		t.Fatalf("AdjustInvoice: %v", err)
	}
	if !adjusted.Total.Equal(amount(t, "132.00")) {
		t.Fatalf("expected adjusted total 132.00 (120 subtotal + 12 tax), got %s", adjusted.Total)
	}
	if adjusted.LastAdjustmentJournalEntryID == nil {
		t.Fatalf("expected an adjustment journal entry to be recorded")
	}

	voided, err := documents.VoidInvoice(ctx, tx, d.ID, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "customer cancelled", "corr-void")
	if err != nil {
		t.Fatalf("VoidInvoice: %v", err)
	}
	if voided.Status != core.StatusVoid {
		t.Fatalf("expected VOID after voiding, got %s", voided.Status)
	}
}

func TestPostInvoice_RejectsWrongDocumentKind(t *testing.T) {
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

	var billID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO documents (company_id, kind, status, date, total, location_id, currency, vendor_or_customer_id)
		VALUES (1, 'PURCHASE_BILL', 'DRAFT', CURRENT_DATE, '0.00', 1, 'USD', 1)
		RETURNING id
	`).Scan(&billID); err != nil {
		t.Fatalf("seeding purchase bill: %v", err)
	}

	_, err = documents.PostInvoice(ctx, tx, billID, "corr-1")
	if !apperr.Is(err, apperr.InvalidInput) {
		t.Fatalf("expected InvalidInput posting a non-invoice document as an invoice, got %v", err)
	}
}
