package core_test

import (
	"context"
	"testing"
	"time"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
	"ledgercore/internal/money"
)

func TestDocumentService_ApproveUpdateLinesDeleteOnDraft(t *testing.T) {
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

	qtyOne, err := money.NewQty("1")
	if err != nil {
		t.Fatalf("money.NewQty: %v", err)
	}
	zeroRate, err := money.NewRate("0")
	if err != nil {
		t.Fatalf("money.NewRate: %v", err)
	}
	d, err := documents.CreateInvoice(ctx, tx, core.CreateInvoiceInput{
		CompanyID: 1, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		LocationID: 1, Currency: "USD", CustomerID: 1,
		Lines: []core.DocumentLine{
			{Quantity: qtyOne, UnitPrice: amount(t, "10.00"), DiscountAmount: money.Zero, TaxRate: zeroRate},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}

	approved, err := documents.Approve(ctx, tx, d.ID)
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if approved.Status != core.StatusApproved {
		t.Fatalf("expected APPROVED, got %s", approved.Status)
	}

	_, err = documents.Approve(ctx, tx, d.ID)
	if !apperr.Is(err, apperr.InvalidStateTransition) {
		t.Fatalf("expected InvalidStateTransition approving an already-approved document, got %v", err)
	}

	updated, err := documents.UpdateLines(ctx, tx, d.ID, []core.DocumentLine{
		{Quantity: qtyOne, UnitPrice: amount(t, "25.00"), DiscountAmount: money.Zero, TaxRate: zeroRate},
	})
	if err != nil {
		t.Fatalf("UpdateLines: %v", err)
	}
	if !updated.Total.Equal(amount(t, "25.00")) {
		t.Fatalf("expected the recomputed total to be 25.00, got %s", updated.Total)
	}

	if err := documents.Delete(ctx, tx, d.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM documents WHERE id = $1`, d.ID).Scan(&count); err != nil {
		t.Fatalf("counting documents: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected the document to be deleted, found %d rows", count)
	}
}

func TestDocumentService_DeleteRejectsOnceJournalEntryExists(t *testing.T) {
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

	qtyOne, err := money.NewQty("1")
	if err != nil {
		t.Fatalf("money.NewQty: %v", err)
	}
	zeroRate, err := money.NewRate("0")
	if err != nil {
		t.Fatalf("money.NewRate: %v", err)
	}
	d, err := documents.CreateInvoice(ctx, tx, core.CreateInvoiceInput{
		CompanyID: 1, Date: time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		LocationID: 1, Currency: "USD", CustomerID: 1,
		Lines: []core.DocumentLine{
			{Quantity: qtyOne, UnitPrice: amount(t, "10.00"), DiscountAmount: money.Zero, TaxRate: zeroRate},
		},
	})
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if _, err := documents.PostInvoice(ctx, tx, d.ID, "corr-1"); err != nil {
		t.Fatalf("PostInvoice: %v", err)
	}

	err = documents.Delete(ctx, tx, d.ID)
	if !apperr.Is(err, apperr.InvalidStateTransition) {
		t.Fatalf("expected InvalidStateTransition deleting a posted document, got %v", err)
	}
}
