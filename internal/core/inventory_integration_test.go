package core_test

import (
	"context"
	"testing"
	"time"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
	"ledgercore/internal/money"
)

func rate(t *testing.T, s string) money.Rate {
	t.Helper()
	r, err := money.NewRate(s)
	if err != nil {
		t.Fatalf("money.NewRate(%q): %v", s, err)
	}
	return r
}

func qty(t *testing.T, s string) money.Qty {
	t.Helper()
	q, err := money.NewQty(s)
	if err != nil {
		t.Fatalf("money.NewQty(%q): %v", s, err)
	}
	return q
}

func TestApplyStockMoveWAC_BlendsCostAcrossTwoReceipts(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	inv := core.NewInventoryEngine(pool)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	// 10 units @ 10.00, then 10 units @ 20.00 -> WAC should land at 15.00.
	if _, err := inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 1,
		Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Type: core.MovePurchaseReceipt, Direction: core.DirectionIn,
		Quantity: qty(t, "10"), UnitCostApplied: rate(t, "10.00"),
		ReferenceType: "purchase_receipt", ReferenceID: 1,
	}); err != nil {
		t.Fatalf("first receipt: %v", err)
	}
	if _, err := inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 1,
		Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Type: core.MovePurchaseReceipt, Direction: core.DirectionIn,
		Quantity: qty(t, "10"), UnitCostApplied: rate(t, "20.00"),
		ReferenceType: "purchase_receipt", ReferenceID: 2,
	}); err != nil {
		t.Fatalf("second receipt: %v", err)
	}

	var wac, qtyOnHand string
	if err := tx.QueryRow(ctx, `
		SELECT wac, quantity_on_hand FROM inventory_balances WHERE company_id=1 AND location_id=1 AND item_id=1
	`).Scan(&wac, &qtyOnHand); err != nil {
		t.Fatalf("reading balance: %v", err)
	}
	if wac != "15.000000" {
		t.Errorf("expected WAC 15.000000, got %s", wac)
	}
	if qtyOnHand != "20.000000" {
		t.Errorf("expected quantity on hand 20, got %s", qtyOnHand)
	}
}

func TestApplyStockMoveWAC_FirstMoveForNewItemSucceeds(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	inv := core.NewInventoryEngine(pool)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	// A brand-new (company, location, item) has no prior stock_moves row at
	// all, so MAX(date) over zero rows would scan SQL NULL into a
	// non-nullable time.Time. The very first receipt for an item must still
	// succeed.
	move, err := inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 99,
		Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Type: core.MovePurchaseReceipt, Direction: core.DirectionIn,
		Quantity: qty(t, "5"), UnitCostApplied: rate(t, "12.00"),
		ReferenceType: "purchase_receipt", ReferenceID: 1,
	})
	if err != nil {
		t.Fatalf("expected the first stock move for a new item to succeed, got %v", err)
	}
	if move.ID == 0 {
		t.Fatalf("expected a persisted stock move row")
	}
}

func TestApplyStockMoveWAC_InsufficientStockRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	inv := core.NewInventoryEngine(pool)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	_, err = inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 1,
		Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Type: core.MoveSaleIssue, Direction: core.DirectionOut,
		Quantity: qty(t, "5"), ReferenceType: "invoice", ReferenceID: 1,
	})
	if !apperr.Is(err, apperr.InsufficientStock) {
		t.Fatalf("expected InsufficientStock, got %v", err)
	}
}

func TestApplyStockMoveWAC_BackdatedReceiptRevaluesLaterIssue(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	inv := core.NewInventoryEngine(pool)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	// Receive 10 @ 10.00 on day 1, issue 5 on day 2 (costed at 10.00 WAC).
	if _, err := inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 1,
		Date: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Type: core.MovePurchaseReceipt, Direction: core.DirectionIn,
		Quantity: qty(t, "10"), UnitCostApplied: rate(t, "10.00"),
		ReferenceType: "purchase_receipt", ReferenceID: 1,
	}); err != nil {
		t.Fatalf("initial receipt: %v", err)
	}
	if _, err := inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 1,
		Date: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
		Type: core.MoveSaleIssue, Direction: core.DirectionOut,
		Quantity: qty(t, "5"), ReferenceType: "invoice", ReferenceID: 1,
	}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Now backdate a receipt of 10 @ 20.00 to before the original receipt.
	// WAC at the time of the day-2 issue should now be (10*10+10*20)/20=15.00,
	// so the issue's recorded cost must be rewritten from 5*10=50 to 5*15=75.
	if _, err := inv.ApplyStockMoveWAC(ctx, tx, core.ApplyStockMoveInput{
		CompanyID: 1, LocationID: 1, ItemID: 1,
		Date: time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
		Type: core.MovePurchaseReceipt, Direction: core.DirectionIn,
		Quantity: qty(t, "10"), UnitCostApplied: rate(t, "20.00"),
		ReferenceType: "purchase_receipt", ReferenceID: 2,
		AllowBackdated: true,
	}); err != nil {
		t.Fatalf("backdated receipt: %v", err)
	}

	var issueCost string
	if err := tx.QueryRow(ctx, `
		SELECT total_cost_applied FROM stock_moves
		WHERE company_id=1 AND location_id=1 AND item_id=1 AND direction='OUT'
	`).Scan(&issueCost); err != nil {
		t.Fatalf("reading revalued issue: %v", err)
	}
	if issueCost != "75.00" {
		t.Errorf("expected the issue's cost to be revalued to 75.00, got %s", issueCost)
	}
}
