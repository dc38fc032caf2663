package core_test

import (
	"context"
	"testing"

	"ledgercore/internal/core"
)

func TestNextDocumentNumber_GaplessPerCompanyPerKind(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	n1, err := core.NextDocumentNumber(ctx, tx, 1, core.KindInvoice)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	n2, err := core.NextDocumentNumber(ctx, tx, 1, core.KindInvoice)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	if n1 != "INV-00001" || n2 != "INV-00002" {
		t.Fatalf("expected INV-00001, INV-00002, got %s, %s", n1, n2)
	}

	// A different kind for the same company starts its own counter at 1.
	b1, err := core.NextDocumentNumber(ctx, tx, 1, core.KindPurchaseBill)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	if b1 != "PBILL-00001" {
		t.Fatalf("expected PBILL-00001, got %s", b1)
	}

	// A different company's invoice counter is independent of company 1's.
	other, err := core.NextDocumentNumber(ctx, tx, 2, core.KindInvoice)
	if err != nil {
		t.Fatalf("NextDocumentNumber: %v", err)
	}
	if other != "INV-00001" {
		t.Fatalf("expected company 2's counter to start at INV-00001, got %s", other)
	}
}
