package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"ledgercore/internal/app"
	"ledgercore/internal/apperr"
	"ledgercore/internal/money"
	"ledgercore/internal/outbox"
)

func mustQty(t *testing.T, s string) money.Qty {
	t.Helper()
	q, err := money.NewQty(s)
	if err != nil {
		t.Fatalf("money.NewQty(%q): %v", s, err)
	}
	return q
}

func mustRate(t *testing.T, s string) money.Rate {
	t.Helper()
	r, err := money.NewRate(s)
	if err != nil {
		t.Fatalf("money.NewRate(%q): %v", s, err)
	}
	return r
}

func TestCreateAndPostInvoice_CommandSurfaceWiresIdempotencyAndLocks(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := app.NewService(pool, noopLocks{}, outbox.NoOpPublisher{})

	createReq := app.CreateInvoiceRequest{
		CompanyID:      1,
		IdempotencyKey: uuid.NewString(),
		Date:           time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		LocationID:     1,
		Currency:       "USD",
		CustomerID:     1,
		Lines: []app.DocumentLineRequest{
			{Quantity: mustQty(t, "1"), UnitPrice: mustAmount(t, "40.00"), DiscountAmount: mustAmount(t, "0.00"), TaxRate: mustRate(t, "0")},
		},
	}
	created, err := svc.CreateInvoice(actorCtx(1), createReq)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	if created.JournalEntryID != nil {
		t.Fatalf("expected a newly created invoice to have no journal entry yet")
	}

	postKey := uuid.NewString()
	postReq := app.DocumentActionRequest{CompanyID: 1, IdempotencyKey: postKey, DocumentID: created.ID, CorrelationID: "corr-post"}
	posted1, err := svc.PostInvoice(actorCtx(1), postReq)
	if err != nil {
		t.Fatalf("PostInvoice: %v", err)
	}
	if posted1.Status != "POSTED" || posted1.JournalEntryID == nil {
		t.Fatalf("expected the invoice to be POSTED with a journal entry, got %+v", posted1)
	}

	posted2, err := svc.PostInvoice(actorCtx(1), postReq)
	if err != nil {
		t.Fatalf("replayed PostInvoice: %v", err)
	}
	if *posted1.JournalEntryID != *posted2.JournalEntryID {
		t.Fatalf("expected the replayed post to return the same journal entry, got %d and %d", *posted1.JournalEntryID, *posted2.JournalEntryID)
	}

	var count int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM journal_entries`).Scan(&count); err != nil {
		t.Fatalf("counting journal entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected the replayed PostInvoice not to post a second journal entry, found %d", count)
	}
}

func TestCreateInvoice_RejectsMismatchedActorCompany(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := app.NewService(pool, noopLocks{}, outbox.NoOpPublisher{})

	_, err := svc.CreateInvoice(actorCtx(2), app.CreateInvoiceRequest{
		CompanyID:      1,
		IdempotencyKey: uuid.NewString(),
		Date:           time.Now(),
		LocationID:     1,
		Currency:       "USD",
		CustomerID:     1,
		Lines: []app.DocumentLineRequest{
			{Quantity: mustQty(t, "1"), UnitPrice: mustAmount(t, "10.00"), DiscountAmount: mustAmount(t, "0.00"), TaxRate: mustRate(t, "0")},
		},
	})
	if !apperr.Is(err, apperr.TenantScopeViolation) {
		t.Fatalf("expected TenantScopeViolation, got %v", err)
	}
}
