package app_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"ledgercore/internal/app"
	"ledgercore/internal/apperr"
	"ledgercore/internal/money"
	"ledgercore/internal/outbox"
	"ledgercore/internal/tenant"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE journal_lines, journal_entries, idempotency_records, events,
			account_rules, accounts, companies CASCADE;

		INSERT INTO companies (id, company_code, name, base_currency) VALUES
			(1, 'CO-1', 'Test Co', 'USD'),
			(2, 'CO-2', 'Other Co', 'USD');

		INSERT INTO accounts (id, company_id, code, name, type, normal_balance) VALUES
			(1, 1, '1000', 'Cash', 'ASSET', 'DEBIT'),
			(2, 1, '4000', 'Revenue', 'INCOME', 'CREDIT');
	`)
	if err != nil {
		t.Fatalf("failed to seed test database: %v", err)
	}
	return pool
}

func actorCtx(companyID int) context.Context {
	return tenant.WithActor(context.Background(), tenant.Actor{CompanyID: companyID, ActorID: "test"})
}

func TestPostJournalEntry_IdempotentReplayDoesNotDuplicate(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := app.NewService(pool, noopLocks{}, outbox.NoOpPublisher{})

	key := uuid.NewString()
	req := app.PostJournalEntryRequest{
		CompanyID:      1,
		IdempotencyKey: key,
		Date:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description:    "idempotent test",
		Lines: []app.JournalLineRequest{
			{AccountID: 1, Debit: mustAmount(t, "50.00")},
			{AccountID: 2, Credit: mustAmount(t, "50.00")},
		},
	}

	resp1, err := svc.PostJournalEntry(actorCtx(1), req)
	if err != nil {
		t.Fatalf("first PostJournalEntry: %v", err)
	}
	resp2, err := svc.PostJournalEntry(actorCtx(1), req)
	if err != nil {
		t.Fatalf("replayed PostJournalEntry: %v", err)
	}
	if resp1.ID != resp2.ID {
		t.Fatalf("expected the replayed call to return the same entry id, got %d and %d", resp1.ID, resp2.ID)
	}

	var count int
	if err := pool.QueryRow(context.Background(), `SELECT count(*) FROM journal_entries`).Scan(&count); err != nil {
		t.Fatalf("counting journal entries: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one journal entry to be posted, found %d", count)
	}
}

func TestPostJournalEntry_RejectsMismatchedActorCompany(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := app.NewService(pool, noopLocks{}, outbox.NoOpPublisher{})

	req := app.PostJournalEntryRequest{
		CompanyID:      1,
		IdempotencyKey: uuid.NewString(),
		Date:           time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		Description:    "wrong tenant",
		Lines: []app.JournalLineRequest{
			{AccountID: 1, Debit: mustAmount(t, "10.00")},
			{AccountID: 2, Credit: mustAmount(t, "10.00")},
		},
	}

	// Actor is scoped to company 2 but the request names company 1.
	_, err := svc.PostJournalEntry(actorCtx(2), req)
	if !apperr.Is(err, apperr.TenantScopeViolation) {
		t.Fatalf("expected TenantScopeViolation, got %v", err)
	}
}

func TestReverseJournalEntry_RejectsCrossCompanyEntry(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	svc := app.NewService(pool, noopLocks{}, outbox.NoOpPublisher{})

	postResp, err := svc.PostJournalEntry(actorCtx(1), app.PostJournalEntryRequest{
		CompanyID:      1,
		IdempotencyKey: uuid.NewString(),
		Date:           time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Description:    "entry owned by company 1",
		Lines: []app.JournalLineRequest{
			{AccountID: 1, Debit: mustAmount(t, "20.00")},
			{AccountID: 2, Credit: mustAmount(t, "20.00")},
		},
	})
	if err != nil {
		t.Fatalf("seeding entry: %v", err)
	}

	_, err = svc.ReverseJournalEntry(actorCtx(2), app.ReverseJournalEntryRequest{
		CompanyID:      2,
		IdempotencyKey: uuid.NewString(),
		JournalEntryID: postResp.ID,
		ReversalDate:   time.Date(2026, 1, 11, 0, 0, 0, 0, time.UTC),
		Reason:         "should fail",
	})
	if !apperr.Is(err, apperr.TenantScopeViolation) {
		t.Fatalf("expected TenantScopeViolation reversing another company's entry, got %v", err)
	}
}

func mustAmount(t *testing.T, s string) money.Amount {
	t.Helper()
	a, err := money.NewAmount(s)
	if err != nil {
		t.Fatalf("money.NewAmount(%q): %v", s, err)
	}
	return a
}

type noopLocks struct{}

func (noopLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "", nil
}
func (noopLocks) Release(ctx context.Context, key, token string) error { return nil }
