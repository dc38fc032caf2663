package core_test

import (
	"context"
	"testing"
	"time"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
)

func TestPeriodService_CloseZeroesIncomeAndExpenseIntoEquity(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	periods := core.NewPeriodService(pool, ledger)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}

	var equityID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '3000', 'Retained Earnings', 'EQUITY', 'CREDIT')
		RETURNING id
	`).Scan(&equityID); err != nil {
		t.Fatalf("seeding equity account: %v", err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	// Revenue of 300 against cash: income account 2 ends the month net
	// credit 300.
	if _, err := ledger.PostJournalEntry(ctx, tx, core.PostJournalEntryInput{
		CompanyID:   1,
		Date:        time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: "sale",
		Lines: []core.JournalLineInput{
			{AccountID: 1, Debit: amount(t, "300.00")},
			{AccountID: 2, Credit: amount(t, "300.00")},
		},
	}); err != nil {
		t.Fatalf("posting sale entry: %v", err)
	}

	pc, err := periods.Close(ctx, tx, 1, from, to, equityID)
	if err != nil {
		t.Fatalf("Close: %v", err)
	}
	if pc.JournalEntryID == nil {
		t.Fatalf("expected a closing journal entry to be posted")
	}

	var revenueNet, equityNet string
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(credit),0) - COALESCE(SUM(debit),0) FROM journal_lines WHERE account_id = $1
	`, 2).Scan(&revenueNet); err != nil {
		t.Fatalf("reading revenue net: %v", err)
	}
	if revenueNet != "0.00" {
		t.Fatalf("expected revenue account to be zeroed by the close, net credit = %s", revenueNet)
	}
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(credit),0) - COALESCE(SUM(debit),0) FROM journal_lines WHERE account_id = $1
	`, equityID).Scan(&equityNet); err != nil {
		t.Fatalf("reading equity net: %v", err)
	}
	if equityNet != "300.00" {
		t.Fatalf("expected equity to absorb net income of 300.00, got %s", equityNet)
	}

	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestPeriodService_RejectsOverlappingClose(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	periods := core.NewPeriodService(pool, ledger)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var equityID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '3000', 'Retained Earnings', 'EQUITY', 'CREDIT')
		RETURNING id
	`).Scan(&equityID); err != nil {
		t.Fatalf("seeding equity account: %v", err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	if _, err := periods.Close(ctx, tx, 1, from, to, equityID); err != nil {
		t.Fatalf("first Close: %v", err)
	}

	_, err = periods.Close(ctx, tx, 1, time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC), equityID)
	if !apperr.Is(err, apperr.InvalidStateTransition) {
		t.Fatalf("expected InvalidStateTransition for overlapping close, got %v", err)
	}
}

func TestPeriodService_CloseWithNoActivityLeavesJournalEntryIDNil(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	periods := core.NewPeriodService(pool, ledger)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var equityID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '3000', 'Retained Earnings', 'EQUITY', 'CREDIT')
		RETURNING id
	`).Scan(&equityID); err != nil {
		t.Fatalf("seeding equity account: %v", err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	pc, err := periods.Close(ctx, tx, 1, from, to, equityID)
	if err != nil {
		t.Fatalf("expected closing an activity-free period to succeed, got %v", err)
	}
	if pc.JournalEntryID != nil {
		t.Fatalf("expected no closing entry for a period with no income/expense activity, got %d", *pc.JournalEntryID)
	}
}

func TestAssertOpenPeriod_RejectsDateOnOrBeforeClose(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	ledger := core.NewLedger(pool)
	periods := core.NewPeriodService(pool, ledger)

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var equityID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '3000', 'Retained Earnings', 'EQUITY', 'CREDIT')
		RETURNING id
	`).Scan(&equityID); err != nil {
		t.Fatalf("seeding equity account: %v", err)
	}

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	if _, err := periods.Close(ctx, tx, 1, from, to, equityID); err != nil {
		t.Fatalf("Close: %v", err)
	}

	err = core.AssertOpenPeriod(ctx, tx, 1, to)
	if !apperr.Is(err, apperr.PeriodClosed) {
		t.Fatalf("expected PeriodClosed for a date on the close boundary, got %v", err)
	}

	if err := core.AssertOpenPeriod(ctx, tx, 1, to.AddDate(0, 0, 1)); err != nil {
		t.Fatalf("expected a date after the close to be open, got %v", err)
	}
}
