package core_test

import (
	"context"
	"testing"

	"ledgercore/internal/core"
)

func TestAccountResolver_CachesOntoCompanyRow(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	resolver := core.NewAccountResolver()

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	id1, err := resolver.Resolve(ctx, tx, 1, core.RuleAccountsPayable)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if id1 == 0 {
		t.Fatalf("expected a provisioned account id")
	}

	var cached *int
	if err := tx.QueryRow(ctx, `SELECT accounts_payable_id FROM companies WHERE id = $1`, 1).Scan(&cached); err != nil {
		t.Fatalf("reading cached column: %v", err)
	}
	if cached == nil || *cached != id1 {
		t.Fatalf("expected accounts_payable_id to be cached as %d, got %v", id1, cached)
	}

	// Resolving again must return the cached id without provisioning a
	// second account.
	id2, err := resolver.Resolve(ctx, tx, 1, core.RuleAccountsPayable)
	if err != nil {
		t.Fatalf("Resolve (cached): %v", err)
	}
	if id2 != id1 {
		t.Fatalf("expected cached resolve to return %d, got %d", id1, id2)
	}

	var count int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM accounts WHERE company_id = $1 AND code = '2000-AP'`, 1).Scan(&count); err != nil {
		t.Fatalf("counting provisioned accounts: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one auto-provisioned AP account, found %d", count)
	}
}

func TestAccountResolver_ExplicitRuleTakesPrecedenceOverDefault(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()
	resolver := core.NewAccountResolver()

	tx, err := pool.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback(ctx)

	var ruleAccountID int
	if err := tx.QueryRow(ctx, `
		INSERT INTO accounts (company_id, code, name, type, normal_balance)
		VALUES (1, '2099-AP-ALT', 'Alt AP', 'LIABILITY', 'CREDIT')
		RETURNING id
	`).Scan(&ruleAccountID); err != nil {
		t.Fatalf("seeding alternate AP account: %v", err)
	}
	if _, err := tx.Exec(ctx, `
		INSERT INTO account_rules (company_id, rule_type, account_id, priority)
		VALUES (1, 'ACCOUNTS_PAYABLE', $1, 10)
	`, ruleAccountID); err != nil {
		t.Fatalf("seeding account rule: %v", err)
	}

	resolved, err := resolver.Resolve(ctx, tx, 1, core.RuleAccountsPayable)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved != ruleAccountID {
		t.Fatalf("expected explicit rule account %d, got %d", ruleAccountID, resolved)
	}
}
