package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ledgercore/internal/money"
)

// TrialBalanceLine is one account's net position as of a point in time.
// Full P&L/Balance Sheet/cashflow/dashboard reporting is explicitly out of
// scope (spec.md §1); this is the one diagnostic query the posting core
// itself needs — to assert Σdebit ≡ Σcredit across a whole company, the
// same invariant PostJournalEntry enforces per entry (spec.md §8).
type TrialBalanceLine struct {
	AccountID   int
	AccountCode string
	AccountName string
	Debit       money.Amount
	Credit      money.Amount
}

// ReportingService is a thin, deliberately narrow read-only helper — a
// diagnostic, not the out-of-scope report read-model worker. Grounded on the
// shape of the teacher's ReportingService (internal/core/reporting_service.go)
// but reduced to the one query the core itself needs.
type ReportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) *ReportingService {
	return &ReportingService{pool: pool}
}

// TrialBalance returns every account's net debit/credit position for a
// company, inactive accounts included. Voided entries are not excluded: a void posts a balanced
// reversal alongside stamping voided_at on the original, so the original and
// its reversal must both be summed for the pair to cancel to zero — filtering
// out only the voided original would leave the reversal's lines as a phantom
// net equal to the negative of the voided entry. Σ(Debit) must equal
// Σ(Credit) across the returned rows whenever the ledger is internally
// consistent.
func (r *ReportingService) TrialBalance(ctx context.Context, companyID int) ([]TrialBalanceLine, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.code, a.name,
		       COALESCE(SUM(jl.debit::numeric), 0), COALESCE(SUM(jl.credit::numeric), 0)
		FROM accounts a
		LEFT JOIN journal_lines jl ON jl.account_id = a.id
		WHERE a.company_id = $1
		GROUP BY a.id, a.code, a.name
		ORDER BY a.code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("reporting: querying trial balance for company %d: %w", companyID, err)
	}
	defer rows.Close()

	var out []TrialBalanceLine
	for rows.Next() {
		var l TrialBalanceLine
		var debit, credit string
		if err := rows.Scan(&l.AccountID, &l.AccountCode, &l.AccountName, &debit, &credit); err != nil {
			return nil, fmt.Errorf("reporting: scanning trial balance row: %w", err)
		}
		l.Debit, _ = money.NewAmount(debit)
		l.Credit, _ = money.NewAmount(credit)
		out = append(out, l)
	}
	return out, rows.Err()
}
