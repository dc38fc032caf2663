package app

import (
	"context"

	"ledgercore/internal/core"
)

// TrialBalanceLine is the read-only projection of a company's account
// positions, exposed alongside the write commands since it needs no
// idempotency/locking/transaction machinery of its own — a plain read.
type TrialBalanceLine struct {
	AccountID   int          `json:"accountId"`
	AccountCode string       `json:"accountCode"`
	AccountName string       `json:"accountName"`
	Debit       string       `json:"debit"`
	Credit      string       `json:"credit"`
}

// GetTrialBalance is a read query, not one of spec.md §6's command verbs —
// full reporting is explicitly out of scope (spec.md §1) — but the posting
// core needs this one diagnostic to let an operator or test assert
// Σdebit ≡ Σcredit company-wide.
func (s *Service) GetTrialBalance(ctx context.Context, companyID int) ([]TrialBalanceLine, error) {
	if err := requireActor(ctx, companyID); err != nil {
		return nil, err
	}
	lines, err := s.reporting.TrialBalance(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]TrialBalanceLine, len(lines))
	for i, l := range lines {
		out[i] = toTrialBalanceLine(l)
	}
	return out, nil
}

func toTrialBalanceLine(l core.TrialBalanceLine) TrialBalanceLine {
	return TrialBalanceLine{
		AccountID: l.AccountID, AccountCode: l.AccountCode, AccountName: l.AccountName,
		Debit: l.Debit.String(), Credit: l.Credit.String(),
	}
}
