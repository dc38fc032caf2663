package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgercore/internal/apperr"
	"ledgercore/internal/clockutil"
	"ledgercore/internal/money"
)

// AssertOpenPeriod implements spec.md §4.5's assertOpenPeriod(tx, {...}):
// loads the latest PeriodClose for companyID and rejects transactionDate if
// it falls on or before close.to. The teacher has no period-close concept;
// this is new, grounded on the same SELECT ... FOR UPDATE-free read idiom as
// the rest of internal/core (no row needs locking here — PeriodClose rows
// are only written by Close, which takes no row lock itself; the command
// layer's ClosePeriod runs it under a best-effort company-wide lock key).
func AssertOpenPeriod(ctx context.Context, tx pgx.Tx, companyID int, transactionDate time.Time) error {
	var to time.Time
	err := tx.QueryRow(ctx, `
		SELECT "to" FROM period_closes
		WHERE company_id = $1
		ORDER BY "to" DESC
		LIMIT 1
	`, companyID).Scan(&to)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("period: loading latest close for company %d: %w", companyID, err)
	}

	if clockutil.OnOrBefore(transactionDate, to) {
		return apperr.New(apperr.PeriodClosed, "company %d: period closed through %s, cannot post on or before that date", companyID, clockutil.FormatCivilDate(to))
	}
	return nil
}

// PeriodService closes an accounting period: computes net income between
// from..to, posts a closing entry transferring income and expense nets to
// the equity account, records a PeriodClose row, and refuses to re-close an
// overlapping window.
type PeriodService struct {
	pool   *pgxpool.Pool
	ledger *Ledger
}

func NewPeriodService(pool *pgxpool.Pool, ledger *Ledger) *PeriodService {
	return &PeriodService{pool: pool, ledger: ledger}
}

// Close is the atomic operation described in spec.md §4.5.
func (s *PeriodService) Close(ctx context.Context, tx pgx.Tx, companyID int, from, to time.Time, equityAccountID int) (*PeriodClose, error) {
	var existing int
	err := tx.QueryRow(ctx, `
		SELECT count(*) FROM period_closes
		WHERE company_id = $1 AND "from" <= $3 AND "to" >= $2
	`, companyID, from, to).Scan(&existing)
	if err != nil {
		return nil, fmt.Errorf("period: checking overlapping closes: %w", err)
	}
	if existing > 0 {
		return nil, apperr.New(apperr.InvalidStateTransition, "company %d already has a close overlapping %s..%s",
			companyID, clockutil.FormatCivilDate(from), clockutil.FormatCivilDate(to))
	}

	rows, err := tx.Query(ctx, `
		SELECT a.id, a.type, COALESCE(SUM(jl.debit::numeric), 0) - COALESCE(SUM(jl.credit::numeric), 0) AS net
		FROM accounts a
		JOIN journal_lines jl ON jl.account_id = a.id
		JOIN journal_entries je ON je.id = jl.journal_entry_id
		WHERE a.company_id = $1
		  AND a.type IN ('INCOME', 'EXPENSE')
		  AND je.date BETWEEN $2 AND $3
		GROUP BY a.id, a.type
		HAVING COALESCE(SUM(jl.debit::numeric), 0) - COALESCE(SUM(jl.credit::numeric), 0) != 0
	`, companyID, from, to)
	if err != nil {
		return nil, fmt.Errorf("period: computing income/expense nets: %w", err)
	}

	type accountNet struct {
		accountID int
		acctType  AccountType
		net       money.Amount
	}
	var nets []accountNet
	for rows.Next() {
		var an accountNet
		var netStr string
		if err := rows.Scan(&an.accountID, &an.acctType, &netStr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("period: scanning net row: %w", err)
		}
		an.net, _ = money.NewAmount(netStr)
		nets = append(nets, an)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("period: iterating net rows: %w", err)
	}

	var lines []JournalLineInput
	netIncome := money.Zero
	for _, an := range nets {
		// an.net is (debit - credit). Income accounts normally carry a
		// credit balance (net negative here); expense accounts a debit
		// balance (net positive). Closing zeroes each account out by
		// posting the opposite side, and accumulates net income as
		// revenue - expense.
		if an.net.IsPositive() {
			lines = append(lines, JournalLineInput{AccountID: an.accountID, Credit: an.net})
		} else {
			lines = append(lines, JournalLineInput{AccountID: an.accountID, Debit: an.net.Neg()})
		}
		if an.acctType == AccountIncome {
			netIncome = netIncome.Add(an.net.Neg())
		} else {
			netIncome = netIncome.Sub(an.net)
		}
	}

	var entryID *int
	if len(lines) > 0 {
		if !netIncome.IsZero() {
			if netIncome.IsPositive() {
				lines = append(lines, JournalLineInput{AccountID: equityAccountID, Credit: netIncome})
			} else {
				lines = append(lines, JournalLineInput{AccountID: equityAccountID, Debit: netIncome.Neg()})
			}
		}
		entry, err := s.ledger.PostJournalEntry(ctx, tx, PostJournalEntryInput{
			CompanyID:             companyID,
			Date:                  to,
			Description:           fmt.Sprintf("Period close %s..%s", clockutil.FormatCivilDate(from), clockutil.FormatCivilDate(to)),
			Lines:                 lines,
			SkipAccountValidation: true,
		})
		if err != nil {
			return nil, fmt.Errorf("period: posting closing entry: %w", err)
		}
		entryID = &entry.ID
	}

	pc := &PeriodClose{CompanyID: companyID, From: from, To: to, JournalEntryID: entryID}
	err = tx.QueryRow(ctx, `
		INSERT INTO period_closes (company_id, "from", "to", journal_entry_id, closed_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING closed_at
	`, companyID, from, to, entryID).Scan(&pc.ClosedAt)
	if err != nil {
		return nil, fmt.Errorf("period: recording close: %w", err)
	}

	return pc, nil
}
