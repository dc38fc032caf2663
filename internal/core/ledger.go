package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgercore/internal/apperr"
	"ledgercore/internal/money"
)

// Ledger is the posting service of spec.md §4.4, generalized from the
// teacher's Ledger (internal/core/ledger.go): instead of an AI-generated
// Proposal, it posts a caller-built set of already-resolved JournalLineInput
// rows, because this repository's callers are typed document state machines,
// not a natural-language proposal.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

// JournalLineInput is one line of a journal entry to be posted. Exactly one
// of Debit/Credit must be > 0.
type JournalLineInput struct {
	AccountID int
	Debit     money.Amount
	Credit    money.Amount
}

// PostJournalEntryInput is the request shape of spec.md §4.4's
// postJournalEntry(tx, {...}).
type PostJournalEntryInput struct {
	CompanyID                int
	Date                     time.Time
	Description              string
	Lines                    []JournalLineInput
	ReversalOfJournalEntryID *int
	SkipAccountValidation    bool
}

// PostJournalEntry validates and writes a JournalEntry + its JournalLines
// within tx. It enforces: at least two lines, each line non-negative with
// exactly one side set, same-tenant active accounts (unless
// SkipAccountValidation), period-close, and Σdebit ≡ Σcredit.
func (l *Ledger) PostJournalEntry(ctx context.Context, tx pgx.Tx, in PostJournalEntryInput) (*JournalEntry, error) {
	if len(in.Lines) < 2 {
		return nil, apperr.New(apperr.InvalidInput, "journal entry must have at least 2 lines, got %d", len(in.Lines))
	}

	var totalDebit, totalCredit money.Amount
	for i, line := range in.Lines {
		debitPositive := line.Debit.IsPositive()
		creditPositive := line.Credit.IsPositive()
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return nil, apperr.New(apperr.InvalidInput, "line %d: debit and credit must be non-negative", i)
		}
		if debitPositive == creditPositive {
			return nil, apperr.New(apperr.InvalidInput, "line %d: exactly one of debit/credit must be > 0", i)
		}
		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}
	if !totalDebit.Equal(totalCredit) {
		return nil, apperr.New(apperr.UnbalancedEntry, "debits %s != credits %s", totalDebit, totalCredit)
	}

	if err := AssertOpenPeriod(ctx, tx, in.CompanyID, in.Date); err != nil {
		return nil, err
	}

	if !in.SkipAccountValidation {
		if err := validateAccounts(ctx, tx, in.CompanyID, in.Lines); err != nil {
			return nil, err
		}
	}

	var entryID int
	err := tx.QueryRow(ctx, `
		INSERT INTO journal_entries (company_id, date, description, reversal_of_journal_entry_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		RETURNING id
	`, in.CompanyID, in.Date, in.Description, in.ReversalOfJournalEntryID).Scan(&entryID)
	if err != nil {
		return nil, fmt.Errorf("ledger: inserting journal entry: %w", err)
	}

	for _, line := range in.Lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO journal_lines (company_id, journal_entry_id, account_id, debit, credit)
			VALUES ($1, $2, $3, $4, $5)
		`, in.CompanyID, entryID, line.AccountID, line.Debit.String(), line.Credit.String())
		if err != nil {
			return nil, fmt.Errorf("ledger: inserting journal line: %w", err)
		}
	}

	return &JournalEntry{
		ID:                       entryID,
		CompanyID:                in.CompanyID,
		Date:                     in.Date,
		Description:              in.Description,
		ReversalOfJournalEntryID: in.ReversalOfJournalEntryID,
		Lines:                    linesFromInput(entryID, in.CompanyID, in.Lines),
	}, nil
}

func linesFromInput(entryID, companyID int, in []JournalLineInput) []JournalLine {
	out := make([]JournalLine, len(in))
	for i, l := range in {
		out[i] = JournalLine{CompanyID: companyID, JournalEntryID: entryID, AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit}
	}
	return out
}

func validateAccounts(ctx context.Context, tx pgx.Tx, companyID int, lines []JournalLineInput) error {
	seen := make(map[int]bool)
	for _, line := range lines {
		if seen[line.AccountID] {
			continue
		}
		seen[line.AccountID] = true

		var acctCompanyID int
		var isActive bool
		err := tx.QueryRow(ctx, `SELECT company_id, is_active FROM accounts WHERE id = $1`, line.AccountID).Scan(&acctCompanyID, &isActive)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperr.New(apperr.NotFound, "account %d not found", line.AccountID)
			}
			return fmt.Errorf("ledger: looking up account %d: %w", line.AccountID, err)
		}
		if acctCompanyID != companyID {
			return apperr.New(apperr.TenantScopeViolation, "account %d does not belong to company %d", line.AccountID, companyID)
		}
		if !isActive {
			return apperr.New(apperr.InvalidInput, "account %d is not active", line.AccountID)
		}
	}
	return nil
}

// CreateReversal clones originalID's lines with debit/credit swapped, links
// ReversalOfJournalEntryID, and rejects reversing an already-reversed entry
// (spec.md §4.4.1). When isVoid is true, the original entry's void metadata
// is also set (full document void, spec.md §4.4.5); a plain reversal (e.g. a
// standalone journalEntry.reverse command) leaves the original's void fields
// untouched.
func (l *Ledger) CreateReversal(ctx context.Context, tx pgx.Tx, originalID int, reversalDate time.Time, reason string, isVoid bool) (*JournalEntry, error) {
	var companyID int
	var description string
	var voidedAt *time.Time
	err := tx.QueryRow(ctx, `
		SELECT company_id, description, voided_at
		FROM journal_entries
		WHERE id = $1
		FOR UPDATE
	`, originalID).Scan(&companyID, &description, &voidedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "journal entry %d not found", originalID)
		}
		return nil, fmt.Errorf("ledger: locking entry %d: %w", originalID, err)
	}

	var alreadyReversed int
	if err := tx.QueryRow(ctx, `SELECT count(*) FROM journal_entries WHERE reversal_of_journal_entry_id = $1`, originalID).Scan(&alreadyReversed); err != nil {
		return nil, fmt.Errorf("ledger: checking reversal status of %d: %w", originalID, err)
	}
	if alreadyReversed > 0 {
		return nil, apperr.New(apperr.InvalidStateTransition, "journal entry %d is already reversed", originalID)
	}

	rows, err := tx.Query(ctx, `SELECT account_id, debit, credit FROM journal_lines WHERE journal_entry_id = $1`, originalID)
	if err != nil {
		return nil, fmt.Errorf("ledger: reading lines of %d: %w", originalID, err)
	}
	var lines []JournalLineInput
	for rows.Next() {
		var accountID int
		var debit, credit string
		if err := rows.Scan(&accountID, &debit, &credit); err != nil {
			rows.Close()
			return nil, fmt.Errorf("ledger: scanning line of %d: %w", originalID, err)
		}
		d, _ := money.NewAmount(debit)
		c, _ := money.NewAmount(credit)
		// swap debit/credit for the reversal
		lines = append(lines, JournalLineInput{AccountID: accountID, Debit: c, Credit: d})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: iterating lines of %d: %w", originalID, err)
	}

	entry, err := l.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID:                companyID,
		Date:                     reversalDate,
		Description:              fmt.Sprintf("Reversal of entry %d: %s (%s)", originalID, description, reason),
		Lines:                    lines,
		ReversalOfJournalEntryID: &originalID,
		SkipAccountValidation:    true,
	})
	if err != nil {
		return nil, err
	}

	if isVoid {
		reason := reason
		_, err = tx.Exec(ctx, `UPDATE journal_entries SET voided_at = NOW(), void_reason = $1 WHERE id = $2`, reason, originalID)
		if err != nil {
			return nil, fmt.Errorf("ledger: annotating void on %d: %w", originalID, err)
		}
	}

	return entry, nil
}

// PostNetDeltaAdjustment implements spec.md §4.4.2: compute the net
// debit-credit per account of the existing entry, compute the desired net
// of the new content, diff them into balanced adjustment lines, and post a
// new entry. If priorAdjustmentID is non-nil, it is reversed first so only
// one adjustment is ever "live" at a time. Historical entries (existingID,
// any prior adjustment) are never mutated — only reversed-and-replaced.
func (l *Ledger) PostNetDeltaAdjustment(ctx context.Context, tx pgx.Tx, companyID int, date time.Time, description string, existingID int, priorAdjustmentID *int, desired []JournalLineInput) (*JournalEntry, error) {
	if priorAdjustmentID != nil {
		if _, err := l.CreateReversal(ctx, tx, *priorAdjustmentID, date, "superseded by new adjustment", false); err != nil {
			return nil, fmt.Errorf("ledger: reversing prior adjustment %d: %w", *priorAdjustmentID, err)
		}
	}

	existingNet, err := netByAccount(ctx, tx, existingID)
	if err != nil {
		return nil, err
	}
	// Any prior adjustment was reversed above, so existingID's lines alone
	// are the document's current journal state to diff against.
	desiredNet := make(map[int]money.Amount)
	for _, l := range desired {
		net := l.Debit.Sub(l.Credit)
		desiredNet[l.AccountID] = desiredNet[l.AccountID].Add(net)
	}

	accounts := make(map[int]bool)
	for a := range existingNet {
		accounts[a] = true
	}
	for a := range desiredNet {
		accounts[a] = true
	}

	var deltaLines []JournalLineInput
	for accountID := range accounts {
		delta := desiredNet[accountID].Sub(existingNet[accountID])
		if delta.IsZero() {
			continue
		}
		if delta.IsPositive() {
			deltaLines = append(deltaLines, JournalLineInput{AccountID: accountID, Debit: delta})
		} else {
			deltaLines = append(deltaLines, JournalLineInput{AccountID: accountID, Credit: delta.Neg()})
		}
	}

	if len(deltaLines) < 2 {
		// No net change, or a change concentrated on a single account (which
		// cannot happen for a balanced diff of two balanced entries) — either
		// way there is nothing balanced to post.
		return nil, nil
	}

	return l.PostJournalEntry(ctx, tx, PostJournalEntryInput{
		CompanyID:             companyID,
		Date:                  date,
		Description:           description,
		Lines:                 deltaLines,
		SkipAccountValidation: true,
	})
}

func netByAccount(ctx context.Context, tx pgx.Tx, entryID int) (map[int]money.Amount, error) {
	rows, err := tx.Query(ctx, `SELECT account_id, debit, credit FROM journal_lines WHERE journal_entry_id = $1`, entryID)
	if err != nil {
		return nil, fmt.Errorf("ledger: reading lines of %d: %w", entryID, err)
	}
	defer rows.Close()

	net := make(map[int]money.Amount)
	for rows.Next() {
		var accountID int
		var debit, credit string
		if err := rows.Scan(&accountID, &debit, &credit); err != nil {
			return nil, fmt.Errorf("ledger: scanning line of %d: %w", entryID, err)
		}
		d, _ := money.NewAmount(debit)
		c, _ := money.NewAmount(credit)
		net[accountID] = net[accountID].Add(d.Sub(c))
	}
	return net, rows.Err()
}
