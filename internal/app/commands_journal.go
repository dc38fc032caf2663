package app

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
)

// PostJournalEntry implements journalEntry.post(companyId, date, description,
// lines[]) -> {id} (spec.md §6).
func (s *Service) PostJournalEntry(ctx context.Context, req PostJournalEntryRequest) (JournalEntryResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req, nil,
		func(ctx context.Context, tx pgx.Tx) (JournalEntryResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return JournalEntryResponse{}, err
			}
			lines := make([]core.JournalLineInput, len(req.Lines))
			for i, l := range req.Lines {
				lines[i] = core.JournalLineInput{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit}
			}
			entry, err := s.ledger.PostJournalEntry(ctx, tx, core.PostJournalEntryInput{
				CompanyID: req.CompanyID, Date: req.Date, Description: req.Description, Lines: lines,
			})
			if err != nil {
				return JournalEntryResponse{}, err
			}
			return JournalEntryResponse{ID: entry.ID}, nil
		})
}

// ReverseJournalEntry implements journalEntry.reverse(companyId, id,
// reversalDate, reason) -> {originalId, reversalId}.
func (s *Service) ReverseJournalEntry(ctx context.Context, req ReverseJournalEntryRequest) (ReversalResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req, nil,
		func(ctx context.Context, tx pgx.Tx) (ReversalResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return ReversalResponse{}, err
			}
			reversal, err := s.ledger.CreateReversal(ctx, tx, req.JournalEntryID, req.ReversalDate, req.Reason, false)
			if err != nil {
				return ReversalResponse{}, err
			}
			if reversal.CompanyID != req.CompanyID {
				return ReversalResponse{}, apperr.New(apperr.TenantScopeViolation,
					"journal entry %d does not belong to company %d", req.JournalEntryID, req.CompanyID)
			}
			return ReversalResponse{OriginalID: req.JournalEntryID, ReversalID: reversal.ID}, nil
		})
}
