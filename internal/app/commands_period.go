package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ClosePeriod implements period.close(companyId, from, to) (spec.md §4.5,
// §6). It locks on a company-wide period key rather than any single
// document, since closing touches every INCOME/EXPENSE account at once.
func (s *Service) ClosePeriod(ctx context.Context, req ClosePeriodRequest) (PeriodCloseResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{fmt.Sprintf("company:%d:period-close", req.CompanyID)},
		func(ctx context.Context, tx pgx.Tx) (PeriodCloseResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return PeriodCloseResponse{}, err
			}
			pc, err := s.period.Close(ctx, tx, req.CompanyID, req.From, req.To, req.EquityAccountID)
			if err != nil {
				return PeriodCloseResponse{}, err
			}
			return PeriodCloseResponse{
				CompanyID: pc.CompanyID, From: pc.From, To: pc.To,
				JournalEntryID: pc.JournalEntryID, ClosedAt: pc.ClosedAt,
			}, nil
		})
}
