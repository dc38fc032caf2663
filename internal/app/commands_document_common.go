package app

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
	"ledgercore/internal/lock"
)

// checkOwnership rejects a document row that turns out not to belong to the
// company the caller claimed — the same tenant-scope check the teacher's
// handlers make once a row's real company_id is known.
func checkOwnership(d *core.Document, companyID int) error {
	if d.CompanyID != companyID {
		return apperr.New(apperr.TenantScopeViolation, "document %d does not belong to company %d", d.ID, companyID)
	}
	return nil
}

// checkSettlementOwnership rejects a settlement whose document turned out to
// belong to a different company than the caller claimed.
func checkSettlementOwnership(actualCompanyID, claimedCompanyID int) error {
	if actualCompanyID != claimedCompanyID {
		return apperr.New(apperr.TenantScopeViolation, "document does not belong to company %d", claimedCompanyID)
	}
	return nil
}

// approveDocument implements the DRAFT -> APPROVED transition shared by
// invoice.approve / purchaseBill.approve (vendorCredit and the advances have
// no approve step in the command surface of spec.md §6).
func (s *Service) approveDocument(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.Approve(ctx, tx, req.DocumentID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// deleteDocument implements invoice.delete / purchaseBill.delete.
func (s *Service) deleteDocument(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			if err := s.documents.Delete(ctx, tx, req.DocumentID); err != nil {
				return DocumentResponse{}, err
			}
			return DocumentResponse{ID: req.DocumentID, Status: "DELETED"}, nil
		})
}

// updateDocumentLines implements the shared invoice.update /
// purchaseBill.update content-edit command.
func (s *Service) updateDocumentLines(ctx context.Context, req UpdateDocumentLinesRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.UpdateLines(ctx, tx, req.DocumentID, toDocumentLines(req.Lines))
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}
