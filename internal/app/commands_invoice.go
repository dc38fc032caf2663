package app

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/core"
	"ledgercore/internal/lock"
)

// CreateInvoice implements invoice.create.
func (s *Service) CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req, nil,
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.CreateInvoice(ctx, tx, core.CreateInvoiceInput{
				CompanyID: req.CompanyID, Date: req.Date, LocationID: req.LocationID,
				Currency: req.Currency, CustomerID: req.CustomerID, Lines: toDocumentLines(req.Lines),
			})
			if err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// UpdateInvoice implements invoice.update.
func (s *Service) UpdateInvoice(ctx context.Context, req UpdateDocumentLinesRequest) (DocumentResponse, error) {
	return s.updateDocumentLines(ctx, req)
}

// ApproveInvoice implements invoice.approve.
func (s *Service) ApproveInvoice(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return s.approveDocument(ctx, req)
}

// DeleteInvoice implements invoice.delete.
func (s *Service) DeleteInvoice(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return s.deleteDocument(ctx, req)
}

// PostInvoice implements invoice.post.
func (s *Service) PostInvoice(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.PostInvoice(ctx, tx, req.DocumentID, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// AdjustInvoice implements invoice.adjust.
func (s *Service) AdjustInvoice(ctx context.Context, req AdjustInvoiceRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.AdjustInvoice(ctx, tx, req.DocumentID, toDocumentLines(req.Lines), req.Date, req.Description)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// VoidInvoice implements invoice.void.
func (s *Service) VoidInvoice(ctx context.Context, req VoidDocumentRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.VoidInvoice(ctx, tx, req.DocumentID, req.VoidDate, req.Reason, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// ApplyPaymentToInvoice implements invoice.applyPayment(invoiceId, amount,
// date, bankAccountId).
func (s *Service) ApplyPaymentToInvoice(ctx context.Context, req ApplyPaymentRequest) (SettlementResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (SettlementResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return SettlementResponse{}, err
			}
			settlement, err := s.settlement.RecordPayment(ctx, tx, req.DocumentID, req.BankAccountID, req.Amount, req.Date, req.CorrelationID)
			if err != nil {
				return SettlementResponse{}, err
			}
			if err := checkSettlementOwnership(settlement.CompanyID, req.CompanyID); err != nil {
				return SettlementResponse{}, err
			}
			return toSettlementResponse(settlement), nil
		})
}

// ApplyCustomerAdvanceToInvoice implements
// invoice.applyCustomerAdvance(invoiceId, advanceId, amount, date).
func (s *Service) ApplyCustomerAdvanceToInvoice(ctx context.Context, req ApplySourceDocumentRequest) (SettlementResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID), lock.DocumentKey(req.CompanyID, req.SourceDocumentID)},
		func(ctx context.Context, tx pgx.Tx) (SettlementResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return SettlementResponse{}, err
			}
			settlement, err := s.settlement.ApplyAdvance(ctx, tx, req.DocumentID, req.SourceDocumentID, req.Amount, req.Date, req.CorrelationID)
			if err != nil {
				return SettlementResponse{}, err
			}
			if err := checkSettlementOwnership(settlement.CompanyID, req.CompanyID); err != nil {
				return SettlementResponse{}, err
			}
			return toSettlementResponse(settlement), nil
		})
}

// ApplyCreditNoteToInvoice implements invoice.applyCreditNote(invoiceId,
// creditNoteId, amount, date). Invoices draw down a sales credit note the
// same shape as a vendor-side credit, generalized through the same
// applyPrepayment template.
func (s *Service) ApplyCreditNoteToInvoice(ctx context.Context, req ApplySourceDocumentRequest) (SettlementResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID), lock.DocumentKey(req.CompanyID, req.SourceDocumentID)},
		func(ctx context.Context, tx pgx.Tx) (SettlementResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return SettlementResponse{}, err
			}
			settlement, err := s.settlement.ApplyCredit(ctx, tx, req.DocumentID, req.SourceDocumentID, req.Amount, req.Date, req.CorrelationID)
			if err != nil {
				return SettlementResponse{}, err
			}
			if err := checkSettlementOwnership(settlement.CompanyID, req.CompanyID); err != nil {
				return SettlementResponse{}, err
			}
			return toSettlementResponse(settlement), nil
		})
}
