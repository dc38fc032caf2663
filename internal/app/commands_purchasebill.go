package app

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/core"
	"ledgercore/internal/lock"
)

// CreatePurchaseBill implements purchaseBill.create.
func (s *Service) CreatePurchaseBill(ctx context.Context, req CreatePurchaseBillRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req, nil,
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.CreatePurchaseBill(ctx, tx, core.CreatePurchaseBillInput{
				CompanyID: req.CompanyID, Date: req.Date, LocationID: req.LocationID, Currency: req.Currency,
				VendorID: req.VendorID, LinkedReceiptID: req.LinkedReceiptID, Lines: toDocumentLines(req.Lines),
			})
			if err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// CreatePurchaseReceipt precedes a linked-receipt purchase bill (spec.md
// §4.4.3); it is not itself a command §6 lists by name, but is the only way
// to produce a LinkedReceiptID for purchaseBill.create's GRNI/PPV path.
func (s *Service) CreatePurchaseReceipt(ctx context.Context, req CreatePurchaseReceiptRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req, nil,
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.CreatePurchaseReceipt(ctx, tx, core.CreatePurchaseBillInput{
				CompanyID: req.CompanyID, Date: req.Date, LocationID: req.LocationID,
				Currency: req.Currency, VendorID: req.VendorID, Lines: toDocumentLines(req.Lines),
			})
			if err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// PostPurchaseReceipt posts the receipt created above.
func (s *Service) PostPurchaseReceipt(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.PostPurchaseReceipt(ctx, tx, req.DocumentID, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// UpdatePurchaseBill implements purchaseBill.update.
func (s *Service) UpdatePurchaseBill(ctx context.Context, req UpdateDocumentLinesRequest) (DocumentResponse, error) {
	return s.updateDocumentLines(ctx, req)
}

// ApprovePurchaseBill implements purchaseBill.approve.
func (s *Service) ApprovePurchaseBill(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return s.approveDocument(ctx, req)
}

// DeletePurchaseBill implements purchaseBill.delete.
func (s *Service) DeletePurchaseBill(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return s.deleteDocument(ctx, req)
}

// PostPurchaseBill implements purchaseBill.post.
func (s *Service) PostPurchaseBill(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.PostPurchaseBill(ctx, tx, req.DocumentID, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// AdjustPurchaseBill implements purchaseBill.adjust.
func (s *Service) AdjustPurchaseBill(ctx context.Context, req AdjustInvoiceRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.AdjustPurchaseBill(ctx, tx, req.DocumentID, toDocumentLines(req.Lines), req.Date, req.Description)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// VoidPurchaseBill implements purchaseBill.void.
func (s *Service) VoidPurchaseBill(ctx context.Context, req VoidDocumentRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.VoidPurchaseBill(ctx, tx, req.DocumentID, req.VoidDate, req.Reason, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// ApplyPaymentToBill implements purchaseBill.applyPayment(...).
func (s *Service) ApplyPaymentToBill(ctx context.Context, req ApplyPaymentRequest) (SettlementResponse, error) {
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

// ApplyVendorCreditToBill implements purchaseBill.applyVendorCredit(...).
func (s *Service) ApplyVendorCreditToBill(ctx context.Context, req ApplySourceDocumentRequest) (SettlementResponse, error) {
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

// ApplyVendorAdvanceToBill implements purchaseBill.applyVendorAdvance(...)
// and vendorAdvance.apply — both name the same settlement from the bill's
// and the advance's point of view (see ApplyVendorAdvance in
// commands_advance.go for the vendorAdvance-named alias).
func (s *Service) ApplyVendorAdvanceToBill(ctx context.Context, req ApplySourceDocumentRequest) (SettlementResponse, error) {
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
