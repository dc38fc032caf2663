package app

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ledgercore/internal/core"
	"ledgercore/internal/lock"
)

// CreateVendorCredit implements vendorCredit.create.
func (s *Service) CreateVendorCredit(ctx context.Context, req CreateVendorCreditRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req, nil,
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.CreateVendorCredit(ctx, tx, core.CreateVendorCreditInput{
				CompanyID: req.CompanyID, Date: req.Date, LocationID: req.LocationID,
				Currency: req.Currency, VendorID: req.VendorID, Lines: toDocumentLines(req.Lines),
			})
			if err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// PostVendorCredit implements vendorCredit.post.
func (s *Service) PostVendorCredit(ctx context.Context, req DocumentActionRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.PostVendorCredit(ctx, tx, req.DocumentID, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}

// VoidVendorCredit implements vendorCredit.void.
func (s *Service) VoidVendorCredit(ctx context.Context, req VoidDocumentRequest) (DocumentResponse, error) {
	return execute(ctx, s, req.CompanyID, req.IdempotencyKey, req,
		[]string{lock.DocumentKey(req.CompanyID, req.DocumentID)},
		func(ctx context.Context, tx pgx.Tx) (DocumentResponse, error) {
			if err := requireActor(ctx, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			d, err := s.documents.VoidVendorCredit(ctx, tx, req.DocumentID, req.VoidDate, req.Reason, req.CorrelationID)
			if err != nil {
				return DocumentResponse{}, err
			}
			if err := checkOwnership(d, req.CompanyID); err != nil {
				return DocumentResponse{}, err
			}
			return toDocumentResponse(d), nil
		})
}
