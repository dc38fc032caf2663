package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// NumberPrefix maps a document kind to its human-readable number prefix
// (spec.md §6: "INV-<monotone-int>", "PBILL-<monotone-int>", "VC-<monotone-int>").
func NumberPrefix(kind DocumentKind) string {
	switch kind {
	case KindInvoice:
		return "INV"
	case KindPurchaseBill:
		return "PBILL"
	case KindVendorCredit:
		return "VC"
	case KindCustomerAdvance:
		return "CADV"
	case KindVendorAdvance:
		return "VADV"
	case KindPurchaseReceipt:
		return "PREC"
	default:
		return "DOC"
	}
}

// NextDocumentNumber generalizes the teacher's gapless sequence block from
// postDocumentWithTx (internal/core/document_service.go): a row-locked
// upsert on a per-(company, kind) counter, formatted as "<PREFIX>-%05d".
// The row lock on document_sequences serializes concurrent allocations for
// the same (companyID, kind) so two callers never receive the same number
// (spec.md §4.6, §5 "Sequence counters are mutated only while holding the
// counter row lock").
func NextDocumentNumber(ctx context.Context, tx pgx.Tx, companyID int, kind DocumentKind) (string, error) {
	var lastNumber int64
	err := tx.QueryRow(ctx, `
		INSERT INTO document_sequences (company_id, kind, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (company_id, kind)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`, companyID, string(kind)).Scan(&lastNumber)
	if err != nil {
		return "", fmt.Errorf("sequence: allocating number for company %d kind %s: %w", companyID, kind, err)
	}
	return fmt.Sprintf("%s-%05d", NumberPrefix(kind), lastNumber), nil
}
