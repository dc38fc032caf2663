// Package idempotency implements the command idempotency layer of spec.md
// §4.3: given (companyId, idempotencyKey, requestFingerprint), it records the
// committed response and replays it on retry, rejecting reuse of a key under
// a different fingerprint. It generalizes the teacher's single-purpose
// pattern in internal/core/ledger.go (INSERT ... ON CONFLICT (idempotency_key)
// DO NOTHING RETURNING id on the journal_entries table) into its own table so
// any command, not just journal postings, can be idempotent.
package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"ledgercore/internal/apperr"
)

// uniqueViolation is the Postgres SQLSTATE for a unique/primary-key
// constraint violation.
const uniqueViolation = "23505"

// Fingerprint returns a stable hex-encoded SHA-256 digest of payload's
// canonical JSON encoding. Two requests with the same idempotency key must
// supply byte-for-byte-equivalent (after JSON marshaling) payloads or the
// second is rejected as idempotency-key-reuse.
func Fingerprint(payload any) (string, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("idempotency: marshaling payload: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}

// Run commits fn's effect at most once per (companyID, key). It must be called with
// tx already open on the same transaction that fn's domain writes use, so
// the idempotency record and the domain effect commit or roll back together.
//
// On first call: runs fn, persists the response alongside fingerprint, and
// returns (false, response, nil).
// On retry with a matching fingerprint: returns (true, storedResponse, nil)
// without invoking fn.
// On retry with a mismatched fingerprint: returns an idempotency-key-reuse
// error without invoking fn.
func Run(ctx context.Context, tx pgx.Tx, companyID int, key, fingerprint string, fn func(ctx context.Context) (json.RawMessage, error)) (replay bool, response json.RawMessage, err error) {
	if key == "" {
		return false, nil, apperr.New(apperr.IdempotencyKeyMissing, "idempotency key is required")
	}

	var storedFingerprint string
	var storedResponse []byte
	err = tx.QueryRow(ctx, `
		SELECT request_fingerprint, response
		FROM idempotency_records
		WHERE company_id = $1 AND key = $2
		FOR UPDATE
	`, companyID, key).Scan(&storedFingerprint, &storedResponse)

	switch {
	case err == nil:
		if storedFingerprint != fingerprint {
			return false, nil, apperr.New(apperr.IdempotencyKeyReuse,
				"idempotency key %q already used with a different request", key)
		}
		return true, json.RawMessage(storedResponse), nil

	case errors.Is(err, pgx.ErrNoRows):
		// Run fn and insert under one savepoint: a concurrent first-caller
		// may have already inserted and committed the same (company_id, key)
		// between our SELECT ... FOR UPDATE finding no row and this INSERT
		// (it had no row to lock against either), so the insert can lose a
		// unique violation. Rolling back the savepoint then discards fn's
		// writes too, and we replay the winner's response without aborting
		// the whole surrounding transaction.
		insertTx, err := tx.Begin(ctx)
		if err != nil {
			return false, nil, fmt.Errorf("idempotency: opening savepoint: %w", err)
		}
		resp, ferr := fn(ctx)
		if ferr != nil {
			_ = insertTx.Rollback(ctx)
			return false, nil, ferr
		}
		_, insertErr := insertTx.Exec(ctx, `
			INSERT INTO idempotency_records (company_id, key, request_fingerprint, response, created_at)
			VALUES ($1, $2, $3, $4, NOW())
		`, companyID, key, fingerprint, []byte(resp))
		if insertErr != nil {
			_ = insertTx.Rollback(ctx)
			var pgErr *pgconn.PgError
			if errors.As(insertErr, &pgErr) && pgErr.Code == uniqueViolation {
				// Lost the race: another concurrent first-caller committed
				// first. The savepoint rollback above discarded this
				// caller's fn writes, so only the winner's effect commits;
				// replay whatever it stored rather than surfacing a
				// constraint-violation 500, per spec.md §5/§8.
				return replayExisting(ctx, tx, companyID, key, fingerprint)
			}
			return false, nil, fmt.Errorf("idempotency: persisting response: %w", insertErr)
		}
		if err := insertTx.Commit(ctx); err != nil {
			return false, nil, fmt.Errorf("idempotency: committing savepoint: %w", err)
		}
		return false, resp, nil

	default:
		return false, nil, fmt.Errorf("idempotency: reading record: %w", err)
	}
}

// replayExisting re-reads a record inserted by a concurrent winner after
// this caller's own insert lost a unique-violation race, and returns it as a
// replay exactly like the normal "already exists" path above.
func replayExisting(ctx context.Context, tx pgx.Tx, companyID int, key, fingerprint string) (bool, json.RawMessage, error) {
	var storedFingerprint string
	var storedResponse []byte
	err := tx.QueryRow(ctx, `
		SELECT request_fingerprint, response
		FROM idempotency_records
		WHERE company_id = $1 AND key = $2
	`, companyID, key).Scan(&storedFingerprint, &storedResponse)
	if err != nil {
		return false, nil, fmt.Errorf("idempotency: reading record after losing insert race: %w", err)
	}
	if storedFingerprint != fingerprint {
		return false, nil, apperr.New(apperr.IdempotencyKeyReuse,
			"idempotency key %q already used with a different request", key)
	}
	return true, json.RawMessage(storedResponse), nil
}
