// Package app is the command surface of spec.md §6: the single orchestration
// layer every adapter (HTTP, CLI console) calls into. It is the teacher's
// "ApplicationService is the single interface all UI adapters call" idiom
// (internal/app/service.go), generalized from one big hand-written interface
// into a struct whose methods wire idempotency, locking, the transaction
// boundary, and the internal/core services together around each command.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ledgercore/internal/apperr"
	"ledgercore/internal/core"
	"ledgercore/internal/idempotency"
	"ledgercore/internal/lock"
	"ledgercore/internal/outbox"
	"ledgercore/internal/tenant"
)

// Service wires every internal/core collaborator a command needs. One
// Service is constructed at process startup (cmd/server, cmd/console) and
// shared across requests — per Design Note 9, the collaborators it holds are
// passed in explicitly rather than reached for as package-level singletons.
type Service struct {
	pool       *pgxpool.Pool
	lockSvc    lock.Service
	publisher  outbox.Publisher
	ledger     *core.Ledger
	period     *core.PeriodService
	inventory  *core.InventoryEngine
	resolver   *core.AccountResolver
	documents  *core.DocumentService
	settlement *core.SettlementService
	reporting  *core.ReportingService
}

// NewService constructs every internal/core collaborator from pool and
// wires them into a Service. lockSvc and publisher are threaded in rather
// than constructed here, since their concrete implementations (Redis client,
// pub/sub substrate) are a process-level concern cmd/server/main.go owns.
func NewService(pool *pgxpool.Pool, lockSvc lock.Service, publisher outbox.Publisher) *Service {
	ledger := core.NewLedger(pool)
	resolver := core.NewAccountResolver()
	inventory := core.NewInventoryEngine(pool)
	return &Service{
		pool:       pool,
		lockSvc:    lockSvc,
		publisher:  publisher,
		ledger:     ledger,
		period:     core.NewPeriodService(pool, ledger),
		inventory:  inventory,
		resolver:   resolver,
		documents:  core.NewDocumentService(pool, ledger, inventory, resolver),
		settlement: core.NewSettlementService(pool, ledger, resolver),
		reporting:  core.NewReportingService(pool),
	}
}

// maxFastPathDrain bounds how many unpublished events a single command tries
// to hand to the fast-path Publisher after its own commit. It is not "this
// command's events" specifically — any company-scoped backlog the fast path
// has not yet caught up on rides along, which is harmless since Publish is
// idempotent-at-the-consumer by eventId (spec.md §6).
const maxFastPathDrain = 20

// execute is the shared orchestration template behind every command: acquire
// lockKeys (best-effort), open a transaction, run fn under
// idempotency.Run keyed on (companyID, idempotencyKey, fingerprint of
// payload), commit, and — only after a successful commit — best-effort drain
// the company's outbox backlog to the fast-path publisher. T is the
// command's JSON-serializable response shape.
func execute[T any](ctx context.Context, s *Service, companyID int, idempotencyKey string, payload any, lockKeys []string, fn func(ctx context.Context, tx pgx.Tx) (T, error)) (T, error) {
	var zero T

	fingerprint, err := idempotency.Fingerprint(payload)
	if err != nil {
		return zero, err
	}

	runOnce := func() (T, error) {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return zero, fmt.Errorf("app: beginning transaction: %w", err)
		}
		defer tx.Rollback(ctx)

		_, raw, err := idempotency.Run(ctx, tx, companyID, idempotencyKey, fingerprint, func(ctx context.Context) (json.RawMessage, error) {
			result, err := fn(ctx, tx)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		})
		if err != nil {
			return zero, err
		}
		if err := tx.Commit(ctx); err != nil {
			return zero, fmt.Errorf("app: committing transaction: %w", err)
		}

		var result T
		if err := json.Unmarshal(raw, &result); err != nil {
			return zero, fmt.Errorf("app: decoding command response: %w", err)
		}
		return result, nil
	}

	if len(lockKeys) == 0 {
		result, err := runOnce()
		if err == nil {
			s.drainOutbox(ctx, companyID)
		}
		return result, err
	}

	var result T
	err = lock.WithLocks(ctx, s.lockSvc, lockKeys, lock.DefaultTTL, func(ctx context.Context) error {
		var innerErr error
		result, innerErr = runOnce()
		return innerErr
	})
	if err == nil {
		s.drainOutbox(ctx, companyID)
	}
	return result, err
}

// drainOutbox hands the company's unpublished event backlog to the
// fast-path publisher. It is intentionally fire-and-forget: nothing here can
// affect the command's own result, since it only ever runs after that
// command's transaction already committed (spec.md §5 — publish failures
// are left for the out-of-scope poller, never surfaced to the caller).
func (s *Service) drainOutbox(ctx context.Context, companyID int) {
	events, err := outbox.ListUnpublished(ctx, s.pool, companyID, maxFastPathDrain)
	if err != nil {
		log.Printf("app: listing unpublished events for company %d: %v", companyID, err)
		return
	}
	for _, ev := range events {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			log.Printf("app: fast-path publish failed for event %s (%s): %v", ev.EventID, ev.EventType, err)
			continue
		}
		if err := outbox.MarkPublished(ctx, s.pool, ev.EventID, time.Now()); err != nil {
			log.Printf("app: marking event %s published: %v", ev.EventID, err)
		}
	}
}

// requireActor validates that the caller-supplied companyID matches the
// tenant actor carried on ctx, the entry-point check every command makes
// before touching the database (spec.md §7, tenant-scope-violation).
func requireActor(ctx context.Context, companyID int) error {
	if companyID == 0 {
		return apperr.New(apperr.InvalidInput, "companyId is required")
	}
	return tenant.RequireCompany(ctx, companyID)
}
