// Package outbox implements the transactional event outbox of spec.md §4.6
// and §6: a same-transaction insert of the event envelope, plus a best-effort
// fast-path publish after commit. The guaranteed-delivery fallback poller is
// explicitly out of scope (spec.md §1) — it is an external collaborator this
// package only produces rows for.
package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event is the outbox envelope, matching the wire shape in spec.md §6.
type Event struct {
	EventID       string          `json:"eventId"`
	EventType     string          `json:"eventType"`
	SchemaVersion string          `json:"schemaVersion"`
	OccurredAt    time.Time       `json:"occurredAt"`
	CompanyID     int             `json:"companyId"`
	PartitionKey  string          `json:"partitionKey"`
	CorrelationID string          `json:"correlationId"`
	CausationID   string          `json:"causationId,omitempty"`
	AggregateType string          `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	Source        string          `json:"source"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEvent constructs an Event with a fresh eventId, schemaVersion "v1", and
// partitionKey = String(companyId) as spec.md §3 requires. occurredAt is
// supplied by the caller rather than time.Now() so tests and replays stay
// deterministic.
func NewEvent(companyID int, eventType, aggregateType, aggregateID, correlationID, causationID, source string, occurredAt time.Time, payload any) (Event, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("outbox: marshaling payload: %w", err)
	}
	return Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		SchemaVersion: "v1",
		OccurredAt:    occurredAt,
		CompanyID:     companyID,
		PartitionKey:  fmt.Sprintf("%d", companyID),
		CorrelationID: correlationID,
		CausationID:   causationID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Source:        source,
		Payload:       body,
	}, nil
}

// Event type constants emitted by the core (spec.md §6).
const (
	EventJournalEntryCreated    = "journal.entry.created"
	EventJournalEntryReversed   = "journal.entry.reversed"
	EventInventoryRecalcRequest = "inventory.recalc.requested"
)

// Insert writes ev within tx, in the same transaction as the domain write it
// accompanies.
func Insert(ctx context.Context, tx pgx.Tx, ev Event) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO events (
			event_id, event_type, schema_version, occurred_at, company_id,
			partition_key, correlation_id, causation_id, aggregate_type,
			aggregate_id, source, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, ev.EventID, ev.EventType, ev.SchemaVersion, ev.OccurredAt, ev.CompanyID,
		ev.PartitionKey, ev.CorrelationID, nullableString(ev.CausationID), ev.AggregateType,
		ev.AggregateID, ev.Source, []byte(ev.Payload))
	if err != nil {
		return fmt.Errorf("outbox: inserting event %s: %w", ev.EventType, err)
	}
	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// MarkPublished records that ev was handed to the publisher, so the fallback
// poller (out of scope here) can skip rows the fast path already delivered.
func MarkPublished(ctx context.Context, pool Execer, eventID string, publishedAt time.Time) error {
	_, err := pool.Exec(ctx, `UPDATE events SET published_at = $1 WHERE event_id = $2`, publishedAt, eventID)
	if err != nil {
		return fmt.Errorf("outbox: marking %s published: %w", eventID, err)
	}
	return nil
}

// ListUnpublished returns up to limit events for companyID that have not yet
// been handed to the fast-path Publisher, oldest first. The command layer
// calls this against the pool (never a tx) right after commit, so a Publish
// failure here can never roll back the domain write it accompanies — the
// out-of-scope poller remains the guaranteed-delivery fallback for whatever
// it misses.
func ListUnpublished(ctx context.Context, pool *pgxpool.Pool, companyID, limit int) ([]Event, error) {
	rows, err := pool.Query(ctx, `
		SELECT event_id, event_type, schema_version, occurred_at, company_id,
		       partition_key, correlation_id, COALESCE(causation_id, ''),
		       aggregate_type, aggregate_id, source, payload
		FROM events
		WHERE company_id = $1 AND published_at IS NULL
		ORDER BY occurred_at ASC
		LIMIT $2
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("outbox: listing unpublished events for company %d: %w", companyID, err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var ev Event
		var payload []byte
		if err := rows.Scan(&ev.EventID, &ev.EventType, &ev.SchemaVersion, &ev.OccurredAt, &ev.CompanyID,
			&ev.PartitionKey, &ev.CorrelationID, &ev.CausationID, &ev.AggregateType, &ev.AggregateID,
			&ev.Source, &payload); err != nil {
			return nil, fmt.Errorf("outbox: scanning unpublished event: %w", err)
		}
		ev.Payload = json.RawMessage(payload)
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Execer is satisfied by both *pgxpool.Pool and pgx.Tx, letting MarkPublished
// run either post-commit (against the pool) or inside a caller's transaction.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
