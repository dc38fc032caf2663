package core

import "context"

// Projection is the interface-only contract of spec.md §2 component 13: read
// projections (balances, aging, cashflow) are updated asynchronously by an
// out-of-scope worker that consumes the events this package emits through
// internal/outbox. Nothing in this repository implements Projection — it
// exists so the boundary is named and typed rather than left implicit, and
// so a future consumer package has a contract to satisfy.
type Projection interface {
	// Apply handles one outbox event (journal.entry.created,
	// journal.entry.reversed, inventory.recalc.requested) and updates
	// whatever read-model it maintains. Implementations must be idempotent
	// on eventID: delivery is at-least-once (spec.md §6).
	Apply(ctx context.Context, eventID, eventType string, payload []byte) error
}
