package outbox

import (
	"context"
	"log"
)

// Publisher is the fast-path, best-effort publish channel to the pub/sub
// substrate spec.md §1 names as an external collaborator. Publish is called
// post-commit and is explicitly fire-and-forget: a Publish failure is logged
// and left for the out-of-scope outbox poller, never surfaced to the
// original caller (spec.md §5, §7).
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NoOpPublisher discards events; used when no pub/sub substrate is
// configured (e.g. the CLI console, or tests exercising only the
// transactional write path).
type NoOpPublisher struct{}

func (NoOpPublisher) Publish(ctx context.Context, ev Event) error { return nil }

// AsyncPublisher fans events out to an inner Publisher from a background
// goroutine so the request path never blocks on the pub/sub substrate. This
// generalizes the teacher's own background-goroutine idiom (the pending-auth
// purge loop started in internal/adapters/web/handlers.go) into a small
// bounded work queue.
type AsyncPublisher struct {
	inner Publisher
	queue chan Event
	done  chan struct{}
}

// NewAsyncPublisher starts a worker goroutine draining a queue of depth
// bufferSize into inner.Publish. Call Close to drain and stop the worker.
func NewAsyncPublisher(inner Publisher, bufferSize int) *AsyncPublisher {
	p := &AsyncPublisher{
		inner: inner,
		queue: make(chan Event, bufferSize),
		done:  make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *AsyncPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		if err := p.inner.Publish(context.Background(), ev); err != nil {
			log.Printf("outbox: fast-path publish failed for event %s (%s): %v — left for poller", ev.EventID, ev.EventType, err)
		}
	}
}

// Publish enqueues ev without blocking on the inner publisher. If the queue
// is full the event is dropped from the fast path and logged; the
// out-of-scope poller remains the guaranteed delivery mechanism.
func (p *AsyncPublisher) Publish(ctx context.Context, ev Event) error {
	select {
	case p.queue <- ev:
		return nil
	default:
		log.Printf("outbox: fast-path queue full, dropping event %s (%s) — poller will deliver it", ev.EventID, ev.EventType)
		return nil
	}
}

// Close stops accepting new events and waits for the queue to drain.
func (p *AsyncPublisher) Close() {
	close(p.queue)
	<-p.done
}
