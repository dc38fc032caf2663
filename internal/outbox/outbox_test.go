package outbox

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestNewEvent_SetsPartitionKeyAndSchemaVersion(t *testing.T) {
	ev, err := NewEvent(42, EventJournalEntryCreated, "JournalEntry", "100", "corr-1", "", "ledgercore", time.Unix(0, 0), map[string]int{"id": 100})
	if err != nil {
		t.Fatalf("NewEvent: %v", err)
	}
	if ev.PartitionKey != "42" {
		t.Errorf("PartitionKey = %s, want 42", ev.PartitionKey)
	}
	if ev.SchemaVersion != "v1" {
		t.Errorf("SchemaVersion = %s, want v1", ev.SchemaVersion)
	}
	if ev.EventID == "" {
		t.Errorf("expected a generated eventId")
	}
}

type recordingPublisher struct {
	mu   sync.Mutex
	seen []string
}

func (p *recordingPublisher) Publish(ctx context.Context, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, ev.EventID)
	return nil
}

func TestAsyncPublisher_DeliversToInner(t *testing.T) {
	rec := &recordingPublisher{}
	p := NewAsyncPublisher(rec, 4)

	ev, _ := NewEvent(1, EventJournalEntryCreated, "JournalEntry", "1", "corr", "", "ledgercore", time.Unix(0, 0), nil)
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	p.Close()

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.seen) != 1 || rec.seen[0] != ev.EventID {
		t.Errorf("expected inner publisher to receive %s, got %v", ev.EventID, rec.seen)
	}
}

func TestNoOpPublisher_NeverErrors(t *testing.T) {
	var p NoOpPublisher
	ev, _ := NewEvent(1, EventJournalEntryCreated, "JournalEntry", "1", "corr", "", "ledgercore", time.Unix(0, 0), nil)
	if err := p.Publish(context.Background(), ev); err != nil {
		t.Errorf("NoOpPublisher.Publish returned error: %v", err)
	}
}
