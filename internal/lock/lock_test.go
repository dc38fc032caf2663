package lock

import (
	"context"
	"testing"
	"time"
)

// fakeService records acquire/release order without needing a live Redis.
type fakeService struct {
	acquired []string
	released []string
}

func (f *fakeService) Acquire(ctx context.Context, key string, ttl time.Duration) (string, error) {
	f.acquired = append(f.acquired, key)
	return "tok-" + key, nil
}

func (f *fakeService) Release(ctx context.Context, key, token string) error {
	f.released = append(f.released, key)
	return nil
}

func TestWithLocks_SortsKeysAndReleasesInReverse(t *testing.T) {
	f := &fakeService{}
	keys := []string{"company:1:document:5", "company:1:document:2", "company:1:document:9"}

	err := WithLocks(context.Background(), f, keys, time.Second, func(ctx context.Context) error {
		return nil
	})
	if err != nil {
		t.Fatalf("WithLocks: %v", err)
	}

	wantAcquired := []string{"company:1:document:2", "company:1:document:5", "company:1:document:9"}
	if !equal(f.acquired, wantAcquired) {
		t.Errorf("acquired order = %v, want %v", f.acquired, wantAcquired)
	}

	wantReleased := []string{"company:1:document:9", "company:1:document:5", "company:1:document:2"}
	if !equal(f.released, wantReleased) {
		t.Errorf("released order = %v, want %v", f.released, wantReleased)
	}
}

func TestWithLocks_ReleasesOnError(t *testing.T) {
	f := &fakeService{}
	err := WithLocks(context.Background(), f, []string{"b", "a"}, time.Second, func(ctx context.Context) error {
		return context.DeadlineExceeded
	})
	if err != context.DeadlineExceeded {
		t.Fatalf("expected passthrough error, got %v", err)
	}
	if len(f.released) != 2 {
		t.Errorf("expected both locks released even on error, got %v", f.released)
	}
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
