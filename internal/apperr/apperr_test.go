package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNew_FormatsMessageAndError(t *testing.T) {
	err := New(UnbalancedEntry, "debits %s != credits %s", "10.00", "20.00")
	want := "unbalanced-entry: debits 10.00 != credits 20.00"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestKindOf_UnwrapsThroughFmtErrorf(t *testing.T) {
	wrapped := fmt.Errorf("posting failed: %w", New(PeriodClosed, "period is closed"))
	if KindOf(wrapped) != PeriodClosed {
		t.Errorf("expected KindOf to unwrap through %%w, got %s", KindOf(wrapped))
	}
}

func TestKindOf_DefaultsToInternalForForeignErrors(t *testing.T) {
	if KindOf(errors.New("boom")) != Internal {
		t.Errorf("expected a plain error to map to Internal")
	}
}

func TestIs_MatchesOnlyTheGivenKind(t *testing.T) {
	err := New(Overpayment, "payment exceeds the outstanding balance")
	if !Is(err, Overpayment) {
		t.Errorf("expected Is to match the error's own kind")
	}
	if Is(err, InsufficientStock) {
		t.Errorf("expected Is not to match a different kind")
	}
}

func TestRetryable_OnlyLockContention(t *testing.T) {
	if !Retryable(New(LockContention, "lock held by another actor")) {
		t.Errorf("expected LockContention to be retryable")
	}
	if Retryable(New(InvalidInput, "bad request")) {
		t.Errorf("expected InvalidInput not to be retryable")
	}
}

func TestWithDetails_AttachesAndReturnsSameError(t *testing.T) {
	err := New(NotFound, "account 5 not found")
	returned := err.WithDetails(map[string]any{"accountId": 5})
	if returned != err {
		t.Errorf("expected WithDetails to return the same *Error for chaining")
	}
	if err.Details["accountId"] != 5 {
		t.Errorf("expected details to be attached")
	}
}
