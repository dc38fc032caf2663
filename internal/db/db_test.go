package db

import (
	"context"
	"testing"
)

func TestNewPool_RejectsEmptyConnectionString(t *testing.T) {
	if _, err := NewPool(context.Background(), ""); err == nil {
		t.Fatalf("expected an error for an empty connection string")
	}
}

func TestNewPool_RejectsMalformedConnectionString(t *testing.T) {
	if _, err := NewPool(context.Background(), "not a valid connection string %"); err == nil {
		t.Fatalf("expected an error for a malformed connection string")
	}
}
