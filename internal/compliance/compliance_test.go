package compliance

import (
	"context"
	"testing"

	"github.com/ccmarkets/engine/internal/store/memstore"
)

func setupTestRecorder() *Recorder {
	return New(memstore.New())
}

func TestHalt_HaltsTrading(t *testing.T) {
	r := setupTestRecorder()
	ctx := context.Background()

	if err := r.Halt(ctx, "market-1", "unusual volatility", "admin"); err != nil {
		t.Fatalf("expected halt to succeed, got %v", err)
	}

	halted, err := r.store.IsHalted(ctx, "market-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !halted {
		t.Error("market-1 should be halted")
	}
}

func TestHalt_GlobalHaltAffectsAllMarkets(t *testing.T) {
	r := setupTestRecorder()
	ctx := context.Background()

	if err := r.Halt(ctx, "", "system maintenance", "admin"); err != nil {
		t.Fatalf("expected global halt to succeed, got %v", err)
	}

	halted, err := r.store.IsHalted(ctx, "any-market")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !halted {
		t.Error("global halt should affect all markets")
	}
}

func TestResume_LiftsHalt(t *testing.T) {
	r := setupTestRecorder()
	ctx := context.Background()

	if err := r.Halt(ctx, "market-1", "test halt", "admin"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := r.Resume(ctx, "market-1", "admin"); err != nil {
		t.Fatalf("expected resume to succeed, got %v", err)
	}

	halted, err := r.store.IsHalted(ctx, "market-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if halted {
		t.Error("market-1 should no longer be halted")
	}
}

func TestLog_AppendsAuditEntry(t *testing.T) {
	r := setupTestRecorder()
	ctx := context.Background()

	if err := r.Log(ctx, "user-1", "create", "market", "market-1", "market submitted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entries, err := r.History(ctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].EntityID != "market-1" {
		t.Errorf("expected entity id market-1, got %s", entries[0].EntityID)
	}
}

func TestConcurrentHaltChecks(t *testing.T) {
	r := setupTestRecorder()
	ctx := context.Background()
	r.Halt(ctx, "market-1", "test", "admin")

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func() {
			r.store.IsHalted(ctx, "market-1")
			done <- true
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}
