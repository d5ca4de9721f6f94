package lock

import (
	"context"
	"testing"
	"time"
)

func TestAdvisoryLocker_HeldNameIsBusy(t *testing.T) {
	// pool=nil: занятое имя должно отклоняться до любого обращения
	// к пулу, иначе тест упадёт паникой.
	l := NewAdvisoryLocker(nil)
	l.mu.Lock()
	l.held["courier.dispatch"] = nil
	l.mu.Unlock()

	acquired, err := l.TryAcquire(context.Background(), "courier.dispatch", time.Second)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acquired {
		t.Error("TryAcquire should report busy for a name this process already holds")
	}
}

func TestAdvisoryLocker_ReleaseUnheldName(t *testing.T) {
	l := NewAdvisoryLocker(nil)

	if err := l.Release(context.Background(), "courier.dispatch"); err != nil {
		t.Errorf("Release of an unheld name should be a no-op, got %v", err)
	}
}

func TestLockKey_StablePerName(t *testing.T) {
	if lockKey("courier.dispatch") != lockKey("courier.dispatch") {
		t.Error("lockKey should be deterministic")
	}
	if lockKey("courier.dispatch") == lockKey("courier.janitor") {
		t.Error("distinct names should map to distinct keys")
	}
}
