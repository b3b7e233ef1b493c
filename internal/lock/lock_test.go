package lock

import (
	"context"
	"testing"
	"time"

	"github.com/flashmart/seckill/internal/testutil"
)

func TestLocker_AcquireAndContend(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb)

	h, err := locker.Acquire(ctx, "order:user:7", 10*time.Second)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if h == nil {
		t.Fatalf("expected lock acquired")
	}

	contender, err := locker.Acquire(ctx, "order:user:7", 10*time.Second)
	if err != nil {
		t.Fatalf("contending acquire: %v", err)
	}
	if contender != nil {
		t.Fatalf("expected contention, got a handle")
	}

	if err := h.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	again, err := locker.Acquire(ctx, "order:user:7", 10*time.Second)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	if again == nil {
		t.Fatalf("expected lock free after release")
	}
}

func TestLocker_DifferentNamesDoNotContend(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb)

	a, err := locker.Acquire(ctx, "order:user:1", 10*time.Second)
	if err != nil || a == nil {
		t.Fatalf("acquire a: %v %v", a, err)
	}
	b, err := locker.Acquire(ctx, "order:user:2", 10*time.Second)
	if err != nil || b == nil {
		t.Fatalf("acquire b: %v %v", b, err)
	}
}

func TestHandle_ReleaseOnlyDropsOwnToken(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb)

	h, err := locker.Acquire(ctx, "order:user:7", 10*time.Second)
	if err != nil || h == nil {
		t.Fatalf("acquire: %v %v", h, err)
	}

	// Simulate the TTL expiring and another holder taking the key before
	// this holder's delayed release runs.
	if err := rdb.Set(ctx, "lock:order:user:7", "other-holder-token", 10*time.Second).Err(); err != nil {
		t.Fatalf("overwrite holder: %v", err)
	}

	if err := h.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	val, err := rdb.Get(ctx, "lock:order:user:7").Result()
	if err != nil {
		t.Fatalf("read lock key: %v", err)
	}
	if val != "other-holder-token" {
		t.Fatalf("expected other holder's lock untouched, got %q", val)
	}
}

func TestLocker_TTLExpiresLock(t *testing.T) {
	rdb := testutil.NewTestRedis(t)
	ctx := context.Background()
	locker := NewLocker(rdb)

	h, err := locker.Acquire(ctx, "order:user:9", 100*time.Millisecond)
	if err != nil || h == nil {
		t.Fatalf("acquire: %v %v", h, err)
	}
	time.Sleep(200 * time.Millisecond)

	again, err := locker.Acquire(ctx, "order:user:9", time.Second)
	if err != nil {
		t.Fatalf("re-acquire: %v", err)
	}
	if again == nil {
		t.Fatalf("expected lock free after TTL expiry")
	}
}
