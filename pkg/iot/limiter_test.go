package iot

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestRateLimiterStore_Basic(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	limiter := store.GetLimiter("esp32_a")
	if limiter == nil {
		t.Fatal("expected limiter, got nil")
	}
	if limiter.Limit() != 1 {
		t.Errorf("expected limit 1, got %v", limiter.Limit())
	}
}

func TestRateLimiterStore_CustomLimit(t *testing.T) {
	store := NewRateLimiterStore(1, 2)

	store.SetLimiter("esp32_b", 5, 10)
	limiter := store.GetLimiter("esp32_b")

	if limiter.Limit() != 5 {
		t.Errorf("expected limit 5, got %v", limiter.Limit())
	}
	if limiter.Burst() != 10 {
		t.Errorf("expected burst 10, got %v", limiter.Burst())
	}
}

func TestRateLimiterStore_Concurrency(t *testing.T) {
	store := NewRateLimiterStore(10, 5)
	key := uuid.NewString()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.GetLimiter(key) == nil {
				t.Error("expected limiter, got nil")
			}
		}()
	}
	wg.Wait()

	if store.GetLimiter(key) == nil {
		t.Error("expected limiter to exist after concurrent access")
	}
}

func TestRateLimiterStore_AllowEnforcement(t *testing.T) {
	store := NewRateLimiterStore(2, 2)
	key := uuid.NewString()

	if !store.Allow(key) || !store.Allow(key) {
		t.Fatal("expected first two calls to be allowed")
	}
	if store.Allow(key) {
		t.Error("expected third call to be rate limited")
	}

	time.Sleep(600 * time.Millisecond)
	if !store.Allow(key) {
		t.Error("expected one token to be available after refill")
	}
}

func TestRateLimiterStore_NilAllowsEverything(t *testing.T) {
	var store *RateLimiterStore
	for i := 0; i < 10; i++ {
		if !store.Allow("any") {
			t.Fatal("nil store must not limit")
		}
	}
}
