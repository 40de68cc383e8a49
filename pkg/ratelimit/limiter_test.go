package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(5, time.Second)

	// Test initial capacity
	for i := 0; i < 5; i++ {
		if !tb.Allow() {
			t.Errorf("Expected token %d to be available", i+1)
		}
	}

	// Test exhaustion
	if tb.Allow() {
		t.Error("Expected no more tokens to be available")
	}
	if tb.tokens != 0 {
		t.Errorf("Expected an empty bucket, got %d tokens", tb.tokens)
	}
}

func TestTokenBucketRefill(t *testing.T) {
	current := time.Unix(1000, 0)
	tb := NewTokenBucket(2, time.Minute)
	tb.now = func() time.Time { return current }
	tb.lastRefill = current

	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Fatal("Expected bucket to be empty")
	}

	current = current.Add(59 * time.Second)
	if tb.Allow() {
		t.Error("Expected no refill before the period ends")
	}

	current = current.Add(time.Second)
	if !tb.Allow() {
		t.Error("Expected tokens to be refilled after the period")
	}
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)
	ctx := context.Background()

	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("first wait: %v", err)
	}

	start := time.Now()
	if err := tb.Wait(ctx); err != nil {
		t.Fatalf("second wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("Expected second wait to block for the refill period, took %v", elapsed)
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestPerMinute(t *testing.T) {
	if PerMinute(0) != nil {
		t.Error("Expected no limiter for 0 requests per minute")
	}

	l := PerMinute(3)
	if l == nil {
		t.Fatal("Expected a limiter")
	}
	for i := 0; i < 3; i++ {
		if !l.Allow() {
			t.Errorf("Expected request %d to be allowed", i+1)
		}
	}
	if l.Allow() {
		t.Error("Expected fourth request to be denied")
	}
}
