package client

import (
	"bytes"
	"context"
	"io"
	"sync"
	"testing"
	"time"
)

func TestNewRateLimiter_ZeroAndNegative(t *testing.T) {
	for _, limit := range []int64{0, -100, -9999999} {
		if lim := NewRateLimiter(limit); lim != nil {
			t.Errorf("NewRateLimiter(%d) should return nil", limit)
		}
	}
}

func TestNewRateLimiter_Positive(t *testing.T) {
	for _, limit := range []int64{100, 1024 * 1024, 100 * 1024 * 1024} {
		lim := NewRateLimiter(limit)
		if lim == nil {
			t.Fatalf("NewRateLimiter(%d) returned nil", limit)
		}
		if lim.rate != limit {
			t.Errorf("rate = %d, want %d", lim.rate, limit)
		}
	}
}

func TestRateLimiter_TakeCapsToRate(t *testing.T) {
	lim := NewRateLimiter(1000)
	lim.mu.Lock()
	lim.tokens = 100000
	lim.last = time.Now().Add(-time.Hour)
	lim.mu.Unlock()

	allowed, wait := lim.take(5000)
	if allowed > 1000 {
		t.Errorf("allowed = %d, should be capped at 1000", allowed)
	}
	if wait != 0 {
		t.Errorf("wait = %v, want 0", wait)
	}
}

func TestRateLimiter_ConcurrentReaders(t *testing.T) {
	lim := NewRateLimiter(1 << 20)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := throttle(context.Background(), bytes.NewReader(make([]byte, 4096)), lim)
			if _, err := io.ReadAll(r); err != nil {
				t.Errorf("ReadAll: %v", err)
			}
		}()
	}
	wg.Wait()
}

func TestThrottle_NilLimiterPassesThrough(t *testing.T) {
	src := bytes.NewReader([]byte("test data"))
	if r := throttle(context.Background(), src, nil); r != src {
		t.Error("throttle with nil limiter should return the reader unchanged")
	}
}

func TestLimitedReader_ReadsEverything(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 3000)
	lim := NewRateLimiter(1 << 20)
	r := throttle(context.Background(), bytes.NewReader(data), lim)

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("data mismatch")
	}
}

func TestLimitedReader_CapsReadToTokens(t *testing.T) {
	lim := NewRateLimiter(10)
	r := throttle(context.Background(), bytes.NewReader(make([]byte, 100)), lim)

	buf := make([]byte, 100)
	n, err := r.Read(buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n > 10 {
		t.Errorf("read %d bytes, want at most 10", n)
	}
}

func TestLimitedReader_WaitHonoursContext(t *testing.T) {
	lim := NewRateLimiter(1)
	lim.mu.Lock()
	lim.tokens = 0
	lim.last = time.Now().Add(time.Hour) // no refill
	lim.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := throttle(ctx, bytes.NewReader([]byte("abc")), lim)

	if _, err := r.Read(make([]byte, 3)); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
