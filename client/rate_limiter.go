package client

import (
	"context"
	"io"
	"sync"
	"time"
)

// RateLimiter is a token bucket shared by every download of one Client.
type RateLimiter struct {
	mu     sync.Mutex
	rate   int64   // bytes per second, fixed at construction
	tokens float64 // current available tokens
	last   time.Time
}

// NewRateLimiter returns nil, meaning unlimited, for a non-positive rate.
func NewRateLimiter(bytesPerSecond int64) *RateLimiter {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &RateLimiter{rate: bytesPerSecond, tokens: float64(bytesPerSecond), last: time.Now()}
}

// take returns how many bytes may be read now, or how long to wait when none.
func (l *RateLimiter) take(want int) (int, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(l.last).Seconds(); elapsed > 0 {
		l.tokens += elapsed * float64(l.rate)
		if maxTokens := float64(l.rate); l.tokens > maxTokens {
			l.tokens = maxTokens
		}
		l.last = now
	}
	allowed := int(l.tokens)
	if allowed <= 0 {
		return 0, time.Duration(float64(time.Second) / float64(l.rate))
	}
	if want < allowed {
		allowed = want
	}
	return allowed, 0
}

func (l *RateLimiter) spend(n int) {
	l.mu.Lock()
	l.tokens -= float64(n)
	l.mu.Unlock()
}

type limitedReader struct {
	ctx   context.Context
	under io.Reader
	lim   *RateLimiter
}

func (lr *limitedReader) Read(p []byte) (int, error) {
	if lr.lim == nil || len(p) == 0 {
		return lr.under.Read(p)
	}
	for {
		allowed, wait := lr.lim.take(len(p))
		if allowed > 0 {
			n, err := lr.under.Read(p[:allowed])
			if n > 0 {
				lr.lim.spend(n)
			}
			return n, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-lr.ctx.Done():
			timer.Stop()
			return 0, lr.ctx.Err()
		case <-timer.C:
		}
	}
}

// throttle wraps r with the limiter; a nil limiter returns r unchanged.
func throttle(ctx context.Context, r io.Reader, lim *RateLimiter) io.Reader {
	if lim == nil {
		return r
	}
	return &limitedReader{ctx: ctx, under: r, lim: lim}
}
