package media

import (
	"errors"
	"sync"
	"time"
)

const (
	breakerMaxFailures = 5
	breakerResetAfter  = 30 * time.Second
)

var errBreakerOpen = errors.New("object storage circuit breaker is open")

// breaker is a small failure-count circuit breaker around storage calls.
// After breakerMaxFailures consecutive errors it rejects calls until
// breakerResetAfter has passed since the last failure.
type breaker struct {
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
}

func newBreaker() *breaker {
	return &breaker{}
}

func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failures < breakerMaxFailures {
		return nil
	}
	if time.Since(b.lastFailure) >= breakerResetAfter {
		// Half-open: let a single trial call through.
		b.failures = breakerMaxFailures - 1
		return nil
	}
	return errBreakerOpen
}

func (b *breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		b.failures = 0
		b.lastFailure = time.Time{}
		return
	}
	b.failures++
	b.lastFailure = time.Now()
}
