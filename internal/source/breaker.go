package source

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// breaker halts feed paging when the upstream starts rejecting requests.
// Two consecutive throttling or server errors open it; it closes again after
// the reset timeout so the next scheduled run can try a fresh fetch.
type breaker struct {
	resetTimeout time.Duration

	mu                  sync.Mutex
	consecutiveFailures int
	open                bool
	lastFailure         time.Time
}

func newBreaker(resetTimeout time.Duration) *breaker {
	return &breaker{resetTimeout: resetTimeout}
}

func (b *breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}
	if time.Since(b.lastFailure) > b.resetTimeout {
		log.Info("Feed: Circuit closing again after reset timeout")
		b.open = false
		b.consecutiveFailures = 0
		return true
	}
	return false
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.consecutiveFailures = 0
}

func (b *breaker) recordFailure(statusCode int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailure = time.Now()

	if b.consecutiveFailures >= 2 && isThrottleStatus(statusCode) {
		b.open = true
		log.Warnf("Feed: Circuit open after %d consecutive %d responses, pausing for %v",
			b.consecutiveFailures, statusCode, b.resetTimeout)
	}
}

func isThrottleStatus(statusCode int) bool {
	switch statusCode {
	case 403, 429, 500, 503:
		return true
	}
	return false
}
