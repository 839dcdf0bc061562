package companycam

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// Rate limiter defaults applied when the client auto-creates its limiter.
const (
	DefaultTokensPerInterval = 100
	DefaultInterval          = time.Minute
)

// waiter is one caller blocked in Acquire. The done channel is buffered so the
// refill loop never blocks handing out a result; settled guards against a
// grant racing a cancellation.
type waiter struct {
	ctx     context.Context
	done    chan error
	settled bool
}

// RateLimiter admits at most tokensPerInterval operations per rolling
// interval, queuing excess demand FIFO. There is no "rate limit exceeded"
// failure: callers always eventually get a token, a cancellation, or a
// disposal signal. Safe for concurrent use; share one instance across any
// number of clients.
type RateLimiter struct {
	mu       sync.Mutex
	tokens   int
	capacity int
	queue    *list.List // of *waiter
	disposed bool

	refillEvery time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
}

// NewRateLimiter creates a limiter initialized at full capacity and starts its
// owned refill goroutine: one token every interval/tokensPerInterval, capped
// at capacity. Call Dispose to stop the goroutine.
func NewRateLimiter(tokensPerInterval int, interval time.Duration) *RateLimiter {
	if tokensPerInterval <= 0 {
		tokensPerInterval = DefaultTokensPerInterval
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	rl := &RateLimiter{
		tokens:      tokensPerInterval,
		capacity:    tokensPerInterval,
		queue:       list.New(),
		refillEvery: interval / time.Duration(tokensPerInterval),
		stop:        make(chan struct{}),
	}
	if rl.refillEvery <= 0 {
		rl.refillEvery = time.Nanosecond
	}

	go rl.refillLoop()
	return rl
}

// Acquire consumes one token, blocking FIFO behind earlier waiters when none
// is available. It returns ctx.Err() if ctx is already cancelled (consuming
// nothing) or fires while queued, and ErrLimiterDisposed if the limiter is or
// becomes disposed. Cancellation never consumes a token.
func (rl *RateLimiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	rl.mu.Lock()
	if rl.disposed {
		rl.mu.Unlock()
		return ErrLimiterDisposed
	}
	// Refill drains the queue while tokens remain, so tokens > 0 implies an
	// empty queue and the fast path cannot overtake earlier waiters.
	if rl.tokens > 0 {
		rl.tokens--
		rl.mu.Unlock()
		return nil
	}

	w := &waiter{ctx: ctx, done: make(chan error, 1)}
	elem := rl.queue.PushBack(w)
	rl.mu.Unlock()

	select {
	case err := <-w.done:
		return err
	case <-ctx.Done():
		rl.mu.Lock()
		if !w.settled {
			w.settled = true
			rl.queue.Remove(elem)
			rl.mu.Unlock()
			return ctx.Err()
		}
		rl.mu.Unlock()
		// A grant or disposal landed first; honor it.
		return <-w.done
	}
}

// Dispose stops the refill goroutine and fails every queued acquisition with
// ErrLimiterDisposed. Idempotent. Tokens already granted are unaffected.
func (rl *RateLimiter) Dispose() {
	rl.stopOnce.Do(func() { close(rl.stop) })

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.disposed {
		return
	}
	rl.disposed = true

	for e := rl.queue.Front(); e != nil; e = e.Next() {
		w := e.Value.(*waiter)
		w.settled = true
		w.done <- ErrLimiterDisposed
	}
	rl.queue.Init()
}

func (rl *RateLimiter) refillLoop() {
	ticker := time.NewTicker(rl.refillEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.refillOne()
		case <-rl.stop:
			return
		}
	}
}

// refillOne adds one token (capped at capacity) and drains the queue
// front-to-back while tokens remain. Entries whose context already fired are
// failed without consuming a token, so a cancelled waiter can never shift the
// grant order or burn capacity.
func (rl *RateLimiter) refillOne() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	if rl.disposed {
		return
	}

	if rl.tokens < rl.capacity {
		rl.tokens++
	}

	for rl.tokens > 0 {
		front := rl.queue.Front()
		if front == nil {
			break
		}
		w := rl.queue.Remove(front).(*waiter)
		w.settled = true
		if err := w.ctx.Err(); err != nil {
			w.done <- err
			continue
		}
		rl.tokens--
		w.done <- nil
	}
}

// stats snapshots the current token count and queue depth for metrics.
func (rl *RateLimiter) stats() (tokens, queued int) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.tokens, rl.queue.Len()
}
