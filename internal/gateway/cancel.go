// ABOUTME: Merged cancellation signal for one run: agent-call timeout vs client disconnect.
// ABOUTME: Whichever source fires first wins, and the reason is observable afterwards.

package gateway

import (
	"context"
	"sync"
	"time"
)

type cancelReason int

const (
	reasonNone cancelReason = iota
	reasonTimeout
	reasonClientGone
)

// runCanceller merges two independent cancellation sources into one
// context: a wall-clock timer, and the inbound request's own
// cancellation (the client hanging up). The derived context fires at
// most once, at the earlier of the two; Reason reports which one it was.
//
// Stop must be called on every exit path. It releases the timer and the
// watcher goroutine listening on the parent context, so cancellers do
// not leak across requests.
type runCanceller struct {
	ctx    context.Context
	cancel context.CancelFunc
	timer  *time.Timer
	done   chan struct{}

	stopOnce sync.Once

	mu     sync.Mutex
	reason cancelReason
}

// newRunCanceller builds a canceller bound to the caller's request
// context. A parent that is already cancelled counts as an immediate
// client disconnect: the derived context is cancelled synchronously and
// the timer is never armed.
func newRunCanceller(parent context.Context, timeout time.Duration) *runCanceller {
	ctx, cancel := context.WithCancel(context.Background())
	rc := &runCanceller{
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if parent.Err() != nil {
		rc.reason = reasonClientGone
		cancel()
		return rc
	}

	rc.timer = time.NewTimer(timeout)
	go func() {
		select {
		case <-parent.Done():
			rc.fire(reasonClientGone)
		case <-rc.timer.C:
			rc.fire(reasonTimeout)
		case <-rc.done:
		}
	}()

	return rc
}

func (rc *runCanceller) fire(reason cancelReason) {
	rc.mu.Lock()
	if rc.reason == reasonNone {
		rc.reason = reason
	}
	rc.mu.Unlock()
	rc.cancel()
}

// Context returns the merged cancellation signal for the agent call.
func (rc *runCanceller) Context() context.Context {
	return rc.ctx
}

// Reason reports which source fired, or reasonNone if neither has.
func (rc *runCanceller) Reason() cancelReason {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.reason
}

// Stop releases the timer and detaches from the parent context. Safe to
// call more than once.
func (rc *runCanceller) Stop() {
	rc.stopOnce.Do(func() {
		close(rc.done)
		if rc.timer != nil {
			rc.timer.Stop()
		}
		rc.cancel()
	})
}
