// ABOUTME: Tests for the merged timeout/disconnect cancellation signal.
// ABOUTME: Covers which-source-fired reporting and already-cancelled parents.

package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCanceller_TimeoutFires(t *testing.T) {
	rc := newRunCanceller(context.Background(), 10*time.Millisecond)
	defer rc.Stop()

	select {
	case <-rc.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("canceller did not fire")
	}
	assert.Equal(t, reasonTimeout, rc.Reason())
}

func TestRunCanceller_ClientDisconnectFires(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	rc := newRunCanceller(parent, time.Minute)
	defer rc.Stop()

	cancelParent()

	select {
	case <-rc.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("canceller did not fire")
	}
	assert.Equal(t, reasonClientGone, rc.Reason())
}

func TestRunCanceller_AlreadyCancelledParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()

	rc := newRunCanceller(parent, time.Minute)
	defer rc.Stop()

	// Fires synchronously, without waiting for any timer.
	require.Error(t, rc.Context().Err())
	assert.Equal(t, reasonClientGone, rc.Reason())
}

func TestRunCanceller_StopLeavesReasonUnset(t *testing.T) {
	rc := newRunCanceller(context.Background(), time.Minute)
	rc.Stop()

	assert.Equal(t, reasonNone, rc.Reason())

	// Stop is idempotent.
	rc.Stop()
}

func TestRunCanceller_ReasonIsFirstSource(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	rc := newRunCanceller(parent, 5*time.Millisecond)
	defer rc.Stop()

	<-rc.Context().Done()
	assert.Equal(t, reasonTimeout, rc.Reason())

	// A later parent cancellation does not rewrite the reason.
	cancelParent()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, reasonTimeout, rc.Reason())
}
