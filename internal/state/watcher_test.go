// File: internal/state/watcher_test.go
package state

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcherDeliversPauseChanges(t *testing.T) {
	store := NewStore(t.TempDir())
	w := NewWatcher(store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan bool, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, 24*time.Hour, func(p bool) { changes <- p })
	}()

	// Give the watcher a moment to install before the first write.
	time.Sleep(50 * time.Millisecond)
	store.SavePause(true)

	select {
	case p := <-changes:
		assert.True(t, p)
	case <-time.After(2 * time.Second):
		t.Fatal("pause change was not delivered")
	}

	// One save can surface as more than one filesystem event; wait for the
	// resume value rather than the next event.
	store.SavePause(false)
	deadline := time.After(2 * time.Second)
	for resumed := false; !resumed; {
		select {
		case p := <-changes:
			resumed = !p
		case <-deadline:
			t.Fatal("resume was not delivered")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancellation")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	store := NewStore(t.TempDir())
	w := NewWatcher(store, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan bool, 4)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, 24*time.Hour, func(p bool) { changes <- p })
	}()

	time.Sleep(50 * time.Millisecond)
	store.SetOwner("panel")

	select {
	case <-changes:
		t.Fatal("owner record changes must not trigger pause callbacks")
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	<-done
}
