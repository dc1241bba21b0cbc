package jobalerts

import (
	"context"
	"testing"
	"time"
)

type closeRecorder struct{ closed chan struct{} }

func (c *closeRecorder) Close() error {
	close(c.closed)
	return nil
}

func TestWatchCancel_ExitsWhenRunFinishes(t *testing.T) {
	conn := &closeRecorder{closed: make(chan struct{})}
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		watchCancel(context.Background(), done, conn)
		close(exited)
	}()

	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("watcher still running after the session ended")
	}
	select {
	case <-conn.closed:
		t.Fatal("connection closed without cancellation")
	default:
	}
}

func TestWatchCancel_ClosesConnOnCancel(t *testing.T) {
	conn := &closeRecorder{closed: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	defer close(done)
	go watchCancel(ctx, done, conn)

	cancel()
	select {
	case <-conn.closed:
	case <-time.After(time.Second):
		t.Fatal("connection not closed after cancellation")
	}
}
