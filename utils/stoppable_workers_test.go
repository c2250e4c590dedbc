package utils

import (
	"context"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var finished atomic.Int32
	started := make(chan struct{}, 2)
	worker := func(ctx context.Context) {
		started <- struct{}{}
		<-ctx.Done()
		finished.Inc()
	}

	sw := NewStoppableWorkers(worker, worker)
	<-started
	<-started
	test.That(t, finished.Load(), test.ShouldEqual, int32(0))

	sw.Stop()
	test.That(t, finished.Load(), test.ShouldEqual, int32(2))
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	test.That(t, sw.AddWorkers(worker), test.ShouldBeFalse)
	// Stopping twice is harmless.
	sw.Stop()
}

func TestStoppableWorkersParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sw := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	sw.Stop()
}
