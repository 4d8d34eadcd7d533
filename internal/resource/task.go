package resource

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Task is the cancellation handle of one in-flight load.
type Task struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	settle sync.Once
}

func newTask() *Task {
	ctx, cancel := context.WithCancel(context.Background())
	return &Task{
		id:     uuid.NewString(),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// ID identifies the task in logs.
func (t *Task) ID() string {
	return t.id
}

// Release signals the load to abandon its work. Its result, if any, will
// not be applied. Release is idempotent.
func (t *Task) Release() {
	t.cancel()
}

// Released reports whether Release was called or the task finished.
func (t *Task) Released() bool {
	return t.ctx.Err() != nil
}

// Done is closed once the task settled: its result was applied or discarded
// and observers were notified.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settled or ctx is done.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) finish() {
	t.settle.Do(func() {
		t.cancel()
		close(t.done)
	})
}
