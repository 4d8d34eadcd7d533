// Package resource provides Resource, an observable value loaded in the
// background.
//
// A Resource is always in exactly one of four states: Idle, Loading, Loaded
// or Error. Every transition happens atomically and notifies subscribers
// exactly once, in transition order. Starting a new load supersedes the
// previous one: the old Task is released and its result is never applied.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// State of a Resource.
type State int

// Resource states.
const (
	Idle State = iota
	Loading
	Loaded
	Error
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Loaded:
		return "loaded"
	case Error:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Snapshot is a consistent view of a Resource.
type Snapshot[T any] struct {
	State State
	// Value is set when State is Loaded.
	Value T
	// Err is set when State is Error.
	Err error
	// Task is set when State is Loading.
	Task *Task
}

// Message returns the display text of a failed load.
func (s Snapshot[T]) Message() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// Option configures a Resource.
type Option[T any] func(*Resource[T])

// WithLogger logs transitions at debug level.
func WithLogger[T any](logger *slog.Logger) Option[T] {
	return func(r *Resource[T]) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithName labels the resource in logs.
func WithName[T any](name string) Option[T] {
	return func(r *Resource[T]) { r.name = name }
}

// WithRelease registers fn to dispose of values the resource owned and
// dropped: a Loaded value replaced by another state, or a result that
// arrived after its load was superseded. TakeValue hands ownership to the
// caller and does not call fn.
func WithRelease[T any](fn func(T)) Option[T] {
	return func(r *Resource[T]) { r.release = fn }
}

type observer[T any] struct {
	id uint64
	fn func(Snapshot[T])
}

// Resource is an observable, asynchronously loaded value.
//
// Observers run synchronously on the goroutine performing the transition.
// They may read any resource but must not start a transition on the
// resource they observe.
type Resource[T any] struct {
	logger  *slog.Logger
	name    string
	release func(T)

	// transition serializes state changes together with their notification.
	transition sync.Mutex

	mu        sync.RWMutex
	snap      Snapshot[T]
	observers []observer[T]
	nextID    uint64
}

// New returns an Idle resource.
func New[T any](opts ...Option[T]) *Resource[T] {
	r := &Resource[T]{
		logger: slog.New(slog.DiscardHandler),
		name:   "resource",
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Snapshot returns the current state.
func (r *Resource[T]) Snapshot() Snapshot[T] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap
}

// State returns the current state tag.
func (r *Resource[T]) State() State {
	return r.Snapshot().State
}

// Value returns the loaded value, if any.
func (r *Resource[T]) Value() (T, bool) {
	snap := r.Snapshot()
	return snap.Value, snap.State == Loaded
}

// Subscribe registers fn to be called after every transition. The returned
// function removes the subscription.
func (r *Resource[T]) Subscribe(fn func(Snapshot[T])) (unsubscribe func()) {
	r.mu.Lock()
	id := r.nextID
	r.nextID++
	r.observers = append(r.observers, observer[T]{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			for i, o := range r.observers {
				if o.id == id {
					r.observers = append(r.observers[:i:i], r.observers[i+1:]...)
					return
				}
			}
		})
	}
}

// Load resets the resource to Idle, then starts fn in the background and
// moves to Loading. The outcome becomes Loaded or Error unless another
// transition superseded this load first.
func (r *Resource[T]) Load(fn func(ctx context.Context) (T, error)) *Task {
	return r.MaybeLoad(func(ctx context.Context) (T, bool, error) {
		v, err := fn(ctx)
		return v, true, err
	})
}

// MaybeLoad is Load for operations that may produce nothing. ok == false
// leaves the resource Idle.
func (r *Resource[T]) MaybeLoad(fn func(ctx context.Context) (v T, ok bool, err error)) *Task {
	r.transition.Lock()
	defer r.transition.Unlock()

	r.setLocked(Snapshot[T]{State: Idle}, true)

	task := newTask()
	r.setLocked(Snapshot[T]{State: Loading, Task: task}, true)

	go r.run(task, fn)
	return task
}

// SetValue moves the resource to Loaded(v). A value that was Loaded before
// is released, even if it is v itself.
func (r *Resource[T]) SetValue(v T) {
	r.transition.Lock()
	defer r.transition.Unlock()
	r.setLocked(Snapshot[T]{State: Loaded, Value: v}, true)
}

// SetIdle moves the resource to Idle, abandoning any in-flight load.
func (r *Resource[T]) SetIdle() {
	r.transition.Lock()
	defer r.transition.Unlock()
	r.setLocked(Snapshot[T]{State: Idle}, true)
}

// TakeValue moves a Loaded value out, leaving the resource Idle. It reports
// false and changes nothing in any other state.
func (r *Resource[T]) TakeValue() (T, bool) {
	r.transition.Lock()
	defer r.transition.Unlock()

	snap := r.Snapshot()
	if snap.State != Loaded {
		var zero T
		return zero, false
	}
	r.setLocked(Snapshot[T]{State: Idle}, false)
	return snap.Value, true
}

func (r *Resource[T]) run(task *Task, fn func(ctx context.Context) (T, bool, error)) {
	defer task.finish()

	v, ok, err := r.call(task.ctx, fn)

	r.transition.Lock()
	defer r.transition.Unlock()

	if r.Snapshot().Task != task {
		r.logger.Debug("discarding superseded result",
			slog.String("resource", r.name),
			slog.String("task", task.ID()))
		if err == nil && ok && r.release != nil {
			r.release(v)
		}
		return
	}

	switch {
	case err != nil:
		r.setLocked(Snapshot[T]{State: Error, Err: err}, true)
	case !ok:
		r.setLocked(Snapshot[T]{State: Idle}, true)
	default:
		r.setLocked(Snapshot[T]{State: Loaded, Value: v}, true)
	}
}

// call runs fn, converting a panic into an error.
func (r *Resource[T]) call(ctx context.Context, fn func(ctx context.Context) (T, bool, error)) (v T, ok bool, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("load panicked: %v", p)
		}
	}()
	return fn(ctx)
}

// setLocked installs next and notifies observers. The transition lock must
// be held. When owned is false a previously Loaded value is not released.
func (r *Resource[T]) setLocked(next Snapshot[T], owned bool) {
	r.mu.Lock()
	prev := r.snap
	r.snap = next
	observers := make([]observer[T], len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	if prev.State == Loading && prev.Task != next.Task {
		prev.Task.Release()
	}
	attrs := []any{
		slog.String("resource", r.name),
		slog.String("from", prev.State.String()),
		slog.String("to", next.State.String()),
	}
	if next.Task != nil {
		attrs = append(attrs, slog.String("task", next.Task.ID()))
	}
	if next.Err != nil {
		attrs = append(attrs, slog.String("error", next.Err.Error()))
	}
	r.logger.Debug("resource transition", attrs...)

	for _, o := range observers {
		o.fn(next)
	}

	// Released after notifying so dependents stop using the value first.
	if prev.State == Loaded && owned && r.release != nil {
		r.release(prev.Value)
	}
}
