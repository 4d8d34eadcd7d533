package resource

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/dbview/internal/testutil"
)

// recorder collects the states observed by a subscriber.
type recorder[T any] struct {
	mu    sync.Mutex
	snaps []Snapshot[T]
}

func (r *recorder[T]) observe(s Snapshot[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.snaps = append(r.snaps, s)
}

func (r *recorder[T]) states() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make([]State, len(r.snaps))
	for i, s := range r.snaps {
		states[i] = s.State
	}
	return states
}

func wait(t *testing.T, task *Task) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, task.Wait(ctx))
}

func TestNew_StartsIdle(t *testing.T) {
	r := New[int]()
	assert.Equal(t, Idle, r.State())
	_, ok := r.Value()
	assert.False(t, ok)
}

func TestLoad_Success(t *testing.T) {
	r := New[string](WithLogger[string](testutil.NewTestLogger(t)), WithName[string]("greeting"))
	rec := &recorder[string]{}
	r.Subscribe(rec.observe)

	task := r.Load(func(context.Context) (string, error) { return "hello", nil })
	wait(t, task)

	assert.Equal(t, []State{Idle, Loading, Loaded}, rec.states())
	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, "hello", v)
	assert.NotEmpty(t, task.ID())
}

func TestLoad_Error(t *testing.T) {
	r := New[int]()
	rec := &recorder[int]{}
	r.Subscribe(rec.observe)

	boom := errors.New("near \"SELEC\": syntax error")
	wait(t, r.Load(func(context.Context) (int, error) { return 0, boom }))

	assert.Equal(t, []State{Idle, Loading, Error}, rec.states())
	snap := r.Snapshot()
	assert.ErrorIs(t, snap.Err, boom)
	assert.Equal(t, boom.Error(), snap.Message())
}

func TestLoad_Panic(t *testing.T) {
	r := New[int]()
	wait(t, r.Load(func(context.Context) (int, error) { panic("kaboom") }))

	snap := r.Snapshot()
	assert.Equal(t, Error, snap.State)
	assert.Contains(t, snap.Message(), "kaboom")
}

func TestLoad_LoadingCarriesTask(t *testing.T) {
	r := New[int]()
	release := make(chan struct{})
	task := r.Load(func(context.Context) (int, error) {
		<-release
		return 1, nil
	})

	snap := r.Snapshot()
	assert.Equal(t, Loading, snap.State)
	assert.Same(t, task, snap.Task)

	close(release)
	wait(t, task)
	assert.Equal(t, Loaded, r.State())
	assert.Nil(t, r.Snapshot().Task)
}

func TestLoad_SupersededResultIsDiscarded(t *testing.T) {
	var released []int
	var mu sync.Mutex
	r := New[int](WithRelease(func(v int) {
		mu.Lock()
		defer mu.Unlock()
		released = append(released, v)
	}))
	rec := &recorder[int]{}
	r.Subscribe(rec.observe)

	firstStarted := make(chan struct{})
	firstFinish := make(chan struct{})
	var firstCancelled bool
	first := r.Load(func(ctx context.Context) (int, error) {
		close(firstStarted)
		<-firstFinish
		firstCancelled = ctx.Err() != nil
		return 1, nil
	})
	<-firstStarted

	second := r.Load(func(context.Context) (int, error) { return 2, nil })
	wait(t, second)
	assert.True(t, first.Released())

	close(firstFinish)
	wait(t, first)

	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, 2, v, "stale result must not overwrite the newer load")
	assert.True(t, firstCancelled, "superseded load observes cancellation")

	mu.Lock()
	assert.Equal(t, []int{1}, released, "stale value is released")
	mu.Unlock()
	assert.Equal(t, []State{Idle, Loading, Idle, Loading, Loaded}, rec.states())
}

func TestLoad_SupersededErrorIsDiscarded(t *testing.T) {
	logger, logs := testutil.NewCaptureLogger()
	r := New(WithLogger[int](logger), WithName[int]("answer"))
	finish := make(chan struct{})
	first := r.Load(func(context.Context) (int, error) {
		<-finish
		return 0, errors.New("late failure")
	})
	r.SetValue(7)

	close(finish)
	wait(t, first)

	v, ok := r.Value()
	require.True(t, ok)
	assert.Equal(t, 7, v)
	assert.Contains(t, logs.String(), "discarding superseded result")
	assert.Contains(t, logs.String(), "resource=answer")
	assert.Contains(t, logs.String(), "task="+first.ID())
}

func TestMaybeLoad(t *testing.T) {
	tests := []struct {
		name  string
		value int
		ok    bool
		err   error
		want  State
	}{
		{name: "value", value: 3, ok: true, want: Loaded},
		{name: "nothing", ok: false, want: Idle},
		{name: "failure", err: errors.New("no"), want: Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New[int]()
			rec := &recorder[int]{}
			r.Subscribe(rec.observe)

			wait(t, r.MaybeLoad(func(context.Context) (int, bool, error) {
				return tt.value, tt.ok, tt.err
			}))

			assert.Equal(t, tt.want, r.State())
			assert.Equal(t, []State{Idle, Loading, tt.want}, rec.states())
		})
	}
}

func TestSetIdle_CancelsLoad(t *testing.T) {
	r := New[int]()
	started := make(chan struct{})
	task := r.Load(func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	})
	<-started

	r.SetIdle()
	wait(t, task)

	assert.Equal(t, Idle, r.State(), "cancelled load must not surface as an error")
}

func TestSetValue_ReleasesPrevious(t *testing.T) {
	var released []string
	r := New[string](WithRelease(func(v string) { released = append(released, v) }))

	r.SetValue("a")
	r.SetValue("b")
	r.SetIdle()

	assert.Equal(t, []string{"a", "b"}, released)
}

func TestTakeValue(t *testing.T) {
	var released []int
	r := New[int](WithRelease(func(v int) { released = append(released, v) }))
	rec := &recorder[int]{}
	r.Subscribe(rec.observe)

	_, ok := r.TakeValue()
	assert.False(t, ok)
	assert.Empty(t, rec.states(), "no transition when nothing is loaded")

	r.SetValue(9)
	v, ok := r.TakeValue()
	require.True(t, ok)
	assert.Equal(t, 9, v)
	assert.Equal(t, Idle, r.State())
	assert.Empty(t, released, "taken value belongs to the caller")
	assert.Equal(t, []State{Loaded, Idle}, rec.states())
}

func TestSubscribe_Unsubscribe(t *testing.T) {
	r := New[int]()
	var calls []string
	unsubA := r.Subscribe(func(Snapshot[int]) { calls = append(calls, "a") })
	r.Subscribe(func(Snapshot[int]) { calls = append(calls, "b") })

	r.SetValue(1)
	unsubA()
	unsubA()
	r.SetValue(2)

	assert.Equal(t, []string{"a", "b", "b"}, calls)
}

func TestObserverSeesCompleteState(t *testing.T) {
	r := New[int]()
	r.Subscribe(func(s Snapshot[int]) {
		assert.Equal(t, s, r.Snapshot(), "observer snapshot matches current state")
	})

	r.SetValue(1)
	wait(t, r.Load(func(context.Context) (int, error) { return 2, nil }))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "loading", Loading.String())
	assert.Equal(t, "loaded", Loaded.String())
	assert.Equal(t, "error", Error.String())
	assert.Equal(t, "state(9)", State(9).String())
}
