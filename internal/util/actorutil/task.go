package actorutil

import (
	"fmt"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/primetalk/goio/io"
)

// SafeBackgroundTask runs a function outside the actor's receive loop and
// delivers its outcome as a message. Panics are turned into errors.
type SafeBackgroundTask[T any] struct {
	sender    actor.SenderContext
	fn        func() (T, error)
	recover   func(error) T
	onSuccess func(T)
}

// NewBackgroundTask binds the task to the actor system root, so the outcome
// can be sent from the task goroutine.
func NewBackgroundTask[T any](ctx actor.Context, fn func() (T, error)) *SafeBackgroundTask[T] {
	return &SafeBackgroundTask[T]{
		sender: ctx.ActorSystem().Root,
		fn:     fn,
	}
}

// Recover maps an error or panic into a regular value.
func (t *SafeBackgroundTask[T]) Recover(fn func(error) T) *SafeBackgroundTask[T] {
	t.recover = fn
	return t
}

// PipeTo runs the task asynchronously and sends its value to pid.
func (t *SafeBackgroundTask[T]) PipeTo(pid *actor.PID) {
	t.onSuccess = func(value T) {
		t.sender.Send(pid, value)
	}
	go t.Run()
}

// Run executes the task on the calling goroutine.
func (t *SafeBackgroundTask[T]) Run() {
	result := io.RunSync(io.Eval(t.guarded))
	value := result.Value
	if result.Error != nil {
		if t.recover == nil {
			return
		}
		value = t.recover(result.Error)
	}
	if t.onSuccess != nil {
		t.onSuccess(value)
	}
}

func (t *SafeBackgroundTask[T]) guarded() (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn()
}
