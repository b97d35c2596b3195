package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dop251/goja"
	"github.com/dop251/goja_nodejs/eventloop"
	"github.com/dop251/goja_nodejs/require"
)

// runtime owns one goja event loop. goja.Runtime is not goroutine-safe, so
// every access goes through run, which executes on the loop goroutine.
type runtime struct {
	loop     *eventloop.EventLoop
	registry *require.Registry

	mu      sync.Mutex
	stopped bool
}

func newRuntime(registry *require.Registry) *runtime {
	if registry == nil {
		registry = require.NewRegistry()
	}
	loop := eventloop.NewEventLoop(
		eventloop.WithRegistry(registry),
		eventloop.EnableConsole(true),
	)
	loop.Start()
	return &runtime{loop: loop, registry: registry}
}

// run executes fn on the event loop and waits for it. Harness calls made
// by the script block the loop, which is what keeps a test sequential.
// Cancelling ctx interrupts the running script.
func (rt *runtime) run(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	rt.mu.Lock()
	stopped := rt.stopped
	rt.mu.Unlock()
	if stopped {
		return errors.New("event loop not running")
	}

	errCh := make(chan error, 1)
	ok := rt.loop.RunOnLoop(func(vm *goja.Runtime) {
		stop := context.AfterFunc(ctx, func() {
			vm.Interrupt(fmt.Errorf("script interrupted: %w", context.Cause(ctx)))
		})
		defer func() {
			stop()
			vm.ClearInterrupt()
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("panic in script runtime: %v", r)
			}
		}()
		errCh <- fn(vm)
	})
	if !ok {
		return errors.New("event loop not running")
	}
	return <-errCh
}

func (rt *runtime) close() {
	rt.mu.Lock()
	if rt.stopped {
		rt.mu.Unlock()
		return
	}
	rt.stopped = true
	rt.mu.Unlock()
	rt.loop.Stop()
}
