package shutdown

import (
	"container/heap"
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/flanksource/commons/logger"
)

const (
	// PriorityRuns stops fixture runs before anything else is torn down
	PriorityRuns    = 0
	PriorityDefault = 100
)

type Hook struct {
	label    string
	priority int
	fn       func()
	index    int // for heap interface
}

type HookHeap []*Hook

func (h HookHeap) Len() int           { return len(h) }
func (h HookHeap) Less(i, j int) bool { return h[i].priority < h[j].priority }
func (h HookHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *HookHeap) Push(x any) {
	n := len(*h)
	item := x.(*Hook)
	item.index = n
	*h = append(*h, item)
}

func (h *HookHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*h = old[0 : n-1]
	return item
}

var (
	hooks    HookHeap
	hooksMux sync.Mutex
)

func AddHook(label string, fn func()) {
	AddHookWithPriority(label, PriorityDefault, fn)
}

func AddHookWithPriority(label string, priority int, fn func()) {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	heap.Push(&hooks, &Hook{
		label:    label,
		priority: priority,
		fn:       fn,
	})
}

// Shutdown runs every registered hook once, lowest priority first. A panicking hook
// does not stop the others.
func Shutdown() {
	hooksMux.Lock()
	defer hooksMux.Unlock()

	if len(hooks) == 0 {
		return
	}

	logger.V(2).Infof("Executing %d shutdown hooks", len(hooks))

	for hooks.Len() > 0 {
		hook := heap.Pop(&hooks).(*Hook)
		logger.Debugf("Executing shutdown hook: %s (priority=%d)", hook.label, hook.priority)

		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic in shutdown hook %s: %v", hook.label, r)
				}
			}()
			hook.fn()
		}()
	}
}

// WithSignals returns a context that is cancelled by the first SIGINT or SIGTERM, after
// which the remaining hooks run. A second signal exits immediately. The returned stop
// func releases the signal handler and cancels the context.
func WithSignals(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	AddHookWithPriority("cancel runs", PriorityRuns, cancel)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigChan:
			_, _ = fmt.Fprintf(os.Stderr, "\nReceived %s - stopping, completed results are still reported\n", sig)
			_, _ = fmt.Fprintf(os.Stderr, "   Press Ctrl+C again to force immediate exit\n\n")
			go func() {
				<-sigChan
				_, _ = fmt.Fprintf(os.Stderr, "\nForce exit\n")
				os.Exit(1)
			}()
			Shutdown()
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// RecoverAndShutdown is deferred in main: it runs the hooks and turns a panic into a
// non-zero exit.
func RecoverAndShutdown() {
	r := recover()
	Shutdown()
	if r != nil {
		_, _ = fmt.Fprintf(os.Stderr, "panic: %v\n", r)
		os.Exit(2)
	}
}
