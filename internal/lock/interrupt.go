package lock

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// Interrupt cancels a context on SIGINT or SIGTERM. Privileged batches
// already issued still run to completion; the cancellation stops work that
// has not started yet.
type Interrupt struct {
	ctx       context.Context
	cancel    context.CancelFunc
	sigChan   chan os.Signal
	callbacks []func()
	mu        sync.Mutex
	once      sync.Once
	done      chan struct{}
}

// NewInterrupt creates a handler whose context derives from parent.
func NewInterrupt(parent context.Context) *Interrupt {
	ctx, cancel := context.WithCancel(parent)
	return &Interrupt{
		ctx:     ctx,
		cancel:  cancel,
		sigChan: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// Start begins listening for signals.
func (h *Interrupt) Start() {
	signal.Notify(h.sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer close(h.done)
		select {
		case <-h.sigChan:
			h.trigger()
		case <-h.ctx.Done():
		}
	}()
}

// Stop stops listening and cancels the context.
func (h *Interrupt) Stop() {
	signal.Stop(h.sigChan)
	h.cancel()
	<-h.done
}

// Context returns a context that is canceled on interrupt.
func (h *Interrupt) Context() context.Context {
	return h.ctx
}

// OnInterrupt registers a callback run when an interrupt arrives.
// Callbacks are called in reverse order of registration (LIFO).
func (h *Interrupt) OnInterrupt(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.callbacks = append(h.callbacks, fn)
}

// Trigger behaves as if an interrupt had been received.
func (h *Interrupt) Trigger() {
	h.trigger()
}

func (h *Interrupt) trigger() {
	h.once.Do(func() {
		h.mu.Lock()
		callbacks := make([]func(), len(h.callbacks))
		copy(callbacks, h.callbacks)
		h.mu.Unlock()

		for i := len(callbacks) - 1; i >= 0; i-- {
			callbacks[i]()
		}
		h.cancel()
	})
}
