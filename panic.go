package chex

import (
	"log/slog"
	"runtime/debug"
)

// PanicHandler is one link in the panic chain. It receives the recovered
// panic value and the goroutine's stack trace. Handlers run in
// registration order after exit has been signalled. A panic inside a
// handler is not guarded against.
type PanicHandler func(rec any, stack []byte)

// EnableExitOnPanic enables the panic bridge: from now on, a panic
// recovered by Go or Recover signals exit to all listeners instead of
// being re-raised. Safe to call multiple times and at any time.
func (c *Chex) EnableExitOnPanic() {
	c.exitOnPanic.Store(true)
}

// OnPanic appends a handler to the panic chain. Handlers registered here
// run after the built-in diagnostic and after exit has been signalled,
// preserving rather than replacing the default reporting.
func (c *Chex) OnPanic(h PanicHandler) {
	if h == nil {
		return
	}
	c.hookMu.Lock()
	c.handlers = append(c.handlers, h)
	c.hookMu.Unlock()
}

// Recover is the panic bridge. Defer it first in any goroutine whose
// uncaught panic should become a process-wide exit signal:
//
//	go func() {
//		defer c.Recover()
//		work()
//	}()
//
// With the bridge enabled, a recovered panic is logged with its stack,
// exit is signalled, and the handler chain runs; the goroutine then ends
// normally so peers can observe the flag and unwind cleanly. With the
// bridge disabled the panic is re-raised unchanged.
func (c *Chex) Recover() {
	rec := recover()
	if rec == nil {
		return
	}
	c.handlePanic(rec, debug.Stack())
}

// Go runs fn in a new goroutine with the panic bridge installed.
func (c *Chex) Go(fn func()) {
	go func() {
		defer c.Recover()
		fn()
	}()
}

func (c *Chex) handlePanic(rec any, stack []byte) {
	if !c.exitOnPanic.Load() {
		panic(rec)
	}

	log := c.st.logger()
	log.Error("chex: panic: signaling exit to all listeners", "panic", rec)

	c.Signal()

	// The runtime would have printed the panic value and a backtrace
	// before dying; emit the same diagnostic through the logger.
	log.Error("chex: panic backtrace", "panic", rec, "stack", string(stack))

	c.hookMu.Lock()
	chain := append([]PanicHandler(nil), c.handlers...)
	c.hookMu.Unlock()

	for _, h := range chain {
		h(rec, stack)
	}
}

// EnableExitOnPanic enables the panic bridge on the process-wide Chex.
// Panics with ErrNotInitialized if Init has not been called.
func EnableExitOnPanic() {
	mustGlobal().EnableExitOnPanic()
}

// OnPanic appends a handler to the process-wide panic chain.
// Panics with ErrNotInitialized if Init has not been called.
func OnPanic(h PanicHandler) {
	mustGlobal().OnPanic(h)
}

// Go runs fn in a new goroutine with the process-wide panic bridge
// installed. Panics with ErrNotInitialized if Init has not been called.
func Go(fn func()) {
	mustGlobal().Go(fn)
}

// Recover is the process-wide form of (*Chex).Recover, for goroutines
// spawned outside Go. If a panic is in flight and Init never ran there is
// no state to signal and no safe fallback: the error is logged and the
// process terminates with a failure code.
func Recover() {
	rec := recover()
	if rec == nil {
		return
	}
	c := global.Load()
	if c == nil {
		slog.Default().Error("chex: panic before Init; cannot signal exit",
			"panic", rec, "err", ErrNotInitialized)
		exitProcess(1)
		return
	}
	c.handlePanic(rec, debug.Stack())
}
