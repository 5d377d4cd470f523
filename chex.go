// Package chex provides a process-wide exit signal that lets any goroutine
// announce "the program should exit" and lets every other participant
// observe that announcement promptly, exactly once, without races. Both
// busy-polling loops (Poll) and suspension-capable code (Wait, Done) see
// the same shared state. An opt-in bridge turns an uncaught panic in a
// participant goroutine into the same process-wide signal.
//
// The signal is one-way and one-time: once set it never clears, and there
// is exactly one signal per accessor. chex does not manage goroutine
// lifecycles, collect results, or implement graceful-drain accounting;
// it is only the flag everyone trusts.
package chex

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Chex owns one signal state and hands out Instances bound to it.
// Construct one explicitly with New and share it by reference, or use the
// process-wide accessor via Init for global-style ergonomics.
type Chex struct {
	st *state

	exitOnPanic atomic.Bool

	hookMu   sync.Mutex
	handlers []PanicHandler
}

// New returns an independent Chex with its own signal state. Options may
// configure the logger, the process-exit function used on unrecoverable
// conditions, and the panic handler chain.
func New(opts ...Option) *Chex {
	c := &Chex{st: newState()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Poll reports whether exit has been signalled.
func (c *Chex) Poll() bool {
	return c.st.exit.Load()
}

// Signal announces that the process should exit. First writer wins;
// redundant calls are no-ops that still succeed.
func (c *Chex) Signal() {
	c.st.signal()
}

// Instance returns a fresh handle bound to this Chex's signal state.
// Instances created after a signal observe the set flag immediately.
func (c *Chex) Instance() *Instance {
	return &Instance{st: c.st}
}

// global is the process-wide accessor, constructed at most once by Init.
var (
	globalOnce sync.Once
	global     atomic.Pointer[Chex]
)

// Init initializes the process-wide Chex. The first call constructs the
// signal state; later calls are idempotent with respect to that state (a
// flag set between two Init calls stays set) but may re-apply auxiliary
// configuration such as the logger or additional panic handlers.
//
// If exitOnPanic is true the panic bridge is enabled immediately, so any
// goroutine running under Go or Recover that panics will signal exit to
// all listeners. This can also be enabled later with EnableExitOnPanic.
//
// Init must be called before Poll, Signal, GetInstance, Go, or Recover.
func Init(exitOnPanic bool, opts ...Option) *Chex {
	globalOnce.Do(func() {
		global.Store(New())
	})
	c := global.Load()
	for _, opt := range opts {
		opt(c)
	}
	if exitOnPanic {
		c.EnableExitOnPanic()
	}
	return c
}

// mustGlobal returns the process-wide Chex, or panics if Init has not run.
// Calling any accessor before Init is a programming-contract violation,
// not a recoverable condition.
func mustGlobal() *Chex {
	c := global.Load()
	if c == nil {
		panic(ErrNotInitialized)
	}
	return c
}

// Poll reports whether exit has been signalled on the process-wide Chex.
// Panics with ErrNotInitialized if Init has not been called.
func Poll() bool {
	return mustGlobal().Poll()
}

// Signal announces exit on the process-wide Chex. If Init was never
// called there is no state to signal and no safe fallback: the error is
// logged and the process terminates with a failure code.
func Signal() {
	c := global.Load()
	if c == nil {
		slog.Default().Error("chex: cannot deliver exit signal", "err", ErrNotInitialized)
		exitProcess(1)
		return
	}
	c.Signal()
}

// GetInstance returns a fresh handle bound to the process-wide signal
// state, callable anywhere without holding the Chex returned by Init.
// Panics with ErrNotInitialized if Init has not been called.
func GetInstance() *Instance {
	return mustGlobal().Instance()
}

// resetForTest clears the process-wide accessor so tests can exercise the
// full lifecycle. Not for production use: the accessor is designed to
// live for the remainder of the process.
func resetForTest() {
	global.Store(nil)
	globalOnce = sync.Once{}
}
