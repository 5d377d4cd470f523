package chex

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// state is the shared signal state. Every Instance and Chex bound to the
// same state observes the same flag.
type state struct {
	// exit is the authoritative record of "has exit been signalled".
	// Monotonic: once true it never returns to false.
	exit atomic.Bool

	// done is closed exactly once, by the Signal call that wins the CAS
	// on exit. Reads from a closed channel proceed immediately, so late
	// waiters never miss the outcome.
	done chan struct{}

	log     atomic.Pointer[slog.Logger]
	abortFn atomic.Pointer[func(int)]

	mu      sync.Mutex
	waiters map[uint64]chan struct{}
	nextID  uint64
}

func newState() *state {
	return &state{
		done:    make(chan struct{}),
		waiters: make(map[uint64]chan struct{}),
	}
}

func (s *state) logger() *slog.Logger {
	if s == nil {
		return slog.Default()
	}
	if l := s.log.Load(); l != nil {
		return l
	}
	return slog.Default()
}

// abort terminates the process on an unrecoverable condition. The exit
// function is injectable (WithExitFunc) so the fatal paths are testable.
func (s *state) abort(code int) {
	if s != nil {
		if fn := s.abortFn.Load(); fn != nil {
			(*fn)(code)
			return
		}
	}
	exitProcess(code)
}

// signal flips the exit flag and wakes every waiter. First writer wins;
// redundant calls return normally without side effects.
//
// signal must never block: it may run inside a panic bridge where blocking
// could wedge the whole process. Waiter channels have capacity 1 and the
// publish is a non-blocking send, so an already-pending wake is simply
// left in place.
func (s *state) signal() {
	if s == nil || s.done == nil {
		// The notifier never existed or was torn out from under us. If we
		// carried on, suspended waiters might never learn the process is
		// exiting; a hard stop is the lesser evil.
		s.logger().Error("chex: cannot deliver exit signal", "err", ErrNotifierClosed)
		s.abort(1)
		return
	}

	if !s.exit.CompareAndSwap(false, true) {
		return
	}
	close(s.done)

	s.mu.Lock()
	wake := make([]chan struct{}, 0, len(s.waiters))
	for _, ch := range s.waiters {
		wake = append(wake, ch)
	}
	s.mu.Unlock()

	for _, ch := range wake {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// wait blocks until the exit flag is set or ctx is done. The flag check
// must happen before subscribing: a signal that fired before this waiter
// existed is only recorded in the flag, never in the channel.
func (s *state) wait(ctx context.Context) error {
	if s.exit.Load() {
		return nil
	}

	s.mu.Lock()
	// Re-check under the lock. A signal landing between the fast check
	// and subscription has already snapshotted the waiter set and would
	// never wake this channel.
	if s.exit.Load() {
		s.mu.Unlock()
		return nil
	}
	s.nextID++
	id := s.nextID
	ch := make(chan struct{}, 1)
	s.waiters[id] = ch
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.waiters, id)
		s.mu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Instance is a cheap, cloneable handle bound to one shared signal state.
// Many instances may exist concurrently; all reference the same state and
// all operations are safe under arbitrary concurrent use. Instances need
// no explicit release: abandoning a Wait removes its subscription.
type Instance struct {
	st *state
}

// Poll reports whether exit has been signalled. It never blocks and is
// safe from any goroutine, including busy-poll loops.
func (i *Instance) Poll() bool {
	return i.st.exit.Load()
}

// Signal announces that the process should exit and wakes all waiters.
// Redundant calls are no-ops that still succeed.
func (i *Instance) Signal() {
	i.st.signal()
}

// Wait blocks the calling goroutine until exit is signalled or ctx is
// done. If the flag is already set it returns immediately without
// subscribing. Returns nil when exit was signalled, ctx.Err() otherwise.
// Deadlines are composed by the caller through ctx.
func (i *Instance) Wait(ctx context.Context) error {
	return i.st.wait(ctx)
}

// Done returns a channel that is closed once exit has been signalled, for
// select-based composition alongside other channels.
func (i *Instance) Done() <-chan struct{} {
	return i.st.done
}

// Clone returns a new handle bound to the same signal state.
func (i *Instance) Clone() *Instance {
	return &Instance{st: i.st}
}
