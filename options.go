package chex

import "log/slog"

// Option configures a Chex at construction or, for the process-wide
// accessor, on any Init call.
type Option func(*Chex)

// WithLogger sets the logger used for panic diagnostics and fatal-path
// reporting. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Chex) {
		if l != nil {
			c.st.log.Store(l)
		}
	}
}

// WithExitFunc replaces the function used to terminate the process on
// unrecoverable conditions. Defaults to os.Exit. Primarily useful for
// exercising the fatal paths in tests.
func WithExitFunc(fn func(code int)) Option {
	return func(c *Chex) {
		if fn != nil {
			c.st.abortFn.Store(&fn)
		}
	}
}

// WithPanicHandler appends a handler to the panic chain. Equivalent to
// calling OnPanic after construction.
func WithPanicHandler(h PanicHandler) Option {
	return func(c *Chex) {
		c.OnPanic(h)
	}
}
