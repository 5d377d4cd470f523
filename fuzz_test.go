package chex

import (
	"context"
	"log/slog"
	"testing"
)

// FuzzStateMachine exercises permutations of accessor and instance
// operations to shake out panics or bad state transitions. It never
// touches the process-wide accessor or the real exit path.
func FuzzStateMachine(f *testing.F) {
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	f.Add([]byte{5, 5, 1, 1, 0, 3, 2, 7, 6, 4})

	f.Fuzz(func(t *testing.T, data []byte) {
		c := New(
			WithLogger(slog.New(slog.NewTextHandler(&syncBuffer{}, nil))),
			WithExitFunc(func(int) { t.Fatal("fuzz op reached the fatal path") }),
		)
		inst := c.Instance()

		const maxOps = 256
		for i := 0; i < len(data) && i < maxOps; i++ {
			switch data[i] % 8 {
			case 0:
				_ = c.Poll()
			case 1:
				c.Signal()
			case 2:
				inst = c.Instance()
			case 3:
				inst = inst.Clone()
			case 4:
				// Wait with a cancelled context must return promptly
				// whether or not the flag is set.
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				_ = inst.Wait(ctx)
			case 5:
				inst.Signal()
			case 6:
				c.EnableExitOnPanic()
			case 7:
				select {
				case <-inst.Done():
					if !inst.Poll() {
						t.Fatal("Done closed while flag unset")
					}
				default:
				}
			}

			// Monotonic: a set flag never clears.
			if inst.Poll() != c.Poll() {
				t.Fatal("instance and accessor disagree on the flag")
			}
		}
	})
}
