package chex

import "os"

// exitProcess terminates the process on unrecoverable conditions where no
// Chex (and therefore no WithExitFunc override) exists, such as Signal
// before Init. It is a variable so tests can intercept the fatal path.
var exitProcess = os.Exit
