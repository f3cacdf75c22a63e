// Command memtracker narrates simulated memory scenarios and renders how the
// allocations and borrows evolve.
package main

import (
	"github.com/tebeka/atexit"

	"github.com/sarchlab/memtracker/memtracker/cmd"
)

func main() {
	atexit.Exit(cmd.Execute())
}
