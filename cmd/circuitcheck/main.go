// Command circuitcheck evaluates circuit specs against the reference data
// from the command line.
package main

import (
	"os"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}
