// The main package for the scholarhunt executable.
package main

import (
	"github.com/scholarhunt/scholarhunt/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
