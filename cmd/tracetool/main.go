// Tracetool runs and renders trace combinator models.
//
// Models are YAML (or JSON) documents; see core.Model.  Program
// sources can use '%inline("FILE")' to pull in code from files next
// to the model.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
