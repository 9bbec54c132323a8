// Command datacheck validates a movies dataset and prints its facets and charts
// without starting the server.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}
