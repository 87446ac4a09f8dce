// Command dhstress runs concurrent writers and readers against a
// doublehash.Map and reports whether every read and the final contents
// matched what the writers stored.
//
// Usage:
//
//	dhstress [--config workload.toml] [--writers n] [--readers n] [--from k] [--to k] ...
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
