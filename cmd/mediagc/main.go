// Command mediagc removes media assets that no owner table references.
//
// Usage:
//
//	mediagc serve                  run the API, metrics and periodic sweeps
//	mediagc sweep [--dry-run]      run one sweep and print the result
//	mediagc classify               print the reachability report
//	mediagc leases list            show edit leases
//	mediagc config init            write a default config file
//	mediagc config schema [file]   write the config JSON schema
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
