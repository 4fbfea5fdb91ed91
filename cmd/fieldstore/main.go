// Package main provides the fieldstore CLI: a thin operator surface
// over the embedded store for inspecting and manipulating tables, rows,
// and metadata on a device.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitSysError)
	}
}
